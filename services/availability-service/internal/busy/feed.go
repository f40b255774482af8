package busy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxFeedBytes caps a feed response body.
const maxFeedBytes = 8 << 20

// FeedEntry is one resolved occurrence published by the calendar expander.
type FeedEntry struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Summary   string    `json:"summary,omitempty"`
	Recurring bool      `json:"recurring,omitempty"`
}

// DecodeFeed reads a JSON array of FeedEntry. Malformed entries fail the whole feed.
// Entries that ended at or before from are dropped; every other entry is kept, recurring
// or not.
func DecodeFeed(r io.Reader, from time.Time) ([]Interval, error) {
	var entries []FeedEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode busy feed: %w", err)
	}

	out := make([]Interval, 0, len(entries))
	for n, e := range entries {
		iv := Interval{Start: e.Start, End: e.End}
		if err := iv.Validate(); err != nil {
			return nil, fmt.Errorf("busy feed entry %d: %w", n, err)
		}
		if !from.IsZero() && !iv.End.After(from) {
			continue
		}
		out = append(out, iv)
	}
	return out, nil
}

// FeedSource fetches resolved busy intervals over HTTP.
type FeedSource struct {
	url    string
	client *http.Client
}

func NewFeedSource(feedURL string, timeout time.Duration) *FeedSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FeedSource{
		url: feedURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Busy requests the window as RFC3339 "from"/"to" query parameters.
func (f *FeedSource) Busy(ctx context.Context, from, to time.Time) ([]Interval, error) {
	u, err := url.Parse(f.url)
	if err != nil {
		return nil, fmt.Errorf("busy feed url: %w", err)
	}
	q := u.Query()
	q.Set("from", from.UTC().Format(time.RFC3339))
	q.Set("to", to.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch busy feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch busy feed: unexpected status %d", resp.StatusCode)
	}
	return DecodeFeed(io.LimitReader(resp.Body, maxFeedBytes), from)
}
