package busy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

var day = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

func TestIntervalValidate(t *testing.T) {
	if err := (Interval{Start: at(9, 0), End: at(9, 30)}).Validate(); err != nil {
		t.Fatalf("expected valid interval, got %v", err)
	}
	if err := (Interval{Start: at(9, 0), End: at(9, 0)}).Validate(); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval for empty interval, got %v", err)
	}
	if err := (Interval{End: at(9, 0)}).Validate(); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval for missing start, got %v", err)
	}
}

func TestIntervalOverlapsIsHalfOpen(t *testing.T) {
	iv := Interval{Start: at(9, 0), End: at(9, 30)}
	if iv.Overlaps(at(9, 30), at(10, 0)) {
		t.Fatalf("adjacent span after must not overlap")
	}
	if iv.Overlaps(at(8, 30), at(9, 0)) {
		t.Fatalf("adjacent span before must not overlap")
	}
	if !iv.Overlaps(at(9, 29), at(10, 0)) || !iv.Overlaps(at(8, 0), at(11, 0)) {
		t.Fatalf("expected overlap")
	}
}

func TestStaticAndMulti(t *testing.T) {
	a := Static{{Start: at(9, 0), End: at(9, 30)}}
	b := Static{{Start: at(13, 0), End: at(14, 0)}}

	got, err := Multi{a, b}.Busy(context.Background(), day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("busy: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(got))
	}
	got[0].Start = time.Time{}
	if a[0].Start.IsZero() {
		t.Fatalf("expected Static to return a copy")
	}

	failing := sourceFunc(func(context.Context, time.Time, time.Time) ([]Interval, error) {
		return nil, errors.New("feed down")
	})
	if _, err := (Multi{a, failing}).Busy(context.Background(), day, day); err == nil {
		t.Fatalf("expected error from failing source")
	}
}

type sourceFunc func(ctx context.Context, from, to time.Time) ([]Interval, error)

func (f sourceFunc) Busy(ctx context.Context, from, to time.Time) ([]Interval, error) {
	return f(ctx, from, to)
}

func TestDecodeFeed(t *testing.T) {
	body := `[
		{"start": "2026-03-02T14:00:00Z", "end": "2026-03-02T15:00:00Z", "summary": "expired"},
		{"start": "2026-01-05T14:00:00Z", "end": "2026-12-31T15:00:00Z", "summary": "long block", "recurring": true},
		{"start": "2026-03-09T13:00:00Z", "end": "2026-03-09T13:30:00Z"}
	]`
	got, err := DecodeFeed(strings.NewReader(body), day)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected expired entry dropped and 2 kept, got %d", len(got))
	}
	if !got[1].Start.Equal(at(13, 0)) {
		t.Fatalf("unexpected second interval %+v", got[1])
	}

	bad := `[{"start": "2026-03-09T13:00:00Z", "end": "2026-03-09T12:00:00Z"}]`
	if _, err := DecodeFeed(strings.NewReader(bad), day); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	if _, err := DecodeFeed(strings.NewReader(`{"not": "a list"}`), day); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestFeedSource(t *testing.T) {
	var gotFrom, gotTo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFrom = r.URL.Query().Get("from")
		gotTo = r.URL.Query().Get("to")
		if r.URL.Query().Get("token") != "abc" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"start": "2026-03-09T13:00:00Z", "end": "2026-03-09T13:30:00Z"}]`))
	}))
	defer srv.Close()

	src := NewFeedSource(srv.URL+"/busy?token=abc", time.Second)
	got, err := src.Busy(context.Background(), day, day.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("busy: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(got))
	}
	if gotFrom != "2026-03-09T00:00:00Z" || gotTo != "2026-03-11T00:00:00Z" {
		t.Fatalf("unexpected window from=%q to=%q", gotFrom, gotTo)
	}

	denied := NewFeedSource(srv.URL+"/busy", time.Second)
	if _, err := denied.Busy(context.Background(), day, day); err == nil {
		t.Fatalf("expected error for non-200 feed")
	}
}

func TestCachedSource_FailsOpenWithoutRedis(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	var calledFrom time.Time
	next := sourceFunc(func(_ context.Context, from, _ time.Time) ([]Interval, error) {
		calledFrom = from
		return []Interval{{Start: at(9, 0), End: at(9, 30)}}, nil
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cached := NewCachedSource(next, rdb, time.Minute, "", logger)

	got, err := cached.Busy(context.Background(), at(7, 42), day.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("expected fallthrough, got %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(got))
	}
	if !calledFrom.Equal(at(7, 0)) {
		t.Fatalf("expected window aligned to the hour, got %s", calledFrom)
	}
	if err := cached.Invalidate(context.Background()); err == nil {
		t.Fatalf("expected invalidate to report the redis failure")
	}
}
