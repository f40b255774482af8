package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/grouping"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/sessiontype"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/slots"
)

// Builder is the part of availability.Service the handlers need.
type Builder interface {
	Build(ctx context.Context, now time.Time) (*availability.Page, error)
	BuildType(ctx context.Context, now time.Time, key string) (*availability.Page, error)
	SessionTypes(ctx context.Context) ([]sessiontype.Config, error)
}

type SlotsHandler struct {
	builder Builder
	logger  *slog.Logger
	now     func() time.Time
}

func NewSlotsHandler(builder Builder, logger *slog.Logger) *SlotsHandler {
	return &SlotsHandler{builder: builder, logger: logger, now: time.Now}
}

type flatType struct {
	Key         string          `json:"key"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Duration    int             `json:"duration_minutes"`
	Slots       []slots.Slot    `json:"slots"`
	Flagged     []slots.Flagged `json:"flagged,omitempty"`
}

type groupedType struct {
	Key         string                `json:"key"`
	Name        string                `json:"name,omitempty"`
	Description string                `json:"description,omitempty"`
	Duration    int                   `json:"duration_minutes"`
	Weeks       []*grouping.WeekGroup `json:"weeks"`
	Flagged     []slots.Flagged       `json:"flagged,omitempty"`
}

type slotsResponse struct {
	RunID        string `json:"run_id"`
	GeneratedAt  string `json:"generated_at"`
	Timezone     string `json:"timezone"`
	HorizonEnd   string `json:"horizon_end"`
	View         string `json:"view"`
	SessionTypes any    `json:"session_types"`
}

type sessionTypeItem struct {
	Key           string   `json:"key"`
	Name          string   `json:"name,omitempty"`
	Description   string   `json:"description,omitempty"`
	Duration      int      `json:"duration_minutes"`
	Buffer        int      `json:"buffer_minutes"`
	Days          []string `json:"days"`
	WindowStart   string   `json:"window_start"`
	WindowEnd     string   `json:"window_end"`
	MaxPerDay     int      `json:"max_per_day"`
	LeadTimeHours int      `json:"lead_time_hours"`
}

// Slots serves GET /api/v1/public/slots?type=<key>&view=grouped|flat.
func (h *SlotsHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	view := strings.TrimSpace(r.URL.Query().Get("view"))
	if view == "" {
		view = "grouped"
	}
	if view != "grouped" && view != "flat" {
		http.Error(w, "view must be grouped or flat", http.StatusBadRequest)
		return
	}

	now := h.now().UTC()
	key := strings.TrimSpace(r.URL.Query().Get("type"))
	var (
		page *availability.Page
		err  error
	)
	if key != "" {
		page, err = h.builder.BuildType(r.Context(), now, key)
	} else {
		page, err = h.builder.Build(r.Context(), now)
	}
	if err != nil {
		switch {
		case errors.Is(err, availability.ErrUnknownSessionType):
			http.Error(w, "session type not found", http.StatusNotFound)
		case errors.Is(err, availability.ErrBusyUnavailable):
			h.logger.Error("busy intervals unavailable", "err", err)
			http.Error(w, "calendar unavailable", http.StatusServiceUnavailable)
		default:
			h.logger.Error("availability build failed", "err", err)
			http.Error(w, "failed to build availability", http.StatusInternalServerError)
		}
		return
	}

	resp := slotsResponse{
		RunID:       page.RunID,
		GeneratedAt: page.GeneratedAt.UTC().Format(time.RFC3339),
		Timezone:    page.Timezone,
		HorizonEnd:  page.HorizonEnd.UTC().Format(time.RFC3339),
		View:        view,
	}
	if view == "flat" {
		items := make([]flatType, 0, len(page.Types))
		for _, t := range page.Types {
			items = append(items, flatType{Key: t.Key, Name: t.Name, Description: t.Description, Duration: t.Duration, Slots: t.Slots, Flagged: t.Flagged})
		}
		resp.SessionTypes = items
	} else {
		items := make([]groupedType, 0, len(page.Types))
		for _, t := range page.Types {
			items = append(items, groupedType{Key: t.Key, Name: t.Name, Description: t.Description, Duration: t.Duration, Weeks: t.Schedule.Weeks, Flagged: t.Flagged})
		}
		resp.SessionTypes = items
	}

	writeJSON(w, resp)
}

// SessionTypes serves GET /api/v1/public/session-types.
func (h *SlotsHandler) SessionTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	types, err := h.builder.SessionTypes(r.Context())
	if err != nil {
		h.logger.Error("list session types failed", "err", err)
		http.Error(w, "failed to list session types", http.StatusInternalServerError)
		return
	}

	resp := make([]sessionTypeItem, 0, len(types))
	for _, t := range types {
		days := make([]string, 0, len(t.Days))
		for _, d := range t.Days {
			days = append(days, d.String())
		}
		resp = append(resp, sessionTypeItem{
			Key:           t.Key,
			Name:          t.Name,
			Description:   t.Description,
			Duration:      t.Duration,
			Buffer:        t.Buffer,
			Days:          days,
			WindowStart:   clockString(t.StartHour, t.StartMin),
			WindowEnd:     clockString(t.EndHour, t.EndMin),
			MaxPerDay:     t.MaxPerDay,
			LeadTimeHours: t.LeadTimeHours,
		})
	}

	writeJSON(w, resp)
}

func clockString(h, m int) string {
	return fmt.Sprintf("%02d:%02d", h, m)
}

func writeJSON(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
