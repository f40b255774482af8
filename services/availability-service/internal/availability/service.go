// Package availability runs one generation pass: load session types, take a single busy
// snapshot and produce every type's slots and week/day grouping.
package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/busy"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/civil"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/grouping"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/sessiontype"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/slots"
)

var (
	ErrUnknownSessionType = errors.New("unknown session type")
	ErrBusyUnavailable    = errors.New("busy intervals unavailable")
)

// SnapshotMargin widens the busy query on both sides so that buffered candidates near the
// edges of the horizon still see every interval they could touch.
const SnapshotMargin = time.Duration(sessiontype.MaxBuffer) * time.Minute

// TypeAvailability is one session type's output.
type TypeAvailability struct {
	Key         string `json:"key"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Duration    int    `json:"duration_minutes"`

	Slots    []slots.Slot       `json:"slots"`
	Schedule *grouping.Schedule `json:"schedule"`
	Flagged  []slots.Flagged    `json:"flagged,omitempty"`
}

// Page is the result of one run, types in catalog order.
type Page struct {
	RunID       string             `json:"run_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Timezone    string             `json:"timezone"`
	HorizonEnd  time.Time          `json:"horizon_end"`
	Types       []TypeAvailability `json:"session_types"`
}

// Type returns the entry for key, or nil.
func (p *Page) Type(key string) *TypeAvailability {
	for i := range p.Types {
		if p.Types[i].Key == key {
			return &p.Types[i]
		}
	}
	return nil
}

type Service struct {
	clock      *civil.Clock
	generator  *slots.Generator
	busy       busy.Source
	types      sessiontype.Provider
	horizonEnd time.Time
	logger     *slog.Logger
	tracer     trace.Tracer
}

func NewService(clock *civil.Clock, source busy.Source, types sessiontype.Provider, horizonEnd time.Time, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		clock:      clock,
		generator:  slots.NewGenerator(clock, logger),
		busy:       source,
		types:      types,
		horizonEnd: horizonEnd,
		logger:     logger,
		tracer:     otel.Tracer("availability"),
	}
}

func (s *Service) HorizonEnd() time.Time { return s.horizonEnd }

// SessionTypes lists the configured session types in catalog order.
func (s *Service) SessionTypes(ctx context.Context) ([]sessiontype.Config, error) {
	return s.types.SessionTypes(ctx)
}

// Build generates availability for every session type as of now.
func (s *Service) Build(ctx context.Context, now time.Time) (*Page, error) {
	return s.build(ctx, now, "")
}

// BuildType generates availability for a single session type.
func (s *Service) BuildType(ctx context.Context, now time.Time, key string) (*Page, error) {
	return s.build(ctx, now, key)
}

func (s *Service) build(ctx context.Context, now time.Time, only string) (*Page, error) {
	runID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "availability.build",
		trace.WithAttributes(
			attribute.String("availability.run_id", runID),
			attribute.String("availability.timezone", s.clock.Location().String()),
		),
	)
	defer span.End()

	types, err := s.types.SessionTypes(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load session types")
		return nil, fmt.Errorf("load session types: %w", err)
	}
	if only != "" {
		types = filter(types, only)
		if len(types) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSessionType, only)
		}
	}

	page := &Page{
		RunID:       runID,
		GeneratedAt: now,
		Timezone:    s.clock.Location().String(),
		HorizonEnd:  s.horizonEnd,
		Types:       make([]TypeAvailability, 0, len(types)),
	}

	var intervals []busy.Interval
	if now.Before(s.horizonEnd) {
		intervals, err = s.busy.Busy(ctx, now.Add(-SnapshotMargin), s.horizonEnd.Add(SnapshotMargin))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "load busy intervals")
			return nil, fmt.Errorf("%w: %w", ErrBusyUnavailable, err)
		}
	}
	span.SetAttributes(attribute.Int("availability.busy_intervals", len(intervals)))

	req := slots.Request{Now: now, HorizonEnd: s.horizonEnd, Busy: intervals}
	total := 0
	for _, cfg := range types {
		res := s.generator.Generate(cfg, req)
		total += len(res.Slots)
		page.Types = append(page.Types, TypeAvailability{
			Key:         cfg.Key,
			Name:        cfg.Name,
			Description: cfg.Description,
			Duration:    cfg.Duration,
			Slots:       nonNil(res.Slots),
			Schedule:    grouping.Group(res.Slots),
			Flagged:     res.Flagged,
		})
	}
	span.SetAttributes(
		attribute.Int("availability.session_types", len(page.Types)),
		attribute.Int("availability.slots", total),
	)

	s.logger.Debug("availability built",
		"run_id", runID,
		"session_types", len(page.Types),
		"busy_intervals", len(intervals),
		"slots", total,
	)
	return page, nil
}

func filter(types []sessiontype.Config, key string) []sessiontype.Config {
	for _, cfg := range types {
		if cfg.Key == key {
			return []sessiontype.Config{cfg}
		}
	}
	return nil
}

func nonNil(in []slots.Slot) []slots.Slot {
	if in == nil {
		return []slots.Slot{}
	}
	return in
}
