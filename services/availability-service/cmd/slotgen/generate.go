package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/busy"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/civil"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/sessiontype"
)

type GenerateCmd struct {
	Types    string `help:"Session-type catalog (YAML or JSON)." type:"existingfile" required:""`
	Busy     string `help:"Busy feed snapshot (JSON array of {start,end})." type:"existingfile"`
	Timezone string `help:"IANA zone the calendar is kept in." default:"UTC" env:"TIMEZONE"`
	Horizon  string `help:"Last bookable date, exclusive (YYYY-MM-DD)." required:"" env:"HORIZON_END"`
	Now      string `help:"Generation instant (RFC3339); defaults to the current time."`
	Type     string `help:"Only generate this session type."`
	Format   string `help:"Output format." enum:"text,json" default:"text"`
}

func (c *GenerateCmd) Run(ctx *Context) error {
	clock, err := civil.Load(c.Timezone)
	if err != nil {
		return err
	}
	horizonEnd, err := clock.Horizon(c.Horizon)
	if err != nil {
		return fmt.Errorf("invalid horizon: %w", err)
	}

	now := time.Now()
	if c.Now != "" {
		now, err = time.Parse(time.RFC3339, c.Now)
		if err != nil {
			return fmt.Errorf("invalid now, use RFC3339: %w", err)
		}
	}

	catalog, err := sessiontype.LoadFile(c.Types)
	if err != nil {
		return err
	}

	var snapshot busy.Static
	if c.Busy != "" {
		f, err := os.Open(c.Busy)
		if err != nil {
			return err
		}
		// Intervals that ended before now can still reach a slot through its buffer.
		snapshot, err = busy.DecodeFeed(f, now.Add(-availability.SnapshotMargin))
		_ = f.Close()
		if err != nil {
			return err
		}
	}

	svc := availability.NewService(clock, snapshot, catalog, horizonEnd, ctx.Logger)
	var page *availability.Page
	if c.Type != "" {
		page, err = svc.BuildType(context.Background(), now, c.Type)
	} else {
		page, err = svc.Build(context.Background(), now)
	}
	if err != nil {
		return err
	}

	if c.Format == "json" {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	}
	return writeText(ctx, page)
}

func writeText(ctx *Context, page *availability.Page) error {
	fmt.Fprintf(ctx.Out, "Availability in %s until %s\n", page.Timezone, page.HorizonEnd.Format(time.RFC3339))
	for _, t := range page.Types {
		name := t.Name
		if name == "" {
			name = t.Key
		}
		fmt.Fprintf(ctx.Out, "\n%s (%d min): %d slots\n", name, t.Duration, len(t.Slots))
		for _, week := range t.Schedule.Weeks {
			fmt.Fprintf(ctx.Out, "  %s\n", week.Label)
			for _, day := range week.Days {
				fmt.Fprintf(ctx.Out, "    %s:", day.Label)
				for _, s := range day.Slots {
					fmt.Fprintf(ctx.Out, " %s", s.TimeLabel)
				}
				fmt.Fprintln(ctx.Out)
			}
		}
		for _, f := range t.Flagged {
			fmt.Fprintf(ctx.Out, "  skipped %s %02d:%02d: %s\n", f.Date, f.Hour, f.Minute, f.Reason)
		}
	}
	return nil
}
