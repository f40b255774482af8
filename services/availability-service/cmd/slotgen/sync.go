package main

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/slotboard/libs/db"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/sessiontype"
)

type SyncTypesCmd struct {
	Types       string        `help:"Session-type catalog (YAML or JSON)." type:"existingfile" required:""`
	DatabaseURL string        `help:"Postgres connection string." env:"DATABASE_URL" required:""`
	Timeout     time.Duration `help:"Overall timeout." default:"30s"`
}

func (c *SyncTypesCmd) Run(ctx *Context) error {
	catalog, err := sessiontype.LoadFile(c.Types)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	pool, err := db.Open(runCtx, c.DatabaseURL, db.PoolConfig{MaxConns: 2})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	types, err := catalog.SessionTypes(runCtx)
	if err != nil {
		return err
	}
	if err := sessiontype.NewRepository(pool).Upsert(runCtx, types); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "synced %d session types\n", len(types))
	return nil
}
