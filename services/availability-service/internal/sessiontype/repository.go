package sessiontype

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/slotboard/libs/db"
)

// Repository stores session types in Postgres:
//
//	session_types(key text primary key, name text, description text, duration_minutes int,
//	    buffer_minutes int, weekdays int[], start_minute int, end_minute int, max_per_day int,
//	    lead_time_hours int, position int, is_active bool, updated_at timestamptz)
//
// Window bounds are stored as minutes from midnight, like staff working hours.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// SessionTypes returns the active session types ordered by position. Rows that fail
// validation are returned as an error rather than skipped.
func (r *Repository) SessionTypes(ctx context.Context) ([]Config, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT key, name, description, duration_minutes, buffer_minutes, weekdays,
			start_minute, end_minute, max_per_day, lead_time_hours
		FROM session_types
		WHERE is_active
		ORDER BY position, key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Config
	for rows.Next() {
		var (
			c                Config
			weekdays         []int32
			startMin, endMin int
		)
		if err := rows.Scan(&c.Key, &c.Name, &c.Description, &c.Duration, &c.Buffer, &weekdays,
			&startMin, &endMin, &c.MaxPerDay, &c.LeadTimeHours); err != nil {
			return nil, err
		}
		for _, wd := range weekdays {
			c.Days = append(c.Days, time.Weekday(wd))
		}
		c.StartHour, c.StartMin = startMin/60, startMin%60
		c.EndHour, c.EndMin = endMin/60, endMin%60
		if err := c.Validate(); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// Upsert writes every config in order, assigning positions from list order.
func (r *Repository) Upsert(ctx context.Context, types []Config) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i, c := range types {
		if err := c.Validate(); err != nil {
			return err
		}
		weekdays := make([]int32, 0, len(c.Days))
		for _, wd := range c.Days {
			weekdays = append(weekdays, int32(wd))
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO session_types
				(key, name, description, duration_minutes, buffer_minutes, weekdays,
				 start_minute, end_minute, max_per_day, lead_time_hours, position, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, true)
			ON CONFLICT (key) DO UPDATE
			SET name = EXCLUDED.name,
				description = EXCLUDED.description,
				duration_minutes = EXCLUDED.duration_minutes,
				buffer_minutes = EXCLUDED.buffer_minutes,
				weekdays = EXCLUDED.weekdays,
				start_minute = EXCLUDED.start_minute,
				end_minute = EXCLUDED.end_minute,
				max_per_day = EXCLUDED.max_per_day,
				lead_time_hours = EXCLUDED.lead_time_hours,
				position = EXCLUDED.position,
				is_active = true,
				updated_at = now()
		`, c.Key, c.Name, c.Description, c.Duration, c.Buffer, weekdays,
			c.WindowStartMinutes(), c.WindowEndMinutes(), c.MaxPerDay, c.LeadTimeHours, i); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
