package busy

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/slotboard/libs/db"
)

// PostgresSource reads booked appointments and manual busy blocks. Cancelled appointments
// do not block.
type PostgresSource struct {
	pool *db.Pool
}

func NewPostgresSource(pool *db.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

func (s *PostgresSource) Busy(ctx context.Context, from, to time.Time) ([]Interval, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT start_time, end_time
		FROM appointments
		WHERE status = 'booked'
			AND start_time < $2
			AND end_time > $1
		UNION ALL
		SELECT start_time, end_time
		FROM busy_blocks
		WHERE start_time < $2
			AND end_time > $1
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Interval
	for rows.Next() {
		var iv Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		if err := iv.Validate(); err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
