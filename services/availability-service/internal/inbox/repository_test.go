package inbox

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsDuplicate(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505"}
	if !IsDuplicate(dup) {
		t.Fatalf("expected unique violation to be a duplicate")
	}
	if !IsDuplicate(fmt.Errorf("insert: %w", dup)) {
		t.Fatalf("expected wrapped unique violation to be a duplicate")
	}
	if IsDuplicate(&pgconn.PgError{Code: "23503"}) {
		t.Fatalf("expected foreign key violation not to be a duplicate")
	}
	if IsDuplicate(errors.New("boom")) {
		t.Fatalf("expected plain error not to be a duplicate")
	}
}
