package sessiontype

import (
	"context"
	"fmt"
)

// Provider supplies the ordered session types for one generation run.
type Provider interface {
	SessionTypes(ctx context.Context) ([]Config, error)
}

// Catalog is a fixed, validated, ordered set of session types.
type Catalog struct {
	types []Config
}

// NewCatalog validates every config and rejects duplicate keys. Order is preserved.
func NewCatalog(types ...Config) (*Catalog, error) {
	seen := make(map[string]struct{}, len(types))
	out := make([]Config, 0, len(types))
	for _, t := range types {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[t.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidConfig, t.Key)
		}
		seen[t.Key] = struct{}{}
		out = append(out, t.Clone())
	}
	return &Catalog{types: out}, nil
}

func (c *Catalog) SessionTypes(_ context.Context) ([]Config, error) {
	out := make([]Config, 0, len(c.types))
	for _, t := range c.types {
		out = append(out, t.Clone())
	}
	return out, nil
}

func (c *Catalog) Lookup(key string) (Config, bool) {
	for _, t := range c.types {
		if t.Key == key {
			return t.Clone(), true
		}
	}
	return Config{}, false
}

func (c *Catalog) Len() int { return len(c.types) }
