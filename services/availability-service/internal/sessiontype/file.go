package sessiontype

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoadFile reads a catalog from YAML, JSON or TOML (chosen by extension). The file holds a
// top-level "session_types" list; list order is display order.
//
//	session_types:
//	  - key: intro
//	    name: Intro call
//	    duration: 30
//	    buffer: 10
//	    days: [1, 2, 3, 4, 5]
//	    start_hour: 8
//	    end_hour: 16
//	    max_per_day: 4
//	    lead_time_hours: 4
func LoadFile(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read session types %s: %w", path, err)
	}

	var types []Config
	if err := v.UnmarshalKey("session_types", &types); err != nil {
		return nil, fmt.Errorf("decode session types %s: %w", path, err)
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("%w: %s defines no session_types", ErrInvalidConfig, path)
	}
	return NewCatalog(types...)
}
