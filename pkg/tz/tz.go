package tz

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

var cache sync.Map // name -> *time.Location

// Load returns the IANA location for name. Results are cached; an empty name
// resolves to UTC.
func Load(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}
	if loc, ok := cache.Load(name); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("tz: load %q: %w", name, err)
	}
	actual, _ := cache.LoadOrStore(name, loc)
	return actual.(*time.Location), nil
}

