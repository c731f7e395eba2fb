package cache

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/tbourn/checkin-badges/internal/config"
)

// Open builds the Store selected by cfg.Backend and returns a close
// function that releases it. db is only used by the "sqlite" backend.
func Open(cfg config.CacheConfig, db *gorm.DB) (Store, func() error, error) {
	noClose := func() error { return nil }
	switch cfg.Backend {
	case "", "disk":
		return NewDiskStore(cfg.Dir), noClose, nil
	case "memory":
		return NewMemoryStore(), noClose, nil
	case "none":
		return Nop{}, noClose, nil
	case "sqlite":
		if db == nil {
			return nil, nil, fmt.Errorf("cache backend sqlite requires a database")
		}
		return NewSQLStore(db), noClose, nil
	case "bolt":
		s, err := OpenBoltStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
