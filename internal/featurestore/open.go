package featurestore

import (
	"context"
	"fmt"

	"github.com/yourusername/bracket-forecast/internal/config"
	"github.com/yourusername/bracket-forecast/internal/database"
)

// Store is an opened Reader together with the resources behind it
type Store struct {
	Reader
	closeFn func() error
}

// Close releases the backend
func (s *Store) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// Open builds the configured backend, cached when a cache TTL is configured
// and guarded against leakage on every read, cache hits included.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	var (
		backend Reader
		closeFn func() error
	)

	switch cfg.FeatureStore.Driver {
	case "memory":
		fixture, err := LoadFixture(cfg.FeatureStore.Path)
		if err != nil {
			return nil, err
		}
		backend = NewMemoryFromFixture(fixture)
	case "sqlite":
		s, err := OpenSQLite(cfg.FeatureStore.Path)
		if err != nil {
			return nil, err
		}
		if err := s.InitSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		backend, closeFn = s, s.Close
	case "postgres":
		db, err := database.Initialize(ctx, cfg)
		if err != nil {
			return nil, err
		}
		backend = NewPostgres(db)
		closeFn = func() error {
			db.Close()
			return nil
		}
	default:
		return nil, fmt.Errorf("unsupported feature store driver %q", cfg.FeatureStore.Driver)
	}

	reader := backend
	if ttl := cfg.CacheTTL(); ttl > 0 {
		reader = NewCached(reader, ttl)
	}
	return &Store{Reader: NewGuarded(reader), closeFn: closeFn}, nil
}
