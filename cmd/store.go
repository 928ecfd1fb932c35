package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/hollomancer/sbir-analytics-sub010/internal/store"
)

// openStore opens the configured store backend and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite", "":
		s, err = store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		s, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
