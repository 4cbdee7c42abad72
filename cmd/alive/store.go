package main

import (
	"fmt"

	pkgdb "github.com/unowned-ai/alive/pkg/db"
	"github.com/unowned-ai/alive/pkg/kv"
	"github.com/unowned-ai/alive/pkg/moments"
	"github.com/unowned-ai/alive/pkg/utils"
)

// storeOptions turns the loaded configuration into moment store options.
func storeOptions() ([]moments.Option, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return []moments.Option{
		moments.WithLogger(logger),
		moments.WithLocation(loc),
		moments.WithAuthorAlias(cfg.Profile.AuthorAlias),
	}, nil
}

// openStore opens and migrates the configured database. Callers must Close
// the returned kv store.
func openStore() (*moments.Store, *kv.SQLiteStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	opts, err := storeOptions()
	if err != nil {
		return nil, nil, err
	}

	path, err := utils.ResolveAndEnsureDBPath(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	dbConn, err := pkgdb.OpenDBConnection(path, cfg.Database.WAL, cfg.Database.Sync)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := pkgdb.UpgradeDB(dbConn, path, pkgdb.TargetSchemaVersion, logger); err != nil {
		dbConn.Close()
		return nil, nil, fmt.Errorf("failed to initialize/upgrade database schema for '%s': %w", path, err)
	}

	backing := kv.NewSQLiteStore(dbConn)
	return moments.NewStore(backing, opts...), backing, nil
}
