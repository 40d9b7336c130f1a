package store

import (
	"context"
	"fmt"
)

// Supported drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverBadger   = "badger"
)

// Options selects and locates a backend.
type Options struct {
	Driver        string
	MongoURL      string
	MongoDatabase string
	PostgresURL   string
	SQLitePath    string
	RedisURL      string
	BadgerPath    string
}

// Open connects to the backend named by opts.Driver. It blocks until the backend
// answers a ping and its schema exists, so the returned store is ready for use.
func Open(ctx context.Context, opts Options) (DataStore, error) {
	var (
		s   DataStore
		err error
	)
	switch opts.Driver {
	case DriverMongo:
		s, err = ready(NewMongoStore(ctx, opts.MongoURL, opts.MongoDatabase))
	case DriverPostgres:
		s, err = ready(NewPostgresStore(ctx, opts.PostgresURL))
	case DriverSQLite:
		s, err = ready(NewSQLiteStore(ctx, opts.SQLitePath))
	case DriverRedis:
		s, err = ready(NewRedisStore(ctx, opts.RedisURL))
	case DriverBadger:
		s, err = ready(NewBadgerStore(opts.BadgerPath))
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", opts.Driver, err)
	}
	return s, nil
}

// ready drops the typed pointer so a failed constructor yields a nil interface.
func ready[T DataStore](s T, err error) (DataStore, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
