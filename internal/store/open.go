package store

import (
	"context"
	"errors"
	"fmt"
)

// Supported storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown store driver")

// Options selects and configures a Repository implementation.
type Options struct {
	Driver          string
	SQLiteDSN       string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// Open creates the Repository described by opts.
func Open(ctx context.Context, opts Options) (Repository, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverSQLite:
		s, err := NewSQLiteStore(ctx, opts.SQLiteDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverMongo:
		s, err := NewMongoStore(ctx, opts.MongoURI, opts.MongoDatabase, opts.MongoCollection)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, opts.Driver)
	}
}
