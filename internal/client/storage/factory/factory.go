// Package factory builds content tiers from DSN strings.
//
// Supported schemes:
//
//	memory://              volatile in-process tier
//	bolt://path/to/file.db BoltDB file
//	sqlite://path/to.db    SQLite file (sqlite://:memory: for tests)
//	postgres://...         PostgreSQL, the DSN is passed to the driver unchanged
package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"github.com/iudanet/sitekeeper/internal/client/storage"
	"github.com/iudanet/sitekeeper/internal/client/storage/boltdb"
	"github.com/iudanet/sitekeeper/internal/client/storage/memory"
	"github.com/iudanet/sitekeeper/internal/client/storage/postgres"
	"github.com/iudanet/sitekeeper/internal/client/storage/sqlite"
	"github.com/iudanet/sitekeeper/internal/models"
)

// ErrUnsupportedScheme is returned for DSNs with an unknown scheme
var ErrUnsupportedScheme = errors.New("unsupported tier scheme")

// TierFactory builds a tier from a DSN
type TierFactory func(ctx context.Context, name models.Tier, dsn string) (storage.Tier, error)

var registry = struct {
	mu        sync.RWMutex
	factories map[string]TierFactory
}{
	factories: map[string]TierFactory{},
}

// Register installs a factory for scheme, overriding the built-in one
func Register(scheme string, factory TierFactory) {
	scheme = normalizeScheme(scheme)
	if scheme == "" || factory == nil {
		return
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.factories[scheme] = factory
}

func lookup(scheme string) (TierFactory, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	factory, ok := registry.factories[normalizeScheme(scheme)]
	return factory, ok
}

// Open builds the tier described by dsn and assigns it the given role
func Open(ctx context.Context, name models.Tier, dsn string) (storage.Tier, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("empty dsn for %s tier", name)
	}

	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return nil, fmt.Errorf("dsn %q has no scheme", dsn)
	}
	scheme = normalizeScheme(scheme)

	if factory, ok := lookup(scheme); ok {
		return factory(ctx, name, dsn)
	}

	switch scheme {
	case "memory", "mem", "inmem":
		return memory.New(name), nil
	case "bolt", "boltdb":
		path, err := filePath(rest)
		if err != nil {
			return nil, err
		}
		return boltdb.New(ctx, name, path)
	case "sqlite":
		path, err := filePath(rest)
		if err != nil {
			return nil, err
		}
		return sqlite.New(ctx, name, path)
	case "postgres", "postgresql":
		return postgres.New(name, dsn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
}

// Close closes every tier that holds resources
func Close(tiers ...storage.Tier) error {
	var err error
	for _, tier := range tiers {
		if closer, ok := tier.(io.Closer); ok {
			if cerr := closer.Close(); cerr != nil {
				err = multierr.Append(err, fmt.Errorf("close %s tier: %w", tier.Name(), cerr))
			}
		}
	}
	return err
}

// filePath extracts a filesystem path from the part after "scheme://".
// Query strings are not supported for file tiers.
func filePath(rest string) (string, error) {
	path, err := url.PathUnescape(rest)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", rest, err)
	}
	if strings.TrimSpace(path) == "" {
		return "", errors.New("file tier requires a path")
	}
	return path, nil
}

func normalizeScheme(scheme string) string {
	return strings.ToLower(strings.TrimSpace(scheme))
}
