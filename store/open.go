package store

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the KVStore named by backend. dsn is a redis:// URL for redis
// and a file path for sqlite; it is ignored for memory.
func Open(ctx context.Context, backend, dsn string, redisCfg ...RedisStoreConfig) (jaat.KVStore, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendMemory:
		return jaat.NewInMemoryKVStore(), nopCloser{}, nil
	case BackendRedis:
		s, err := OpenRedis(ctx, dsn, redisCfg...)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[Store] using redis backend")
		return s, s, nil
	case BackendSQLite:
		s, err := OpenSQLite(dsn)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[Store] using sqlite backend at %s", dsn)
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
