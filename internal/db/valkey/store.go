package valkey

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/qaindex/internal/db"
	"github.com/kailas-cloud/qaindex/internal/db/redis"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds connection parameters for a Valkey store.
type Config = redis.Config

// Store implements db.Store for Valkey with valkey-search. Commands are shared
// with the Redis store; listing and counting without a KNN clause fall back to SCAN.
type Store struct {
	*redis.Store
}

// NewStore creates a Valkey store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	s, err := redis.NewStore(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Store: s}, nil
}

// NewStoreForTest creates a Store with the provided rueidis client.
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{Store: redis.NewStoreForTest(c)}
}

// SearchList performs paginated search. valkey-search rejects bare FT.SEARCH
// without KNN, so query="*" falls back to SCAN + HGETALL in key order.
func (s *Store) SearchList(
	ctx context.Context, index, query string, offset, limit int, fields []string,
) (*db.SearchResult, error) {
	if query == "*" {
		return s.scanList(ctx, index, offset, limit, fields)
	}
	return s.Store.SearchList(ctx, index, query, offset, limit, fields)
}

// SearchCount returns document count, via SCAN for query="*".
func (s *Store) SearchCount(ctx context.Context, index, query string) (int, error) {
	if query == "*" {
		keys, err := s.Scan(ctx, indexToKeyPrefix(index)+"*")
		if err != nil {
			return 0, fmt.Errorf("scan for count: %w", err)
		}
		return len(keys), nil
	}
	return s.Store.SearchCount(ctx, index, query)
}

func (s *Store) scanList(
	ctx context.Context, index string, offset, limit int, fields []string,
) (*db.SearchResult, error) {
	keys, err := s.Scan(ctx, indexToKeyPrefix(index)+"*")
	if err != nil {
		return nil, fmt.Errorf("scan for list: %w", err)
	}

	sort.Strings(keys)

	total := len(keys)
	if offset >= total {
		return &db.SearchResult{Total: total}, nil
	}
	pageKeys := keys[offset:min(offset+limit, total)]

	hashes, err := s.HGetAllMulti(ctx, pageKeys)
	if err != nil {
		return nil, fmt.Errorf("fetch for list: %w", err)
	}

	entries := make([]db.SearchEntry, 0, len(pageKeys))
	for i, h := range hashes {
		// Deleted between SCAN and HGETALL.
		if len(h) == 0 {
			continue
		}
		entries = append(entries, db.SearchEntry{Key: pageKeys[i], Fields: project(h, fields)})
	}

	return &db.SearchResult{Total: total, Entries: entries}, nil
}

func project(h map[string]string, fields []string) map[string]string {
	if len(fields) == 0 {
		return h
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if v, ok := h[f]; ok {
			out[f] = v
		}
	}
	return out
}

// indexToKeyPrefix converts index name to a SCAN prefix.
// "qaindex:pcaf_motor_vehicle_qa:idx" -> "qaindex:pcaf_motor_vehicle_qa:"
func indexToKeyPrefix(index string) string {
	if strings.HasSuffix(index, ":idx") {
		return index[:len(index)-3]
	}
	return index + ":"
}
