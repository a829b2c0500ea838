package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/kailas-cloud/dishdex/internal/db"
	"github.com/kailas-cloud/dishdex/internal/domain"
)

var dishKeyPrefix = domain.KeyPrefix + "dish:"

// kvStore is the consumer interface for the Redis lookup (ISP).
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetMulti(ctx context.Context, items []db.SetItem) error
}

// RedisLookup serves dish records stored as JSON strings at dishdex:dish:<group>.
type RedisLookup struct {
	store kvStore
}

// NewRedisLookup creates a lookup backed by a key-value store.
func NewRedisLookup(s kvStore) *RedisLookup {
	return &RedisLookup{store: s}
}

// Lookup returns the dish for group or domain.ErrNotFound.
func (l *RedisLookup) Lookup(ctx context.Context, group string) (domain.Dish, error) {
	data, err := l.store.Get(ctx, dishKey(group))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Dish{}, domain.ErrNotFound
		}
		return domain.Dish{}, fmt.Errorf("get dish %s: %w", group, err)
	}

	var rec dishRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Dish{}, fmt.Errorf("decode dish %s: %w", group, err)
	}
	return toDomain(group, rec), nil
}

// Seed writes every dish in one pipelined round-trip, in sorted group order.
func (l *RedisLookup) Seed(ctx context.Context, dishes map[string]domain.Dish) (int, error) {
	groups := make([]string, 0, len(dishes))
	for g := range dishes {
		groups = append(groups, g)
	}
	slices.Sort(groups)

	items := make([]db.SetItem, 0, len(groups))
	for _, g := range groups {
		data, err := json.Marshal(fromDomain(dishes[g]))
		if err != nil {
			return 0, fmt.Errorf("encode dish %s: %w", g, err)
		}
		items = append(items, db.SetItem{Key: dishKey(g), Value: data})
	}
	if err := l.store.SetMulti(ctx, items); err != nil {
		return 0, fmt.Errorf("seed dishes: %w", err)
	}
	return len(items), nil
}

func dishKey(group string) string { return dishKeyPrefix + group }
