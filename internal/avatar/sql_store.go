package avatar

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/k-kitchen/internal/repo"
)

// SQLStore keeps the durable tier in the cache_entries table of the main
// database.
type SQLStore struct {
	DB *gorm.DB
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	v, err := repo.GetCacheEntry(ctx, s.DB, key)
	if errors.Is(err, repo.ErrNotFound) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	return repo.PutCacheEntry(ctx, s.DB, key, value)
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	return repo.DeleteCacheEntry(ctx, s.DB, key)
}

func (s *SQLStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	return repo.CacheKeys(ctx, s.DB, prefix)
}
