package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/k-kitchen/internal/domain"
)

// GetCacheEntry returns the value stored under key or ErrNotFound.
func GetCacheEntry(ctx context.Context, db *gorm.DB, key string) (string, error) {
	var e domain.CacheEntry
	if err := db.WithContext(ctx).Where("key = ?", key).First(&e).Error; err != nil {
		return "", err
	}
	return e.Value, nil
}

// PutCacheEntry inserts or replaces the value under key.
func PutCacheEntry(ctx context.Context, db *gorm.DB, key, value string) error {
	e := &domain.CacheEntry{Key: key, Value: value}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(e).Error
}

// DeleteCacheEntry removes key. Deleting a missing key is not an error.
func DeleteCacheEntry(ctx context.Context, db *gorm.DB, key string) error {
	return db.WithContext(ctx).Where("key = ?", key).Delete(&domain.CacheEntry{}).Error
}

// CacheKeys lists the keys starting with prefix, in key order.
func CacheKeys(ctx context.Context, db *gorm.DB, prefix string) ([]string, error) {
	var keys []string
	tx := db.WithContext(ctx).Model(&domain.CacheEntry{})
	if prefix != "" {
		esc := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(prefix)
		tx = tx.Where(`key LIKE ? ESCAPE '\'`, esc+"%")
	}
	err := tx.Order("key").Pluck("key", &keys).Error
	return keys, err
}
