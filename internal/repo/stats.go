// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains the aggregate query behind the feed's
// weak ETag.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// PostsStats returns the number of posts matching q and the greatest
// UpdatedAt among them. maxUpdatedAt is nil when nothing matches.
func PostsStats(ctx context.Context, db *gorm.DB, q string) (count int64, maxUpdatedAt *time.Time, err error) {
	if err = postsQuery(ctx, db, q).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = postsQuery(ctx, db, q).Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
