// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Post model.
//
// The repository follows a "thin" approach: it performs persistence and
// simple query composition, leaving business rules to the services package.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/k-kitchen/internal/domain"
)

// CreatePost inserts p. A missing ID or CreatedAt is filled in.
func CreatePost(ctx context.Context, db *gorm.DB, p *domain.Post) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(p).Error
}

// GetPost loads a post by id.
func GetPost(ctx context.Context, db *gorm.DB, id string) (*domain.Post, error) {
	var p domain.Post
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// postsQuery scopes the posts table by an optional case-insensitive search
// over title, description and scenario name.
func postsQuery(ctx context.Context, db *gorm.DB, q string) *gorm.DB {
	tx := db.WithContext(ctx).Model(&domain.Post{})
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(scenario_name) LIKE ?", like, like, like)
	}
	return tx
}

// CountPosts returns the number of posts matching q.
func CountPosts(ctx context.Context, db *gorm.DB, q string) (int64, error) {
	var total int64
	err := postsQuery(ctx, db, q).Count(&total).Error
	return total, err
}

// ListPostsPage returns one page of posts matching q, newest first.
func ListPostsPage(ctx context.Context, db *gorm.DB, q string, offset, limit int) ([]domain.Post, error) {
	var out []domain.Post
	err := postsQuery(ctx, db, q).
		Order("created_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// RecentAuthorIDs returns the author ids of the newest n posts, newest first.
// Ids may repeat.
func RecentAuthorIDs(ctx context.Context, db *gorm.DB, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Post{}).
		Order("created_at desc, id desc").
		Limit(n).
		Pluck("author_id", &ids).Error
	return ids, err
}

// AddLikes adjusts a post's like counter by delta, never below zero.
func AddLikes(ctx context.Context, db *gorm.DB, postID string, delta int) error {
	res := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("id = ?", postID).
		Update("likes", gorm.Expr("MAX(likes + ?, 0)", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetBoosted sets a post's boost flag.
func SetBoosted(ctx context.Context, db *gorm.DB, postID string, boosted bool) error {
	res := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("id = ?", postID).
		Update("is_boosted", boosted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
