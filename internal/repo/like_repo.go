// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Like model.
//
// Error semantics:
//   - A second like for the same (post_id, user_id) hits the unique index and
//     is returned as ErrDuplicate.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/k-kitchen/internal/domain"
)

// CreateLike records that userID liked postID.
func CreateLike(ctx context.Context, db *gorm.DB, postID, userID string) error {
	l := &domain.Like{
		ID:        uuid.NewString(),
		PostID:    postID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// DeleteLike removes userID's like on postID. It returns ErrNotFound when
// there was nothing to remove.
func DeleteLike(ctx context.Context, db *gorm.DB, postID, userID string) error {
	res := db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&domain.Like{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// HasLiked reports whether userID has liked postID.
func HasLiked(ctx context.Context, db *gorm.DB, postID, userID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&n).Error
	return n > 0, err
}
