package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/k-kitchen/internal/repo"
)

// LikeService flips likes on posts.
type LikeService struct {
	// DB is the database handle used for all like operations.
	DB *gorm.DB
}

// Toggle likes postID for userID, or removes the like if one exists. The
// post's counter moves with it inside one transaction. It returns the new
// state and the post's like count.
func (s *LikeService) Toggle(ctx context.Context, userID, postID string) (liked bool, likes int, err error) {
	ctx, span := otel.Tracer("services/LikeService").Start(ctx, "Toggle",
		trace.WithAttributes(attribute.String("post.id", postID)),
	)
	defer span.End()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetPost(ctx, tx, postID); err != nil {
			if isNotFound(err) {
				return ErrPostNotFound
			}
			return err
		}

		had, err := repo.HasLiked(ctx, tx, postID, userID)
		if err != nil {
			return err
		}
		var writeErr error
		if had {
			writeErr = repo.DeleteLike(ctx, tx, postID, userID)
		} else {
			writeErr = repo.CreateLike(ctx, tx, postID, userID)
		}
		delta, err := likeDelta(had, writeErr)
		if err != nil {
			return err
		}
		if delta != 0 {
			if err := repo.AddLikes(ctx, tx, postID, delta); err != nil {
				return err
			}
		}

		p, err := repo.GetPost(ctx, tx, postID)
		if err != nil {
			return err
		}
		liked, likes = !had, p.Likes
		return nil
	})
	if err != nil {
		span.RecordError(err)
	}
	return liked, likes, err
}

// likeDelta is the counter change after a like row write. A concurrent
// toggle that already removed or created the row has moved the counter.
func likeDelta(had bool, writeErr error) (int, error) {
	switch {
	case writeErr == nil && had:
		return -1, nil
	case writeErr == nil:
		return 1, nil
	case had && isNotFound(writeErr):
		return 0, nil
	case !had && isDuplicate(writeErr):
		return 0, nil
	}
	return 0, writeErr
}
