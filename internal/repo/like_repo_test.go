package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/k-kitchen/internal/domain"
)

func TestLikeLifecycle(t *testing.T) {
	db := newTestDB(t, &domain.Post{}, &domain.Like{})
	seedPost(t, db, "p1", "a1", "one", time.Now().UTC())
	ctx := context.Background()

	if err := CreateLike(ctx, db, "p1", "u1"); err != nil {
		t.Fatalf("CreateLike: %v", err)
	}
	if err := CreateLike(ctx, db, "p1", "u1"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second like: expected ErrDuplicate, got %v", err)
	}
	liked, err := HasLiked(ctx, db, "p1", "u1")
	if err != nil || !liked {
		t.Fatalf("HasLiked = %v, %v", liked, err)
	}
	if err := DeleteLike(ctx, db, "p1", "u1"); err != nil {
		t.Fatalf("DeleteLike: %v", err)
	}
	if err := DeleteLike(ctx, db, "p1", "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
	if liked, _ := HasLiked(ctx, db, "p1", "u1"); liked {
		t.Fatalf("like should be gone")
	}
}

func TestCreateLike_NoTable(t *testing.T) {
	db := newTestDB(t)
	if err := CreateLike(context.Background(), db, "p1", "u1"); err == nil || errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected raw DB error, got %v", err)
	}
}
