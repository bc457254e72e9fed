package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/k-kitchen/internal/domain"
	"github.com/tbourn/k-kitchen/internal/repo"
)

func TestToggleLike(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if err := repo.CreatePost(ctx, db, &domain.Post{ID: "p1", Title: "t", AuthorID: "mina", Likes: 5, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("seed post: %v", err)
	}
	svc := &LikeService{DB: db}

	steps := []struct {
		user      string
		wantLiked bool
		wantLikes int
	}{
		{"u1", true, 6},
		{"u2", true, 7},
		{"u1", false, 6},
		{"u1", true, 7},
	}
	for i, s := range steps {
		liked, likes, err := svc.Toggle(ctx, s.user, "p1")
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if liked != s.wantLiked || likes != s.wantLikes {
			t.Fatalf("step %d: got (%v,%d) want (%v,%d)", i, liked, likes, s.wantLiked, s.wantLikes)
		}
	}
}

func TestToggleLike_MissingPost(t *testing.T) {
	svc := &LikeService{DB: newTestDB(t)}
	if _, _, err := svc.Toggle(context.Background(), "u1", "nope"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestLikeDelta(t *testing.T) {
	disk := errors.New("disk I/O error")
	cases := []struct {
		name    string
		had     bool
		err     error
		want    int
		wantErr error
	}{
		{"like", false, nil, 1, nil},
		{"unlike", true, nil, -1, nil},
		{"concurrent like won", false, repo.ErrDuplicate, 0, nil},
		{"concurrent unlike won", true, repo.ErrNotFound, 0, nil},
		{"create failed", false, disk, 0, disk},
		{"delete failed", true, disk, 0, disk},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := likeDelta(tc.had, tc.err)
			if got != tc.want || !errors.Is(err, tc.wantErr) {
				t.Fatalf("likeDelta(%v, %v) = %d, %v; want %d, %v", tc.had, tc.err, got, err, tc.want, tc.wantErr)
			}
		})
	}
}

func TestToggleLike_RecordsSpan(t *testing.T) {
	rec := installRecorder(t)
	db := newTestDB(t)
	ctx := context.Background()
	if err := repo.CreatePost(ctx, db, &domain.Post{ID: "p1", Title: "t", AuthorID: "mina", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("seed post: %v", err)
	}
	if _, _, err := (&LikeService{DB: db}).Toggle(ctx, "u1", "p1"); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	found := false
	for _, s := range rec.Ended() {
		if s.Name() == "Toggle" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no Toggle span recorded")
	}
}
