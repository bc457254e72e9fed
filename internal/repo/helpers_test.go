package repo

import (
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/k-kitchen/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedPost(t *testing.T, db *gorm.DB, id, authorID, title string, createdAt time.Time) *domain.Post {
	t.Helper()
	p := &domain.Post{
		ID:          id,
		Title:       title,
		Description: "desc " + title,
		AuthorID:    authorID,
		Author:      domain.Author{ID: authorID, Name: "Chef " + authorID},
		Tags:        []domain.Tag{},
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed post %s: %v", id, err)
	}
	return p
}
