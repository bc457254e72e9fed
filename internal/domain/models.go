// Package domain defines the feed model: personas, catalog products, tags,
// and the persisted posts, likes, and cache rows built from them. Persisted
// types are mapped with GORM; nested values are stored as JSON columns.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Difficulty grades how hard a post's dish is to cook.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Post is a generated social post. Tags keep detection order. The generator
// never mutates a Post after assembly; Likes and IsBoosted may change later.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - AuthorID: denormalized persona id (indexed) used for recency queries.
//   - Author, Tags, RecipeEssentials: JSON columns holding the embedded values.
//   - ImageURL: data URI of the generated scene image.
//   - AudioURL / CinemagraphEffect: set only for cinemagraph posts.
//   - ScenarioName: which meal scenario produced the post.
type Post struct {
	ID                string            `json:"id"                           gorm:"type:char(36);primaryKey"`
	Title             string            `json:"title"                        gorm:"type:varchar(255);not null"`
	Description       string            `json:"description"                  gorm:"type:text;not null"`
	AuthorID          string            `json:"author_id"                    gorm:"type:varchar(64);not null;index:idx_posts_author"`
	Author            Author            `json:"author"                       gorm:"type:text;serializer:json"`
	ImageURL          string            `json:"image_url"                    gorm:"type:text"`
	VideoURL          string            `json:"video_url,omitempty"          gorm:"type:text"`
	AudioURL          string            `json:"audio_url,omitempty"          gorm:"type:text"`
	Tags              []Tag             `json:"tags"                         gorm:"type:text;serializer:json"`
	RecipeEssentials  []RecipeEssential `json:"recipe_essentials,omitempty"  gorm:"type:text;serializer:json"`
	Difficulty        Difficulty        `json:"difficulty,omitempty"         gorm:"type:varchar(16)"`
	Likes             int               `json:"likes"                        gorm:"not null;default:0"`
	IsRecipe          bool              `json:"is_recipe"`
	IsCinemagraph     bool              `json:"is_cinemagraph"`
	CinemagraphEffect string            `json:"cinemagraph_effect,omitempty" gorm:"type:varchar(32)"`
	IsBoosted         bool              `json:"is_boosted"`
	ScenarioName      string            `json:"scenario_name,omitempty"      gorm:"type:varchar(128)"`
	CreatedAt         time.Time         `json:"created_at"                   gorm:"index:idx_posts_created"`
	UpdatedAt         time.Time         `json:"updated_at"`
	DeletedAt         gorm.DeletedAt    `json:"-"                            gorm:"index"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "posts" }

// Like records that a user liked a post. One row per (post, user).
type Like struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	PostID    string    `json:"post_id"    gorm:"type:char(36);not null;uniqueIndex:ux_like_post_user"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;index;uniqueIndex:ux_like_post_user"`
	CreatedAt time.Time `json:"created_at"`

	Post Post `json:"-" gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Like.
func (Like) TableName() string { return "likes" }

// CacheEntry is a flat key/value row backing the durable avatar tier when
// SQLite is selected as the store.
type CacheEntry struct {
	Key       string    `gorm:"type:varchar(255);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the database table name for CacheEntry.
func (CacheEntry) TableName() string { return "cache_entries" }
