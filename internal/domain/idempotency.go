package domain

import (
	"strings"
	"time"
)

// Idempotency records the outcome of a generation request keyed by
// (user_id, scope, key), so a retried request returns the posts it already
// produced instead of generating (and paying for) new ones.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:1"`
	Scope     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:3"`
	PostIDs   string    `gorm:"type:TEXT NOT NULL"` // comma separated, emission order
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }

// PostIDList splits PostIDs back into ids.
func (i Idempotency) PostIDList() []string {
	if i.PostIDs == "" {
		return nil
	}
	return strings.Split(i.PostIDs, ",")
}
