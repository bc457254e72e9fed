// Package services defines the business logic of the feed: the post
// generation pipeline, batch generation, listing, likes and photo analysis.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/k-kitchen/internal/repo"
)

var (
	// ErrNoAuthors is returned by a tick whose persona pool is empty.
	ErrNoAuthors = errors.New("no authors available")

	// ErrNoScenarios is returned when the catalog holds no scenarios.
	ErrNoScenarios = errors.New("no scenarios configured")

	// ErrEmptyImage is returned when the scene generator succeeds with no payload.
	ErrEmptyImage = errors.New("scene generator returned an empty image")

	// ErrPostNotFound indicates that the requested post does not exist.
	ErrPostNotFound = errors.New("post not found")

	// ErrPersonaNotFound indicates that no persona has the requested id.
	ErrPersonaNotFound = errors.New("persona not found")

	// ErrInvalidCount is returned when a batch size is outside 1..MaxBatch.
	ErrInvalidCount = errors.New("invalid batch size")

	// ErrEmptyImageInput is returned when a photo to analyze is blank.
	ErrEmptyImageInput = errors.New("image is empty")

	// ErrAnalyzeUnavailable is returned when no vision collaborator is wired.
	ErrAnalyzeUnavailable = errors.New("image analysis unavailable")
)

func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	if errors.Is(err, repo.ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
