// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them instead of
// parsing messages. Generic codes mirror HTTP status semantics, domain codes
// name the operation that failed.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "generate_failed",
//	  "message": "generation stopped after 2 post(s): scene: quota exceeded"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeGenerateFailed     = "generate_failed"
	ErrCodeListFailed         = "list_failed"
	ErrCodeLikeFailed         = "like_failed"
	ErrCodeAnalyzeFailed      = "analyze_failed"
	ErrCodeAnalyzeUnavailable = "analyze_unavailable"
	ErrCodeCreateFailed       = "create_failed"
	ErrCodeBoostFailed        = "boost_failed"
	ErrCodeStoryUnavailable   = "story_unavailable"
)
