// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides request correlation, caller identification, structured
// access logging and panic recovery. Recommended order:
//
//  1. RequestID()
//  2. UserID()
//  3. Logger()
//  4. Recovery()
//
// so that access logs and panics carry both the correlation and user ids.
package middleware

import (
	"net/http"
	"net/url"
	"regexp"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"

	userIDKey    = "userID"
	userIDHeader = "X-User-ID"

	maxQueryLogLength = 512
	redacted          = "[REDACTED]"
)

// AnonymousUser is the identity of callers that send no X-User-ID.
const AnonymousUser = "anonymous"

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9._@:\-]{1,64}$`)

// RequestID reuses an incoming X-Request-ID or generates a UUIDv4, echoes it
// on the response and stores it in the context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// UserID stores the caller identity from X-User-ID under "userID". Missing
// or malformed values become AnonymousUser; the header is not an
// authentication mechanism.
func UserID() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader(userIDHeader))
		if !userIDPattern.MatchString(uid) {
			uid = AnonymousUser
		}
		c.Set(userIDKey, uid)
		c.Next()
	}
}

// UserIDFrom returns the identity stored by UserID, or AnonymousUser.
func UserIDFrom(c *gin.Context) string {
	if v, ok := c.Get(userIDKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return AnonymousUser
}

// LogOptions tunes Logger.
type LogOptions struct {
	// SkipPaths are routes that produce no access log line (health checks,
	// metrics scrapes).
	SkipPaths []string
	// MaskQuery lists query parameters whose values are replaced in logs.
	MaskQuery []string
}

// Logger attaches a request-scoped zerolog.Logger under "logger" and writes
// one access log line per request: info for 2xx/3xx, warn for 4xx and error
// for 5xx or when handlers recorded gin errors. Bodies are never logged.
func Logger(opts LogOptions) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(opts.SkipPaths))
	for _, p := range opts.SkipPaths {
		skip[p] = struct{}{}
	}
	mask := make(map[string]struct{}, len(opts.MaskQuery))
	for _, k := range opts.MaskQuery {
		mask[strings.ToLower(k)] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := routePath(c)

		rid, _ := c.Get(requestIDKey)
		l := log.With().
			Str("request_id", asString(rid)).
			Str("user_id", UserIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("remote_ip", c.ClientIP()).
			Str("query", truncate(maskQuery(c.Request.URL.RawQuery, mask), maxQueryLogLength)).
			Int64("bytes_in", c.Request.ContentLength).
			Logger()
		c.Set("logger", &l)

		c.Next()

		if _, ok := skip[path]; ok {
			return
		}
		status := c.Writer.Status()
		ev := l.With().
			Int("status", status).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Logger()

		switch {
		case len(c.Errors) > 0:
			ev.Error().Str("errors", c.Errors.String()).Msg("request")
		case status >= 500:
			ev.Error().Msg("request")
		case status >= 400:
			ev.Warn().Msg("request")
		default:
			ev.Info().Msg("request")
		}
	}
}

// Recovery turns a panic into a JSON 500 carrying the request id and logs
// the stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid, _ := c.Get(requestIDKey)
				log.Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("request_id", asString(rid)).
					Msg("panic recovered")

				if c.Writer.Written() {
					c.AbortWithStatus(http.StatusInternalServerError)
					return
				}
				c.Header(requestIDHeader, asString(rid))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"request_id": asString(rid),
					"code":       "internal_error",
					"message":    "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or a copy of the global one.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get("logger"); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func routePath(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

// maskQuery replaces the values of masked keys. Unparseable queries are
// dropped entirely.
func maskQuery(raw string, mask map[string]struct{}) string {
	if raw == "" || len(mask) == 0 {
		return raw
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return redacted
	}
	for k := range vals {
		if _, ok := mask[strings.ToLower(k)]; ok {
			vals[k] = []string{redacted}
		}
	}
	return vals.Encode()
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate works on bytes, which is fine for logs.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
