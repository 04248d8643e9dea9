package source

// dberrors.go maps raw database driver errors to user-safe messages.
// Driver errors can leak hostnames, usernames, and internal addresses, so
// the adapter never returns one verbatim: the original error is logged and
// the caller receives only the mapped category.

import (
	"errors"
	"log/slog"
	"strings"
)

// dbErrorPatterns maps technical driver error fragments (case-insensitive)
// to safe messages. The first matching pattern wins, so specific patterns
// come before general ones.
var dbErrorPatterns = []struct {
	pattern string
	message string
}{
	{"access denied", "database authentication failed: check the username and password"},
	{"password authentication failed", "database authentication failed: check the username and password"},
	{"unknown database", "the requested database does not exist"},
	{"does not exist", "the requested database object does not exist"},
	{"connection refused", "could not connect to the database server"},
	{"no such host", "could not resolve the database host"},
	{"connection reset", "the database connection was interrupted"},
	{"i/o timeout", "the database did not respond in time"},
	{"context deadline exceeded", "the database query timed out"},
	{"timeout", "the database did not respond in time"},
}

// dbErrorDefault covers anything no pattern recognizes.
const dbErrorDefault = "the database request failed"

// sanitizeDBError logs the raw driver error and returns a replacement
// carrying only a user-safe message. Errors that already originate in this
// package (validation failures) pass through untouched.
func sanitizeDBError(err error) error {
	if err == nil {
		return nil
	}

	slog.Error("live database import failed", "error", err)

	lowered := strings.ToLower(err.Error())
	for _, ep := range dbErrorPatterns {
		if strings.Contains(lowered, ep.pattern) {
			return errors.New(ep.message)
		}
	}
	return errors.New(dbErrorDefault)
}
