// Package core orchestrates imports: it routes a source descriptor to the
// right adapter, runs the import state machine, and persists the normalized
// tables through the store.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors surfaced to the HTTP boundary, which maps them to
// response statuses.
var (
	// ErrEmptyResult means the source was reachable but yielded no data rows.
	ErrEmptyResult = errors.New("import produced no data rows")

	// ErrNotFound means the referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotRefreshable means the file's source cannot be re-fetched, e.g.
	// one-shot uploads whose bytes were never retained.
	ErrNotRefreshable = errors.New("file source cannot be refreshed")
)

// UserMessage is the user-facing rendering of a technical error.
type UserMessage struct {
	Message string // what happened
	Code    string // short code for support reference
}

// errorPatterns maps technical error fragments (case-insensitive) to user
// messages. First match wins, so specific patterns come before general ones.
var errorPatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{"no data rows", UserMessage{"The source contains no data rows", "IMP001"}},
	{"too large", UserMessage{"The file exceeds the size limit", "IMP002"}},
	{"invalid excel", UserMessage{"The file is not a valid Excel workbook", "IMP003"}},
	{"not found in dump", UserMessage{"The requested table was not found in the dump", "IMP004"}},
	{"no tables found", UserMessage{"No tables could be extracted from the dump", "IMP005"}},
	{"invalid table name", UserMessage{"The table name contains invalid characters", "IMP006"}},
	{"cannot be refreshed", UserMessage{"This file was a one-shot upload and cannot be refreshed", "IMP007"}},
	{"not connected", UserMessage{"Your Microsoft account is not connected", "AUTH001"}},
	{"no active connection", UserMessage{"Your Microsoft account is not connected", "AUTH001"}},
	{"authentication failed", UserMessage{"The database rejected the credentials", "DB001"}},
	{"could not connect", UserMessage{"The database server could not be reached", "DB002"}},
	{"timed out", UserMessage{"The operation timed out", "DB003"}},
	{"did not respond in time", UserMessage{"The operation timed out", "DB003"}},
	{"not found", UserMessage{"The requested record was not found", "RES001"}},
	{"context canceled", UserMessage{"The request was cancelled", "REQ001"}},
	{"context deadline exceeded", UserMessage{"The request timed out", "REQ002"}},
}

// defaultMessage is the fallback when no pattern matches. Operators should
// check the logs for the original error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Code:    "ERR000",
}

// MapError converts a technical error to a user message by scanning the
// known patterns case-insensitively.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	lowered := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(lowered, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders the mapped message with its support code.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s)", msg.Message, msg.Code)
}
