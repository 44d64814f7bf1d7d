// Package core provides the query service behind the HTTP API.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// Errors wrapping a known sentinel are classified with errors.Is; anything else
// is matched against technical error text.
//
// # Query Errors (QRY001-QRY099)
//
//	QRY001 - Unknown data access: No data access with this id is configured
//	         Action: Check the id against GET /api/data-access
//	         Sentinel: cube.ErrUnknownDataAccess
//
//	QRY002 - Invalid parameter: A query parameter is not declared or malformed
//	         Action: Use only the parameters listed for the data access
//	         Sentinel: cube.ErrInvalidParameter
//
//	QRY003 - System busy: Too many queries in progress
//	         Action: Please wait a moment and try again
//	         Sentinel: ErrTooManyQueries
//
//	QRY004 - Invalid sort: A sort column is malformed or out of range
//	         Action: Use sortBy=<column><A|D>, e.g. 1D
//	         Sentinel: ErrInvalidSort
//
// # Flattening Errors (FLT001-FLT099)
//
//	FLT001 - Out of range: Row or column outside the result
//	         Action: Check the page bounds of the request
//	         Sentinel: table.ErrInvalidRow, table.ErrInvalidColumn
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - Unknown output type: The requested output type is not supported
//	         Action: Use one of csv, json, html, arrow, parquet
//	         Sentinel: export.ErrUnknownFormat
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled: Sentinel context.Canceled
//	REQ002 - Request timeout: Sentinel context.DeadlineExceeded
//
// # Database Errors (DB004-DB099)
//
//	DB004 - Connection refused    Patterns: "connection refused"
//	DB005 - Connection reset      Patterns: "connection reset"
//	DB006 - Timeout               Patterns: "timeout"
//	DB007 - Deadlock              Patterns: "deadlock"
//	DB008 - Missing relation      Patterns: "does not exist"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited        Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Support staff should check application logs
// for the original technical error when users report ERR000.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/cubetab/internal/cube"
	"github.com/JonMunkholm/cubetab/internal/export"
	"github.com/JonMunkholm/cubetab/internal/table"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorSentinel maps errors matched by errors.Is to a user message.
type errorSentinel struct {
	target error
	msg    UserMessage
}

var (
	msgUnknownDataAccess = UserMessage{
		Message: "No data access with this id is configured",
		Action:  "Check the id against the data access listing",
		Code:    "QRY001",
	}
	msgInvalidParameter = UserMessage{
		Message: "A query parameter is not declared or malformed",
		Action:  "Use only the parameters listed for the data access",
		Code:    "QRY002",
	}
	msgOutOfRange = UserMessage{
		Message: "Row or column outside the result",
		Action:  "Check the page bounds of the request",
		Code:    "FLT001",
	}
)

// errorSentinels are checked in order before any text pattern.
var errorSentinels = []errorSentinel{
	{cube.ErrUnknownDataAccess, msgUnknownDataAccess},
	{cube.ErrInvalidParameter, msgInvalidParameter},
	{ErrTooManyQueries, UserMessage{
		Message: "System is busy processing other queries",
		Action:  "Please wait a moment and try again",
		Code:    "QRY003",
	}},
	{ErrInvalidSort, UserMessage{
		Message: "A sort column is malformed or out of range",
		Action:  "Use sortBy=<column><A|D>, e.g. 1D",
		Code:    "QRY004",
	}},
	{table.ErrInvalidRow, msgOutOfRange},
	{table.ErrInvalidColumn, msgOutOfRange},
	{export.ErrUnknownFormat, UserMessage{
		Message: "The requested output type is not supported",
		Action:  "Use one of: " + strings.Join(export.Formats(), ", "),
		Code:    "EXP001",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Narrow the query with parameters or try again later",
		Code:    "REQ002",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Narrow the query with parameters or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "does not exist",
		msg: UserMessage{
			Message: "A configured table or column does not exist",
			Action:  "Check the catalog against the database schema",
			Code:    "DB008",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Sentinels
// are checked first, then text patterns; ERR000 is the fallback.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ue *UserError
	if errors.As(err, &ue) {
		return ue.User
	}

	for _, es := range errorSentinels {
		if errors.Is(err, es.target) {
			return es.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
