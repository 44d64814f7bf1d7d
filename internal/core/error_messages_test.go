package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/cubetab/internal/cube"
	"github.com/JonMunkholm/cubetab/internal/export"
	"github.com/JonMunkholm/cubetab/internal/table"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "wrapped unknown data access",
			err:         fmt.Errorf("lookup: %w: sales", cube.ErrUnknownDataAccess),
			wantCode:    "QRY001",
			wantMessage: "No data access with this id is configured",
		},
		{
			name:        "invalid parameter",
			err:         fmt.Errorf("%w: %q", cube.ErrInvalidParameter, "region"),
			wantCode:    "QRY002",
			wantMessage: "A query parameter is not declared or malformed",
		},
		{
			name:        "too many queries",
			err:         ErrTooManyQueries,
			wantCode:    "QRY003",
			wantMessage: "System is busy processing other queries",
		},
		{
			name:        "invalid sort",
			err:         fmt.Errorf("%w: %q", ErrInvalidSort, "xD"),
			wantCode:    "QRY004",
			wantMessage: "A sort column is malformed or out of range",
		},
		{
			name:        "row out of range",
			err:         fmt.Errorf("cell: %w", table.ErrInvalidRow),
			wantCode:    "FLT001",
			wantMessage: "Row or column outside the result",
		},
		{
			name:        "column out of range",
			err:         table.ErrInvalidColumn,
			wantCode:    "FLT001",
			wantMessage: "Row or column outside the result",
		},
		{
			name:        "unknown output type",
			err:         fmt.Errorf("%w: xlsx", export.ErrUnknownFormat),
			wantCode:    "EXP001",
			wantMessage: "The requested output type is not supported",
		},
		{
			name:        "deadline wins over timeout text",
			err:         fmt.Errorf("query timeout: %w", context.DeadlineExceeded),
			wantCode:    "REQ002",
			wantMessage: "Request timed out",
		},
		{
			name:        "cancelled",
			err:         context.Canceled,
			wantCode:    "REQ001",
			wantMessage: "Request was cancelled",
		},
		{
			name:        "connection refused maps correctly",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "DB004",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "timeout maps correctly",
			err:         errors.New("i/o timeout"),
			wantCode:    "DB006",
			wantMessage: "Operation timed out",
		},
		{
			name:        "missing relation",
			err:         errors.New(`ERROR: relation "sales" does not exist (SQLSTATE 42P01)`),
			wantCode:    "DB008",
			wantMessage: "A configured table or column does not exist",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("CONNECTION RESET by peer"),
			wantCode:    "DB005",
			wantMessage: "Database connection was interrupted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := errors.New("dial tcp: connection refused")
	result := FormatUserError(err)

	expected := "Unable to connect to database (Code: DB004). Please try again in a few moments"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "sentinel is user facing",
			err:  cube.ErrUnknownDataAccess,
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("lookup: %w", cube.ErrUnknownDataAccess)
		userErr := NewUserError(techErr)

		if userErr.Error() != "No data access with this id is configured" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, cube.ErrUnknownDataAccess) {
			t.Error("Unwrap() should expose the original error")
		}
	})

	t.Run("mapping a user error keeps its message", func(t *testing.T) {
		userErr := NewUserError(ErrTooManyQueries)
		if got := MapError(fmt.Errorf("handler: %w", userErr)); got.Code != "QRY003" {
			t.Errorf("MapError(wrapped UserError) code = %q, want QRY003", got.Code)
		}
	})
}
