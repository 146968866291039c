// Package core provides the business logic for the balance reconciliation.
//
// # Error Codes Reference
//
// Technical errors are mapped to user-facing messages with a code that the
// operator can quote when asking for help.
//
// # Input Errors (FILE001-FILE099)
//
//	FILE001 - File too large: an uploaded table exceeds the size limit
//	          Patterns: "file too large", "request body too large"
//	FILE002 - Invalid CSV: the file could not be parsed as delimited text
//	          Patterns: "invalid csv"
//	FILE003 - Encoding error: the file could not be decoded
//	          Patterns: "encoding error"
//	FILE004 - No file: nothing was uploaded for a table
//	          Patterns: "no file provided"
//	FILE005 - Empty file: the table has no header row
//	          Patterns: "empty file"
//	FILE006 - Unsupported format: extension is not .csv or .xlsx
//	          Patterns: "unsupported file format"
//	FILE007 - Invalid spreadsheet: the workbook could not be opened
//	          Patterns: "invalid spreadsheet"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL004 - Missing column: a required column is absent from a table
//	         Patterns: "missing required column"
//
// # Report Errors (RPT001-RPT099)
//
//	RPT001 - Missing tables: fewer than four tables were provided
//	         Patterns: "missing input tables"
//	RPT002 - Report not found: unknown or expired report id
//	         Patterns: "report not found"
//	RPT003 - Busy: too many reconciliations are running
//	         Patterns: "too many reconciliations"
//	RPT004 - Unknown export format
//	         Patterns: "unknown export format"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - No database: the database source is not configured
//	        Patterns: "no database configured"
//	DB002 - Missing table: a source table does not exist
//	        Patterns: "does not exist"
//	DB004 - Connection refused      Patterns: "connection refused"
//	DB005 - Connection reset        Patterns: "connection reset"
//	DB006 - Timeout                 Patterns: "timeout"
//
// # Request Errors
//
//	UPL004 - Request cancelled      Patterns: "context canceled"
//	UPL005 - Request timeout        Patterns: "context deadline exceeded"
//	RATE001 - Rate limited          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Its action repeats the column names
// because a wrong export is by far the most common cause.
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so specific patterns come before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

const columnHint = "Check that the files have the correct columns (id, titulo, corto_id, fee_amount, fee_cobrado, venta_id, importe_liquidar, liquidado)"

var errorPatterns = []errorPattern{
	// Input files
	{"file too large", UserMessage{"A file exceeds the maximum upload size", "Export only the needed columns or split the file", "FILE001"}},
	{"request body too large", UserMessage{"A file exceeds the maximum upload size", "Export only the needed columns or split the file", "FILE001"}},
	{"invalid csv", UserMessage{"A file is not a valid CSV", "Ensure the file is comma- or semicolon-separated with one header row", "FILE002"}},
	{"encoding error", UserMessage{"A file contains invalid characters", "Save the file as UTF-8", "FILE003"}},
	{"no file provided", UserMessage{"No file was selected", "Select a CSV or XLSX file for each table", "FILE004"}},
	{"empty file", UserMessage{"An uploaded file is empty", "Upload a file with a header row", "FILE005"}},
	{"unsupported file format", UserMessage{"File format not supported", "Use .csv or .xlsx files", "FILE006"}},
	{"invalid spreadsheet", UserMessage{"A spreadsheet could not be opened", "Save the workbook as .xlsx and try again", "FILE007"}},

	// Validation
	{"missing required column", UserMessage{"A required column is missing", columnHint, "VAL004"}},

	// Report lifecycle
	{"missing input tables", UserMessage{"Not all four tables were provided", "Upload the shorts, registrations, sales and settlements files to start", "RPT001"}},
	{"report not found", UserMessage{"Report not found or expired", "Upload the files again to regenerate the report", "RPT002"}},
	{"too many reconciliations", UserMessage{"The system is busy with other reports", "Please wait a moment and try again", "RPT003"}},
	{"unknown export format", UserMessage{"Unknown export format", "Use csv, csv-es or xlsx", "RPT004"}},

	// Database source
	{"no database configured", UserMessage{"The database source is not configured", "Set DATABASE_URL or upload the files instead", "DB001"}},
	{"does not exist", UserMessage{"A source table was not found in the database", "Check the DB_TABLE_* settings", "DB002"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"timeout", UserMessage{"Operation timed out", "Please try again later", "DB006"}},

	// Request
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "UPL004"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try again or upload smaller files", "UPL005"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An error occurred while processing the files",
	Action:  columnHint,
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Unmatched errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern (not ERR000).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error
	User      UserMessage
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
