package repository

import (
	"strings"
	"time"
)

// QueryRecord is a stored query and the answer it received.
type QueryRecord struct {
	ID            string
	QueryText     string
	Decision      string
	Justification string
	PolicyClauses []string
	ParsedInfo    map[string]any
	RequestID     *string
	CreatedAt     time.Time
}

// Title is the query text collapsed onto one line.
func (q QueryRecord) Title() string {
	return strings.Join(strings.Fields(q.QueryText), " ")
}

// UploadRecord is a completed upload.
type UploadRecord struct {
	ID        string
	FileName  string
	MediaType string
	SizeBytes int64
	RequestID *string
	Message   *string
	CreatedAt time.Time
}
