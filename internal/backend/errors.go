package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

const maxErrorRunes = 200

var (
	ErrEmptyQuery      = errors.New("query text is empty")
	ErrNoFile          = errors.New("no file to upload")
	ErrInvalidResponse = errors.New("invalid response")
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Op        string
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: http %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.Status, e.Message)
}

// errorMessage pulls a human readable message out of an error body.
// FastAPI answers {"detail": "..."} or {"detail": [{"msg": "..."}]}, Flask {"error": "..."}.
func errorMessage(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if len(body.Detail) > 0 {
			var s string
			if json.Unmarshal(body.Detail, &s) == nil && s != "" {
				return s
			}
			var items []struct {
				Msg string `json:"msg"`
			}
			if json.Unmarshal(body.Detail, &items) == nil {
				var msgs []string
				for _, it := range items {
					if it.Msg != "" {
						msgs = append(msgs, it.Msg)
					}
				}
				if len(msgs) > 0 {
					return strings.Join(msgs, "; ")
				}
			}
		}
		if body.Error != "" {
			return body.Error
		}
	}
	msg := strings.TrimSpace(string(raw))
	if r := []rune(msg); len(r) > maxErrorRunes {
		msg = string(r[:maxErrorRunes]) + "…"
	}
	return msg
}

// Describe turns a call error into a short reason for the status line.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return fmt.Sprintf("server returned %d: %s", apiErr.Status, apiErr.Message)
		}
		return fmt.Sprintf("server returned %d", apiErr.Status)
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, ErrInvalidResponse):
		return "unexpected response from server"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "backend unreachable"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return "request failed: " + urlErr.Err.Error()
	}
	return err.Error()
}
