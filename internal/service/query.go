package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jask/policyqa/internal/backend"
	"github.com/jask/policyqa/internal/database"
	"github.com/jask/policyqa/internal/database/repository"
)

// QueryBackend is the part of the backend client QueryService needs.
type QueryBackend interface {
	ProcessQuery(ctx context.Context, text string) (backend.Answer, error)
}

// QueryService submits queries and records answers in the history.
type QueryService struct {
	Backend QueryBackend
	Queries *repository.QueryRepo // nil when history is disabled
	Logger  *slog.Logger
}

// Ask sends text to the backend. A history write failure is logged and
// never masks the answer.
func (s *QueryService) Ask(ctx context.Context, text string) (backend.Answer, error) {
	ans, err := s.Backend.ProcessQuery(ctx, text)
	if err != nil {
		return ans, err
	}
	if s.Queries == nil {
		return ans, nil
	}
	rec := repository.QueryRecord{
		ID:            uuid.NewString(),
		QueryText:     text,
		Decision:      ans.Result.Decision,
		Justification: ans.Result.Justification,
		PolicyClauses: ans.Result.PolicyClauses,
		ParsedInfo:    ans.Result.ParsedInfo,
		CreatedAt:     database.Now(),
	}
	if ans.RequestID != "" {
		id := ans.RequestID
		rec.RequestID = &id
	}
	if err := s.Queries.Insert(ctx, rec); err != nil {
		s.logger().Warn("history.query.insert_error", "req_id", ans.RequestID, "error", err)
	}
	return ans, nil
}

func (s *QueryService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
