package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/xuri/excelize/v2"

	"github.com/jask/policyqa/internal/database/repository"
)

var (
	ErrHistoryDisabled = errors.New("history is disabled")
	ErrQueryNotFound   = errors.New("query not found")
)

// HistoryService reads the local query and upload history.
type HistoryService struct {
	Queries    *repository.QueryRepo
	UploadRepo *repository.UploadRepo
}

// ScoredRecord is a history row with its distance to a probe text, in [0,1].
type ScoredRecord struct {
	Record   repository.QueryRecord
	Distance float64
}

func (s *HistoryService) Recent(ctx context.Context, limit int) ([]repository.QueryRecord, error) {
	if s == nil || s.Queries == nil {
		return nil, ErrHistoryDisabled
	}
	return s.Queries.List(ctx, limit)
}

// Get looks up one stored query by id.
func (s *HistoryService) Get(ctx context.Context, id string) (repository.QueryRecord, error) {
	if s == nil || s.Queries == nil {
		return repository.QueryRecord{}, ErrHistoryDisabled
	}
	rec, err := s.Queries.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return repository.QueryRecord{}, err
	}
	if rec == nil {
		return repository.QueryRecord{}, fmt.Errorf("%w: %s", ErrQueryNotFound, id)
	}
	return *rec, nil
}

// Uploads lists completed uploads, newest first.
func (s *HistoryService) Uploads(ctx context.Context, limit int) ([]repository.UploadRecord, error) {
	if s == nil || s.UploadRepo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.UploadRepo.List(ctx, limit)
}

// Similar ranks stored queries by normalized edit distance to text.
// Ties keep recency order.
func (s *HistoryService) Similar(ctx context.Context, text string, limit int) ([]ScoredRecord, error) {
	if s == nil || s.Queries == nil {
		return nil, ErrHistoryDisabled
	}
	all, err := s.Queries.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	probe := normalizeQuery(text)
	out := make([]ScoredRecord, 0, len(all))
	for _, rec := range all {
		out = append(out, ScoredRecord{Record: rec, Distance: queryDistance(probe, normalizeQuery(rec.QueryText))})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func normalizeQuery(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// queryDistance is 0 for equal or contained texts and 1 for nothing in common.
func queryDistance(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}
	if a != "" && b != "" && (strings.Contains(a, b) || strings.Contains(b, a)) {
		return 0
	}
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(longest)
}

const exportSheet = "Queries"

// ExportXLSX writes every stored query as a workbook to w and returns the row count.
func (s *HistoryService) ExportXLSX(ctx context.Context, w io.Writer) (int, error) {
	recs, err := s.Recent(ctx, 0)
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if _, err := f.NewSheet(exportSheet); err != nil {
		return 0, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return 0, err
	}
	idx, err := f.GetSheetIndex(exportSheet)
	if err != nil {
		return 0, err
	}
	f.SetActiveSheet(idx)

	headers := []string{"Asked At (UTC)", "Query", "Decision", "Justification", "Policy Clauses", "Request ID"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheet, cell, h)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(exportSheet, cell, v)
		}
		write(1, r.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
		write(2, r.QueryText)
		write(3, r.Decision)
		write(4, r.Justification)
		write(5, strings.Join(r.PolicyClauses, "\n"))
		if r.RequestID != nil {
			write(6, *r.RequestID)
		}
		row++
	}

	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("write xlsx: %w", err)
	}
	return len(recs), nil
}
