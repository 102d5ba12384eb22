package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// QueryRepo handles stored queries.
type QueryRepo struct {
	db *sql.DB
}

func NewQueryRepo(db *sql.DB) *QueryRepo { return &QueryRepo{db: db} }

func (r *QueryRepo) Insert(ctx context.Context, q QueryRecord) error {
	clauses := q.PolicyClauses
	if clauses == nil {
		clauses = []string{}
	}
	clausesJSON, err := json.Marshal(clauses)
	if err != nil {
		return fmt.Errorf("encode clauses: %w", err)
	}
	var parsed *string
	if len(q.ParsedInfo) > 0 {
		b, err := json.Marshal(q.ParsedInfo)
		if err != nil {
			return fmt.Errorf("encode parsed info: %w", err)
		}
		s := string(b)
		parsed = &s
	}
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO queries(id, query_text, decision, justification, policy_clauses, parsed_info, request_id, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?);
	`, q.ID, q.QueryText, q.Decision, q.Justification, string(clausesJSON), parsed, q.RequestID, q.CreatedAt)
	return err
}

// List returns the most recent records first. limit <= 0 means no limit.
func (r *QueryRepo) List(ctx context.Context, limit int) ([]QueryRecord, error) {
	query := "SELECT id, query_text, decision, justification, policy_clauses, parsed_info, request_id, created_at FROM queries ORDER BY created_at DESC, rowid DESC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QueryRecord
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Get returns nil when the id is unknown.
func (r *QueryRepo) Get(ctx context.Context, id string) (*QueryRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, query_text, decision, justification, policy_clauses, parsed_info, request_id, created_at FROM queries WHERE id = ?`, id)
	q, err := scanQuery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QueryRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queries`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuery(s scanner) (QueryRecord, error) {
	var (
		q           QueryRecord
		clausesJSON string
		parsedJSON  sql.NullString
		requestID   sql.NullString
	)
	if err := s.Scan(&q.ID, &q.QueryText, &q.Decision, &q.Justification, &clausesJSON, &parsedJSON, &requestID, &q.CreatedAt); err != nil {
		return QueryRecord{}, err
	}
	if err := json.Unmarshal([]byte(clausesJSON), &q.PolicyClauses); err != nil {
		return QueryRecord{}, fmt.Errorf("decode clauses for %s: %w", q.ID, err)
	}
	if parsedJSON.Valid && parsedJSON.String != "" {
		if err := json.Unmarshal([]byte(parsedJSON.String), &q.ParsedInfo); err != nil {
			return QueryRecord{}, fmt.Errorf("decode parsed info for %s: %w", q.ID, err)
		}
	}
	if requestID.Valid {
		id := requestID.String
		q.RequestID = &id
	}
	return q, nil
}
