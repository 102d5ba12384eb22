package repository

import (
	"context"
	"database/sql"
)

// UploadRepo handles upload records.
type UploadRepo struct {
	db *sql.DB
}

func NewUploadRepo(db *sql.DB) *UploadRepo { return &UploadRepo{db: db} }

func (r *UploadRepo) Insert(ctx context.Context, u UploadRecord) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO uploads(id, file_name, media_type, size_bytes, request_id, message, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?);
	`, u.ID, u.FileName, u.MediaType, u.SizeBytes, u.RequestID, u.Message, u.CreatedAt)
	return err
}

// List returns the most recent uploads first. limit <= 0 means no limit.
func (r *UploadRepo) List(ctx context.Context, limit int) ([]UploadRecord, error) {
	query := "SELECT id, file_name, media_type, size_bytes, request_id, message, created_at FROM uploads ORDER BY created_at DESC, rowid DESC"
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
	var out []UploadRecord
	for rows.Next() {
		var (
			u         UploadRecord
			requestID sql.NullString
			message   sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.FileName, &u.MediaType, &u.SizeBytes, &requestID, &message, &u.CreatedAt); err != nil {
			return nil, err
		}
		if requestID.Valid {
			s := requestID.String
			u.RequestID = &s
		}
		if message.Valid {
			s := message.String
			u.Message = &s
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
