package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jask/policyqa/internal/database"
)

// MaintenanceService houses destructive actions on the local history.
type MaintenanceService struct {
	DB *sql.DB
}

// Reset wipes stored queries and uploads. It keeps the schema intact.
func (s *MaintenanceService) Reset(ctx context.Context) error {
	if s.DB == nil {
		return fmt.Errorf("maintenance: %w", ErrHistoryDisabled)
	}
	if err := database.WithTx(s.DB, func(tx *sql.Tx) error {
		for _, t := range []string{"queries", "uploads"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("reset table %s: %w", t, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	_, _ = s.DB.ExecContext(ctx, "VACUUM")
	return nil
}
