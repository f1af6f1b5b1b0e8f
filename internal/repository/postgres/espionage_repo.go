package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mthorne/provincia/api/internal/model"
)

// EspionageRepo persists espionage reports.
type EspionageRepo struct {
	db *sql.DB
}

// NewEspionageRepo creates an EspionageRepo.
func NewEspionageRepo(db *sql.DB) *EspionageRepo {
	return &EspionageRepo{db: db}
}

// Create inserts an espionage report. Intel is nil on failed runs.
func (r *EspionageRepo) Create(ctx context.Context, rep *model.EspionageReport) (*model.EspionageReport, error) {
	var intelJSON []byte
	if rep.Intel != nil {
		var err error
		intelJSON, err = json.Marshal(rep.Intel)
		if err != nil {
			return nil, fmt.Errorf("marshal intel: %w", err)
		}
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO espionage_reports (attacker_id, defender_id, spies_sent, spies_lost, success, intel)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		rep.AttackerID, rep.DefenderID, rep.SpiesSent, rep.SpiesLost, rep.Success, intelJSON,
	).Scan(&rep.ID, &rep.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create espionage report: %w", err)
	}
	return rep, nil
}

// ListByProvince returns espionage runs the province initiated, most recent
// first. Targets never see reports about themselves.
func (r *EspionageRepo) ListByProvince(ctx context.Context, provinceID string, limit int) ([]model.EspionageReport, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, attacker_id, defender_id, spies_sent, spies_lost, success, intel, created_at
		 FROM espionage_reports
		 WHERE attacker_id = $1
		 ORDER BY created_at DESC LIMIT $2`, provinceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list espionage reports: %w", err)
	}
	defer rows.Close()

	var reports []model.EspionageReport
	for rows.Next() {
		var rep model.EspionageReport
		var intelJSON []byte
		if err := rows.Scan(&rep.ID, &rep.AttackerID, &rep.DefenderID,
			&rep.SpiesSent, &rep.SpiesLost, &rep.Success, &intelJSON, &rep.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan espionage report: %w", err)
		}
		if len(intelJSON) > 0 {
			rep.Intel = &model.Intel{}
			if err := json.Unmarshal(intelJSON, rep.Intel); err != nil {
				return nil, fmt.Errorf("unmarshal intel: %w", err)
			}
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}
