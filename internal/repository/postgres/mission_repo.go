package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mthorne/provincia/api/internal/model"
	"github.com/mthorne/provincia/api/pkg/combat"
)

// MissionRepo handles mission, battle report, and away-army database operations.
type MissionRepo struct {
	db *sql.DB
}

// NewMissionRepo creates a MissionRepo.
func NewMissionRepo(db *sql.DB) *MissionRepo {
	return &MissionRepo{db: db}
}

// CreateRejected records a mission that failed validation. Rejections are part
// of the audit trail even though nothing was mutated.
func (r *MissionRepo) CreateRejected(ctx context.Context, m *model.Mission) (*model.Mission, error) {
	compJSON, err := json.Marshal(m.Composition)
	if err != nil {
		return nil, fmt.Errorf("marshal composition: %w", err)
	}
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO missions (attacker_id, defender_id, mission_type, composition, status, reject_reason)
		 VALUES ($1, $2, $3, $4, 'rejected', $5)
		 RETURNING id, submitted_at`,
		m.AttackerID, m.DefenderID, m.Type, compJSON, m.RejectReason,
	).Scan(&m.ID, &m.SubmittedAt)
	if err != nil {
		return nil, fmt.Errorf("create rejected mission: %w", err)
	}
	m.Status = model.MissionRejected
	return m, nil
}

// CommitResolution persists one resolved mission as a single transaction: both
// province ledgers, the mission row, the battle report, and the away-army
// entry. Either everything lands or nothing does; a crash mid-resolution is
// retried from scratch with no partial application.
func (r *MissionRepo) CommitResolution(ctx context.Context, attacker, defender *model.Province, mission *model.Mission, report *model.BattleReport, away *model.ArmyAway) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := execSaveLedger(ctx, tx, attacker); err != nil {
		return fmt.Errorf("save attacker ledger: %w", err)
	}
	if err := execSaveLedger(ctx, tx, defender); err != nil {
		return fmt.Errorf("save defender ledger: %w", err)
	}

	compJSON, err := json.Marshal(mission.Composition)
	if err != nil {
		return fmt.Errorf("marshal composition: %w", err)
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO missions (attacker_id, defender_id, mission_type, composition, status, resolved_at)
		 VALUES ($1, $2, $3, $4, 'resolved', now())
		 RETURNING id, submitted_at, resolved_at`,
		mission.AttackerID, mission.DefenderID, mission.Type, compJSON,
	).Scan(&mission.ID, &mission.SubmittedAt, &mission.ResolvedAt)
	if err != nil {
		return fmt.Errorf("insert mission: %w", err)
	}
	mission.Status = model.MissionResolved
	report.MissionID = mission.ID
	away.MissionID = mission.ID

	attCasJSON, err := json.Marshal(report.AttackerCasualties)
	if err != nil {
		return fmt.Errorf("marshal attacker casualties: %w", err)
	}
	defCasJSON, err := json.Marshal(report.DefenderCasualties)
	if err != nil {
		return fmt.Errorf("marshal defender casualties: %w", err)
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO battle_reports (mission_id, attacker_id, defender_id, victory,
		     attacker_casualties, defender_casualties, gold_stolen,
		     land_conquered, land_wasted, buildings_destroyed, narrative)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at`,
		report.MissionID, report.AttackerID, report.DefenderID, report.Victory,
		attCasJSON, defCasJSON, report.GoldStolen,
		report.LandConquered, report.LandWasted, report.BuildingsDestroyed, report.Narrative,
	).Scan(&report.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert battle report: %w", err)
	}

	awayJSON, err := json.Marshal(away.Composition)
	if err != nil {
		return fmt.Errorf("marshal away composition: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO army_away (mission_id, province_id, composition, turns_until_return)
		 VALUES ($1, $2, $3, $4)`,
		away.MissionID, away.ProvinceID, awayJSON, away.TurnsUntilReturn)
	if err != nil {
		return fmt.Errorf("insert army away: %w", err)
	}

	return tx.Commit()
}

// FindReport returns the battle report for a mission, or nil if not found.
func (r *MissionRepo) FindReport(ctx context.Context, missionID string) (*model.BattleReport, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT mission_id, attacker_id, defender_id, victory,
		        attacker_casualties, defender_casualties, gold_stolen,
		        land_conquered, land_wasted, buildings_destroyed, narrative, created_at
		 FROM battle_reports WHERE mission_id = $1`, missionID)
	rep, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find report: %w", err)
	}
	return rep, nil
}

// ListReportsByProvince returns reports where the province fought on either
// side, most recent first.
func (r *MissionRepo) ListReportsByProvince(ctx context.Context, provinceID string, limit int) ([]model.BattleReport, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT mission_id, attacker_id, defender_id, victory,
		        attacker_casualties, defender_casualties, gold_stolen,
		        land_conquered, land_wasted, buildings_destroyed, narrative, created_at
		 FROM battle_reports
		 WHERE attacker_id = $1 OR defender_id = $1
		 ORDER BY created_at DESC LIMIT $2`, provinceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []model.BattleReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, *rep)
	}
	return reports, rows.Err()
}

// LandLostSince sums acres lost by a defender across all battles after the
// cutoff, the input to the defeat-protection trigger.
func (r *MissionRepo) LandLostSince(ctx context.Context, defenderID string, since time.Time) (int, error) {
	var lost int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(land_conquered + land_wasted), 0)
		 FROM battle_reports
		 WHERE defender_id = $1 AND created_at > $2`,
		defenderID, since,
	).Scan(&lost)
	if err != nil {
		return 0, fmt.Errorf("land lost since: %w", err)
	}
	return lost, nil
}

// ListAway returns a province's armies currently out on missions.
func (r *MissionRepo) ListAway(ctx context.Context, provinceID string) ([]model.ArmyAway, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT mission_id, province_id, composition, turns_until_return
		 FROM army_away WHERE province_id = $1 ORDER BY turns_until_return`, provinceID)
	if err != nil {
		return nil, fmt.Errorf("list away armies: %w", err)
	}
	defer rows.Close()

	var armies []model.ArmyAway
	for rows.Next() {
		a, err := scanAway(rows)
		if err != nil {
			return nil, fmt.Errorf("scan away army: %w", err)
		}
		armies = append(armies, *a)
	}
	return armies, rows.Err()
}

// AdvanceReturns decrements every away army's return counter and merges the
// ones that reached zero back into their home garrison, atomically. Returns
// the stacks that came home. Driven by the external turn clock.
func (r *MissionRepo) AdvanceReturns(ctx context.Context) ([]model.ArmyAway, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE army_away SET turns_until_return = turns_until_return - 1`); err != nil {
		return nil, fmt.Errorf("decrement returns: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT mission_id, province_id, composition, turns_until_return
		 FROM army_away WHERE turns_until_return <= 0`)
	if err != nil {
		return nil, fmt.Errorf("select returned armies: %w", err)
	}
	var returned []model.ArmyAway
	for rows.Next() {
		a, err := scanAway(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan returned army: %w", err)
		}
		returned = append(returned, *a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, a := range returned {
		var armyJSON []byte
		home := combat.Army{}
		if err := tx.QueryRowContext(ctx,
			`SELECT army_home FROM provinces WHERE id = $1 FOR UPDATE`, a.ProvinceID,
		).Scan(&armyJSON); err != nil {
			return nil, fmt.Errorf("lock province %s: %w", a.ProvinceID, err)
		}
		if len(armyJSON) > 0 {
			if err := json.Unmarshal(armyJSON, &home); err != nil {
				return nil, fmt.Errorf("unmarshal home army: %w", err)
			}
		}
		home.Add(a.Composition)
		merged, err := json.Marshal(home)
		if err != nil {
			return nil, fmt.Errorf("marshal merged army: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE provinces SET army_home = $1, updated_at = now() WHERE id = $2`,
			merged, a.ProvinceID); err != nil {
			return nil, fmt.Errorf("merge returned army: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM army_away WHERE mission_id = $1`, a.MissionID); err != nil {
			return nil, fmt.Errorf("delete away entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit returns: %w", err)
	}
	return returned, nil
}

func scanReport(row rowScanner) (*model.BattleReport, error) {
	var rep model.BattleReport
	var attCasJSON, defCasJSON []byte
	err := row.Scan(
		&rep.MissionID, &rep.AttackerID, &rep.DefenderID, &rep.Victory,
		&attCasJSON, &defCasJSON, &rep.GoldStolen,
		&rep.LandConquered, &rep.LandWasted, &rep.BuildingsDestroyed, &rep.Narrative, &rep.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rep.AttackerCasualties = combat.Army{}
	rep.DefenderCasualties = combat.Army{}
	if len(attCasJSON) > 0 {
		if err := json.Unmarshal(attCasJSON, &rep.AttackerCasualties); err != nil {
			return nil, fmt.Errorf("unmarshal attacker casualties: %w", err)
		}
	}
	if len(defCasJSON) > 0 {
		if err := json.Unmarshal(defCasJSON, &rep.DefenderCasualties); err != nil {
			return nil, fmt.Errorf("unmarshal defender casualties: %w", err)
		}
	}
	return &rep, nil
}

func scanAway(row rowScanner) (*model.ArmyAway, error) {
	var a model.ArmyAway
	var compJSON []byte
	if err := row.Scan(&a.MissionID, &a.ProvinceID, &compJSON, &a.TurnsUntilReturn); err != nil {
		return nil, err
	}
	a.Composition = combat.Army{}
	if len(compJSON) > 0 {
		if err := json.Unmarshal(compJSON, &a.Composition); err != nil {
			return nil, fmt.Errorf("unmarshal away composition: %w", err)
		}
	}
	return &a, nil
}
