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

// ProvinceRepo handles province ledger database operations.
type ProvinceRepo struct {
	db *sql.DB
}

// NewProvinceRepo creates a ProvinceRepo.
func NewProvinceRepo(db *sql.DB) *ProvinceRepo {
	return &ProvinceRepo{db: db}
}

const provinceColumns = `id, owner_id, name, networth, land, buildings, gold, mana, food, turns,
	army_home, guild_id, alliances,
	protection_newbie_until, protection_defeat_until, protection_harassment_until,
	created_at, updated_at`

// Create inserts a new province at registration. Starting resources come from
// column defaults; newbie protection starts now.
func (r *ProvinceRepo) Create(ctx context.Context, ownerID, name string, newbieUntil time.Time) (*model.Province, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO provinces (owner_id, name, protection_newbie_until)
		 VALUES ($1, $2, $3)
		 RETURNING `+provinceColumns,
		ownerID, name, newbieUntil,
	)
	p, err := scanProvince(row)
	if err != nil {
		return nil, fmt.Errorf("create province: %w", err)
	}
	return p, nil
}

// FindByID returns a province by ID, or nil if not found.
func (r *ProvinceRepo) FindByID(ctx context.Context, id string) (*model.Province, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+provinceColumns+` FROM provinces WHERE id = $1`, id)
	p, err := scanProvince(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find province: %w", err)
	}
	return p, nil
}

// FindByOwner returns the province owned by a player, or nil if none.
func (r *ProvinceRepo) FindByOwner(ctx context.Context, ownerID string) (*model.Province, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+provinceColumns+` FROM provinces WHERE owner_id = $1`, ownerID)
	p, err := scanProvince(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find province by owner: %w", err)
	}
	return p, nil
}

// ListOthers returns every province except the given one, the candidate pool
// for target listing.
func (r *ProvinceRepo) ListOthers(ctx context.Context, excludeID string) ([]model.Province, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+provinceColumns+` FROM provinces WHERE id <> $1 ORDER BY networth DESC`, excludeID)
	if err != nil {
		return nil, fmt.Errorf("list provinces: %w", err)
	}
	defer rows.Close()

	var provinces []model.Province
	for rows.Next() {
		p, err := scanProvince(rows)
		if err != nil {
			return nil, fmt.Errorf("scan province: %w", err)
		}
		provinces = append(provinces, *p)
	}
	return provinces, rows.Err()
}

// SaveLedger persists all combat-owned fields of a province.
func (r *ProvinceRepo) SaveLedger(ctx context.Context, p *model.Province) error {
	if err := execSaveLedger(ctx, r.db, p); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// SetDefeatProtection stamps the defeat-triggered protection expiry.
func (r *ProvinceRepo) SetDefeatProtection(ctx context.Context, id string, until time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE provinces SET protection_defeat_until = $1, updated_at = now() WHERE id = $2`,
		until, id)
	if err != nil {
		return fmt.Errorf("set defeat protection: %w", err)
	}
	return nil
}

// SetHarassmentProtection stamps the anti-harassment protection expiry.
func (r *ProvinceRepo) SetHarassmentProtection(ctx context.Context, id string, until time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE provinces SET protection_harassment_until = $1, updated_at = now() WHERE id = $2`,
		until, id)
	if err != nil {
		return fmt.Errorf("set harassment protection: %w", err)
	}
	return nil
}

// ClearEarnedProtection forfeits newbie and defeat protection by moving both
// expiries into the past. The newbie transition is one-way; it is never
// re-granted.
func (r *ProvinceRepo) ClearEarnedProtection(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE provinces
		 SET protection_newbie_until = LEAST(protection_newbie_until, $1),
		     protection_defeat_until = LEAST(protection_defeat_until, $1),
		     updated_at = now()
		 WHERE id = $2`,
		at, id)
	if err != nil {
		return fmt.Errorf("clear earned protection: %w", err)
	}
	return nil
}

// execer covers *sql.DB and *sql.Tx for shared write helpers.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execSaveLedger(ctx context.Context, ex execer, p *model.Province) error {
	armyJSON, err := json.Marshal(p.ArmyHome)
	if err != nil {
		return fmt.Errorf("marshal army: %w", err)
	}
	_, err = ex.ExecContext(ctx,
		`UPDATE provinces
		 SET gold = $1, mana = $2, food = $3, land = $4, buildings = $5,
		     army_home = $6,
		     protection_newbie_until = $7,
		     protection_defeat_until = $8,
		     protection_harassment_until = $9,
		     updated_at = now()
		 WHERE id = $10`,
		p.Gold, p.Mana, p.Food, p.Land, p.Buildings,
		armyJSON,
		p.ProtectionNewbieUntil, p.ProtectionDefeatUntil, p.ProtectionHarassmentUntil,
		p.ID)
	return err
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvince(row rowScanner) (*model.Province, error) {
	var p model.Province
	var guildID sql.NullString
	var armyJSON, alliancesJSON []byte
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Networth, &p.Land, &p.Buildings,
		&p.Gold, &p.Mana, &p.Food, &p.Turns,
		&armyJSON, &guildID, &alliancesJSON,
		&p.ProtectionNewbieUntil, &p.ProtectionDefeatUntil, &p.ProtectionHarassmentUntil,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.GuildID = guildID.String
	p.ArmyHome = combat.Army{}
	if len(armyJSON) > 0 {
		if err := json.Unmarshal(armyJSON, &p.ArmyHome); err != nil {
			return nil, fmt.Errorf("unmarshal army: %w", err)
		}
	}
	if len(alliancesJSON) > 0 {
		if err := json.Unmarshal(alliancesJSON, &p.Alliances); err != nil {
			return nil, fmt.Errorf("unmarshal alliances: %w", err)
		}
	}
	return &p, nil
}
