package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mthorne/provincia/api/pkg/combat"
)

// UnitRepo loads the static unit catalog. Definitions change only on
// deployment, so callers cache the result for the process lifetime.
type UnitRepo struct {
	db *sql.DB
}

// NewUnitRepo creates a UnitRepo.
func NewUnitRepo(db *sql.DB) *UnitRepo {
	return &UnitRepo{db: db}
}

// Catalog returns every unit definition keyed by ID.
func (r *UnitRepo) Catalog(ctx context.Context) (combat.Catalog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, tier, attack, defense, upkeep_gold, upkeep_food, networth_value, combat_capable
		 FROM unit_types ORDER BY tier, id`)
	if err != nil {
		return nil, fmt.Errorf("load unit catalog: %w", err)
	}
	defer rows.Close()

	cat := combat.Catalog{}
	for rows.Next() {
		var u combat.UnitDef
		if err := rows.Scan(&u.ID, &u.Name, &u.Tier, &u.Attack, &u.Defense,
			&u.UpkeepGold, &u.UpkeepFood, &u.NetworthValue, &u.CombatCapable); err != nil {
			return nil, fmt.Errorf("scan unit type: %w", err)
		}
		cat[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cat) == 0 {
		return nil, fmt.Errorf("unit catalog is empty")
	}
	return cat, nil
}
