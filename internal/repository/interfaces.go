package repository

import (
	"context"
	"time"

	"github.com/mthorne/provincia/api/internal/model"
	"github.com/mthorne/provincia/api/pkg/combat"
)

// ProvinceRepository defines province ledger operations.
type ProvinceRepository interface {
	Create(ctx context.Context, ownerID, name string, newbieUntil time.Time) (*model.Province, error)
	FindByID(ctx context.Context, id string) (*model.Province, error)
	FindByOwner(ctx context.Context, ownerID string) (*model.Province, error)
	ListOthers(ctx context.Context, excludeID string) ([]model.Province, error)
	SaveLedger(ctx context.Context, p *model.Province) error
	SetDefeatProtection(ctx context.Context, id string, until time.Time) error
	SetHarassmentProtection(ctx context.Context, id string, until time.Time) error
	ClearEarnedProtection(ctx context.Context, id string, at time.Time) error
}

// MissionRepository defines mission, battle report, and away-army operations.
type MissionRepository interface {
	CreateRejected(ctx context.Context, m *model.Mission) (*model.Mission, error)
	CommitResolution(ctx context.Context, attacker, defender *model.Province, mission *model.Mission, report *model.BattleReport, away *model.ArmyAway) error
	FindReport(ctx context.Context, missionID string) (*model.BattleReport, error)
	ListReportsByProvince(ctx context.Context, provinceID string, limit int) ([]model.BattleReport, error)
	LandLostSince(ctx context.Context, defenderID string, since time.Time) (int, error)
	ListAway(ctx context.Context, provinceID string) ([]model.ArmyAway, error)
	AdvanceReturns(ctx context.Context) ([]model.ArmyAway, error)
}

// EspionageRepository persists espionage reports.
type EspionageRepository interface {
	Create(ctx context.Context, r *model.EspionageReport) (*model.EspionageReport, error)
	ListByProvince(ctx context.Context, provinceID string, limit int) ([]model.EspionageReport, error)
}

// UnitCatalogRepository loads the static unit definitions.
type UnitCatalogRepository interface {
	Catalog(ctx context.Context) (combat.Catalog, error)
}

// CombatCache defines live combat state operations (Redis): retaliation
// windows, the trailing attack log, and battle-report publication.
type CombatCache interface {
	OpenRetaliation(ctx context.Context, victimID, attackerID string, expiresAt time.Time) error
	HasRetaliation(ctx context.Context, victimID, attackerID string, now time.Time) (bool, error)
	ListRetaliation(ctx context.Context, victimID string, now time.Time) ([]model.RetaliationWindow, error)
	RecordAttack(ctx context.Context, defenderID, attackerID string, at time.Time) error
	AttackCountFrom(ctx context.Context, defenderID, attackerID string, since time.Time) (int, error)
	RecentAttacks(ctx context.Context, defenderID string, since time.Time) ([]model.AttackRecord, error)
	PublishReport(ctx context.Context, report *model.BattleReport) error
}
