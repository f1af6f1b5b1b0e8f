package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mthorne/provincia/api/internal/config"
	"github.com/mthorne/provincia/api/internal/model"
	"github.com/mthorne/provincia/api/internal/repository"
	"github.com/mthorne/provincia/api/pkg/combat"
)

var (
	// ErrProvinceNotFound means the caller has no province.
	ErrProvinceNotFound = errors.New("province not found")
	// ErrTargetNotFound means the named target does not exist.
	ErrTargetNotFound = errors.New("target province not found")
)

// SubmitMissionRequest is one attack submission.
type SubmitMissionRequest struct {
	TargetID    string             `json:"target_id"`
	Type        combat.MissionType `json:"mission_type"`
	Composition combat.Army        `json:"composition"`
}

// MissionService orchestrates attack submission end to end: validation,
// locking, outcome computation, and the atomic commit.
type MissionService struct {
	provinceRepo repository.ProvinceRepository
	missionRepo  repository.MissionRepository
	unitRepo     repository.UnitCatalogRepository
	cache        repository.CombatCache
	protection   *ProtectionService
	retaliation  *RetaliationService
	broadcaster  Broadcaster
	cfg          config.Combat

	catOnce sync.Once
	catErr  error
	catalog combat.Catalog
}

// NewMissionService creates a MissionService.
func NewMissionService(
	provinceRepo repository.ProvinceRepository,
	missionRepo repository.MissionRepository,
	unitRepo repository.UnitCatalogRepository,
	cache repository.CombatCache,
	protection *ProtectionService,
	retaliation *RetaliationService,
	broadcaster Broadcaster,
	cfg config.Combat,
) *MissionService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	return &MissionService{
		provinceRepo: provinceRepo,
		missionRepo:  missionRepo,
		unitRepo:     unitRepo,
		cache:        cache,
		protection:   protection,
		retaliation:  retaliation,
		broadcaster:  broadcaster,
		cfg:          cfg,
	}
}

// Catalog returns the unit catalog, loading it once per process. Definitions
// only change on deployment.
func (s *MissionService) Catalog(ctx context.Context) (combat.Catalog, error) {
	s.catOnce.Do(func() {
		s.catalog, s.catErr = s.unitRepo.Catalog(ctx)
	})
	return s.catalog, s.catErr
}

// Submit validates and resolves one mission synchronously. A rejected mission
// returns a non-nil Denial and a nil report; the error return is reserved for
// infrastructure failures. Rejections leave no state mutated apart from the
// audit row (and, when configured, the attacker's forfeited protection).
func (s *MissionService) Submit(ctx context.Context, playerID string, req SubmitMissionRequest) (*model.BattleReport, *combat.Denial, error) {
	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}

	attacker, err := s.provinceRepo.FindByOwner(ctx, playerID)
	if err != nil {
		return nil, nil, fmt.Errorf("find attacker: %w", err)
	}
	if attacker == nil {
		return nil, nil, ErrProvinceNotFound
	}
	defender, err := s.provinceRepo.FindByID(ctx, req.TargetID)
	if err != nil {
		return nil, nil, fmt.Errorf("find target: %w", err)
	}
	if defender == nil {
		return nil, nil, ErrTargetNotFound
	}

	now := time.Now().UTC()
	retal, err := s.retaliation.Available(ctx, attacker.ID, defender.ID, now)
	if err != nil {
		return nil, nil, fmt.Errorf("retaliation lookup: %w", err)
	}

	denial := combat.Validate(
		s.snapshot(attacker, attacker.OutboundProtectedAt(now)),
		s.snapshot(defender, defender.ProtectedAt(now)),
		req.Type, req.Composition, cat, retal,
		combat.Rules{RangeLow: s.cfg.RangeLow, RangeHigh: s.cfg.RangeHigh},
	)
	if denial != nil {
		denial = s.refineTroopDenial(ctx, attacker, req.Composition, denial)
		if s.cfg.BurnProtectionOnAttempt {
			if err := s.protection.BurnOnAttack(ctx, attacker, now); err != nil {
				return nil, nil, err
			}
		}
		return nil, denial, s.recordRejection(ctx, attacker.ID, defender.ID, req, denial)
	}

	// The submission is committed from here on; launching forfeits earned
	// protection regardless of how the battle goes.
	if err := s.protection.BurnOnAttack(ctx, attacker, now); err != nil {
		return nil, nil, err
	}

	unlock := provinceLockTable.lockPair(attacker.ID, defender.ID)
	defer unlock()

	// Re-read both ledgers under the locks. The pre-lock validation ran
	// against snapshots that another resolution may have invalidated.
	attacker, defender, denial, err = s.recheck(ctx, attacker.ID, defender.ID, req, cat)
	if err != nil {
		return nil, nil, err
	}
	if denial != nil {
		return nil, denial, s.recordRejection(ctx, attacker.ID, defender.ID, req, denial)
	}

	report, err := s.resolve(ctx, attacker, defender, req, cat, now)
	if err != nil {
		return nil, nil, err
	}
	return report, nil, nil
}

// recheck re-reads both provinces under the pair lock and re-validates the
// troop commitment against the fresh attacker ledger. Any drift since the
// initial validation is surfaced as a concurrent-modification denial rather
// than resolving against stale numbers.
func (s *MissionService) recheck(ctx context.Context, attackerID, defenderID string, req SubmitMissionRequest, cat combat.Catalog) (*model.Province, *model.Province, *combat.Denial, error) {
	attacker, err := s.provinceRepo.FindByID(ctx, attackerID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reload attacker: %w", err)
	}
	defender, err := s.provinceRepo.FindByID(ctx, defenderID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reload defender: %w", err)
	}
	if attacker == nil || defender == nil {
		return nil, nil, nil, ErrTargetNotFound
	}
	if d := combat.ValidateCommitment(s.snapshot(attacker, false), req.Type, req.Composition, cat); d != nil {
		return attacker, defender, &combat.Denial{
			Reason: combat.DenyConcurrentModification,
			Detail: "province state changed during submission: " + d.Detail,
		}, nil
	}
	return attacker, defender, nil, nil
}

// resolve runs the outcome computation and commits everything atomically.
// Caller holds both locks.
func (s *MissionService) resolve(ctx context.Context, attacker, defender *model.Province, req SubmitMissionRequest, cat combat.Catalog, now time.Time) (*model.BattleReport, error) {
	outcome := combat.Resolve(combat.Input{
		Attacker:          req.Composition,
		Defender:          defender.ArmyHome,
		Mission:           req.Type,
		AttackerNetworth:  attacker.Networth,
		DefenderNetworth:  defender.Networth,
		DefenderGold:      defender.Gold,
		DefenderLand:      defender.Land,
		DefenderBuildings: defender.Buildings,
	}, cat, combat.Tuning{WeakerBelow: s.cfg.TierWeakerBelow, StrongerAbove: s.cfg.TierStrongerAbove})

	// Committed troops leave home before casualties are applied; survivors
	// travel back over the return counter.
	attacker.ArmyHome.Subtract(req.Composition)
	away := &model.ArmyAway{
		ProvinceID:       attacker.ID,
		Composition:      req.Composition.Clone(),
		TurnsUntilReturn: s.cfg.ReturnTurns,
	}
	away.Composition.Subtract(outcome.AttackerCasualties)
	defender.ArmyHome.Subtract(outcome.DefenderCasualties)

	attacker.Gold += outcome.GoldStolen
	defender.Gold -= outcome.GoldStolen
	attacker.Land += outcome.LandConquered
	defender.Land -= outcome.LandConquered + outcome.LandWasted
	if defender.Land < 0 {
		defender.Land = 0
	}
	defender.Buildings -= outcome.BuildingsDestroyed
	if defender.Buildings < 0 {
		defender.Buildings = 0
	}

	mission := &model.Mission{
		AttackerID:  attacker.ID,
		DefenderID:  defender.ID,
		Type:        req.Type,
		Composition: req.Composition,
	}
	report := &model.BattleReport{
		AttackerID:         attacker.ID,
		DefenderID:         defender.ID,
		Victory:            outcome.Victory,
		AttackerCasualties: outcome.AttackerCasualties,
		DefenderCasualties: outcome.DefenderCasualties,
		GoldStolen:         outcome.GoldStolen,
		LandConquered:      outcome.LandConquered,
		LandWasted:         outcome.LandWasted,
		BuildingsDestroyed: outcome.BuildingsDestroyed,
		Narrative:          outcome.Narrative,
	}

	if err := s.missionRepo.CommitResolution(ctx, attacker, defender, mission, report, away); err != nil {
		return nil, fmt.Errorf("commit resolution: %w", err)
	}

	log.Info().Str("missionId", mission.ID).
		Str("attackerId", attacker.ID).Str("defenderId", defender.ID).
		Str("type", string(req.Type)).Bool("victory", outcome.Victory).
		Str("tier", string(outcome.Tier)).
		Msg("Mission resolved")

	s.afterCommit(ctx, attacker, defender, report, now)
	return report, nil
}

// afterCommit runs the post-battle side effects: attack log, retaliation
// window, protection triggers, and fan-out. Failures here are logged rather
// than returned; the battle has already committed and must not look rejected.
func (s *MissionService) afterCommit(ctx context.Context, attacker, defender *model.Province, report *model.BattleReport, now time.Time) {
	if err := s.cache.RecordAttack(ctx, defender.ID, attacker.ID, now); err != nil {
		log.Error().Err(err).Str("missionId", report.MissionID).Msg("Failed to record attack")
	}
	if err := s.retaliation.Open(ctx, defender.ID, attacker.ID, now); err != nil {
		log.Error().Err(err).Str("missionId", report.MissionID).Msg("Failed to open retaliation window")
	}
	s.protection.AfterDefense(ctx, defender, attacker.ID, report.LandConquered+report.LandWasted, now)

	if err := s.cache.PublishReport(ctx, report); err != nil {
		log.Error().Err(err).Str("missionId", report.MissionID).Msg("Failed to publish battle report")
	}
	s.broadcaster.BroadcastProvinceEvent(attacker.ID, "battle_report", report)
	s.broadcaster.BroadcastProvinceEvent(defender.ID, "battle_report", report)
}

// refineTroopDenial distinguishes "you never had those troops" from "those
// troops are marching home". When the home shortfall for every short unit is
// covered by stacks currently away, the denial becomes army_away_return_in_progress.
func (s *MissionService) refineTroopDenial(ctx context.Context, attacker *model.Province, committed combat.Army, denial *combat.Denial) *combat.Denial {
	if denial.Reason != combat.DenyInsufficientTroops {
		return denial
	}
	short := false
	for id, qty := range committed {
		if qty > attacker.ArmyHome[id] {
			short = true
			break
		}
	}
	if !short {
		return denial
	}

	armies, err := s.missionRepo.ListAway(ctx, attacker.ID)
	if err != nil {
		log.Warn().Err(err).Str("provinceId", attacker.ID).Msg("Failed to list away armies for denial detail")
		return denial
	}
	away := combat.Army{}
	for _, a := range armies {
		away.Add(a.Composition)
	}
	for id, qty := range committed {
		if qty > attacker.ArmyHome[id]+away[id] {
			return denial
		}
	}
	if away.Total() == 0 {
		return denial
	}
	return &combat.Denial{
		Reason: combat.DenyArmyAwayReturning,
		Detail: "committed units are away on a mission and have not returned",
	}
}

// recordRejection writes the audit row for a denied submission. A failure to
// write the audit row does not change the denial outcome.
func (s *MissionService) recordRejection(ctx context.Context, attackerID, defenderID string, req SubmitMissionRequest, denial *combat.Denial) error {
	_, err := s.missionRepo.CreateRejected(ctx, &model.Mission{
		AttackerID:   attackerID,
		DefenderID:   defenderID,
		Type:         req.Type,
		Composition:  req.Composition,
		RejectReason: string(denial.Reason),
	})
	if err != nil {
		log.Error().Err(err).Str("attackerId", attackerID).
			Str("reason", string(denial.Reason)).Msg("Failed to record rejected mission")
	}
	return nil
}

// snapshot captures the combat-relevant fields. The caller decides which
// protection applies: outbound (newbie and defeat) for the attacker, all three
// states for the defender.
func (s *MissionService) snapshot(p *model.Province, protected bool) combat.Snapshot {
	return combat.Snapshot{
		ID:        p.ID,
		Networth:  p.Networth,
		GuildID:   p.GuildID,
		Alliances: p.Alliances,
		Protected: protected,
		ArmyHome:  p.ArmyHome,
	}
}
