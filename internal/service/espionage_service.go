package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mthorne/provincia/api/internal/config"
	"github.com/mthorne/provincia/api/internal/model"
	"github.com/mthorne/provincia/api/internal/repository"
	"github.com/mthorne/provincia/api/pkg/combat"
)

// SpyUnitID is the catalog ID of the espionage unit. Spies carry no attack or
// defense and never count toward a troop commitment.
const SpyUnitID = "spy"

// Spy attrition per run. Failed runs cost more because the caught spies do not
// come back.
const (
	spyLossSuccessRate = 0.10
	spyLossFailureRate = 0.30
	spySuccessCap      = 0.95
	spySuccessFloor    = 0.05
)

// SubmitEspionageRequest is one espionage submission.
type SubmitEspionageRequest struct {
	TargetID  string `json:"target_id"`
	SpiesSent int    `json:"spies_sent"`
}

// EspionageService resolves spy runs. Espionage shares the relationship and
// range checks with combat but commits no combat units, grants no retaliation
// window, and never forfeits the attacker's protection.
type EspionageService struct {
	provinceRepo  repository.ProvinceRepository
	espionageRepo repository.EspionageRepository
	retaliation   *RetaliationService
	broadcaster   Broadcaster
	cfg           config.Combat

	// roll is injectable for deterministic tests.
	roll func() float64
}

// NewEspionageService creates an EspionageService.
func NewEspionageService(
	provinceRepo repository.ProvinceRepository,
	espionageRepo repository.EspionageRepository,
	retaliation *RetaliationService,
	broadcaster Broadcaster,
	cfg config.Combat,
) *EspionageService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	return &EspionageService{
		provinceRepo:  provinceRepo,
		espionageRepo: espionageRepo,
		retaliation:   retaliation,
		broadcaster:   broadcaster,
		cfg:           cfg,
		roll:          rand.Float64,
	}
}

// Submit resolves one espionage run. A non-nil Denial means the run was
// refused with nothing mutated.
func (s *EspionageService) Submit(ctx context.Context, playerID string, req SubmitEspionageRequest) (*model.EspionageReport, *combat.Denial, error) {
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

	attSnap := combat.Snapshot{
		ID: attacker.ID, Networth: attacker.Networth,
		GuildID: attacker.GuildID, Alliances: attacker.Alliances,
		// Espionage does not forfeit protection, so a protected province may
		// still spy.
		Protected: false,
		ArmyHome:  attacker.ArmyHome,
	}
	defSnap := combat.Snapshot{
		ID: defender.ID, Networth: defender.Networth,
		GuildID: defender.GuildID, Alliances: defender.Alliances,
		Protected: defender.ProtectedAt(now),
		ArmyHome:  defender.ArmyHome,
	}
	if d := combat.ValidateEligibility(attSnap, defSnap, retal, combat.Rules{
		RangeLow: s.cfg.RangeLow, RangeHigh: s.cfg.RangeHigh,
	}); d != nil {
		return nil, d, nil
	}
	if req.SpiesSent <= 0 {
		return nil, &combat.Denial{Reason: combat.DenyInsufficientTroops, Detail: "no spies committed"}, nil
	}
	if req.SpiesSent > attacker.ArmyHome[SpyUnitID] {
		return nil, &combat.Denial{
			Reason: combat.DenyInsufficientTroops,
			Detail: fmt.Sprintf("committed %d spies but only %d at home", req.SpiesSent, attacker.ArmyHome[SpyUnitID]),
		}, nil
	}

	// Spy attrition rewrites the attacker's ledger, so it takes the same
	// per-province lock as mission resolution and re-reads the row under it.
	// Writing back the pre-lock copy would revert any battle that committed in
	// between.
	unlock := provinceLockTable.lock(attacker.ID)
	defer unlock()

	attacker, err = s.provinceRepo.FindByID(ctx, attacker.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("reload attacker: %w", err)
	}
	if attacker == nil {
		return nil, nil, ErrProvinceNotFound
	}
	if req.SpiesSent > attacker.ArmyHome[SpyUnitID] {
		return nil, &combat.Denial{
			Reason: combat.DenyConcurrentModification,
			Detail: fmt.Sprintf("province state changed during submission: committed %d spies but only %d at home", req.SpiesSent, attacker.ArmyHome[SpyUnitID]),
		}, nil
	}

	report := s.run(attacker, defender, req.SpiesSent)

	attacker.ArmyHome.Subtract(combat.Army{SpyUnitID: report.SpiesLost})
	if err := s.provinceRepo.SaveLedger(ctx, attacker); err != nil {
		return nil, nil, fmt.Errorf("save attacker ledger: %w", err)
	}
	report, err = s.espionageRepo.Create(ctx, report)
	if err != nil {
		return nil, nil, fmt.Errorf("create espionage report: %w", err)
	}

	log.Info().Str("reportId", report.ID).
		Str("attackerId", attacker.ID).Str("defenderId", defender.ID).
		Bool("success", report.Success).Int("spiesLost", report.SpiesLost).
		Msg("Espionage resolved")
	s.broadcaster.BroadcastProvinceEvent(attacker.ID, "espionage", report)
	return report, nil, nil
}

// run computes the outcome of a spy run. Success odds scale with the attacking
// contingent against the defender's home spies, clamped so neither side is
// ever a sure thing.
func (s *EspionageService) run(attacker, defender *model.Province, sent int) *model.EspionageReport {
	counter := defender.ArmyHome[SpyUnitID]
	chance := float64(sent) / float64(sent+counter)
	if chance > spySuccessCap {
		chance = spySuccessCap
	}
	if chance < spySuccessFloor {
		chance = spySuccessFloor
	}
	success := s.roll() < chance

	lossRate := spyLossFailureRate
	if success {
		lossRate = spyLossSuccessRate
	}
	lost := int(float64(sent) * lossRate)
	if lost > sent {
		lost = sent
	}

	report := &model.EspionageReport{
		AttackerID: attacker.ID,
		DefenderID: defender.ID,
		SpiesSent:  sent,
		SpiesLost:  lost,
		Success:    success,
	}
	if success {
		report.Intel = &model.Intel{
			Networth: defender.Networth,
			Gold:     defender.Gold,
			Land:     defender.Land,
			ArmyHome: defender.ArmyHome.Clone(),
		}
	}
	return report
}
