package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mthorne/provincia/api/internal/config"
	"github.com/mthorne/provincia/api/internal/model"
	"github.com/mthorne/provincia/api/internal/repository"
)

// defeatLandLossFraction triggers defeat protection when a province loses more
// than this share of its pre-battle land within the trailing 24h.
const defeatLandLossFraction = 0.10

// defeatLandLossLookback is the trailing window land losses are summed over
// for the defeat trigger.
const defeatLandLossLookback = 24 * time.Hour

// harassmentLookback is the window the attack log is judged over.
const harassmentLookback = 24 * time.Hour

// ProtectionService owns the three protection states. Newbie protection is
// stamped at registration; defeat and harassment protection are granted here
// after a defense; expiry is lazy, checked on read.
type ProtectionService struct {
	provinceRepo repository.ProvinceRepository
	missionRepo  repository.MissionRepository
	cache        repository.CombatCache
	cfg          config.Combat
}

// NewProtectionService creates a ProtectionService.
func NewProtectionService(
	provinceRepo repository.ProvinceRepository,
	missionRepo repository.MissionRepository,
	cache repository.CombatCache,
	cfg config.Combat,
) *ProtectionService {
	return &ProtectionService{
		provinceRepo: provinceRepo,
		missionRepo:  missionRepo,
		cache:        cache,
		cfg:          cfg,
	}
}

// Active reports whether any protection covers the province right now.
func (s *ProtectionService) Active(p *model.Province, now time.Time) bool {
	return p.ProtectedAt(now)
}

// Status returns the per-state breakdown for the UI.
func (s *ProtectionService) Status(p *model.Province, now time.Time) model.ProtectionStatus {
	var st model.ProtectionStatus
	if p.ProtectionNewbieUntil.After(now) {
		st.Newbie = true
		until := p.ProtectionNewbieUntil
		st.NewbieUntil = &until
	}
	if p.ProtectionDefeatUntil != nil && p.ProtectionDefeatUntil.After(now) {
		st.Defeat = true
		st.DefeatUntil = p.ProtectionDefeatUntil
	}
	if p.ProtectionHarassmentUntil != nil && p.ProtectionHarassmentUntil.After(now) {
		st.Harassment = true
		st.HarassmentUntil = p.ProtectionHarassmentUntil
	}
	return st
}

// BurnOnAttack forfeits the attacker's newbie and defeat protection. Launching
// an attack is the one-way exit from earned protection; harassment protection
// is not forfeited because it shields against a specific abuser, not combat in
// general.
func (s *ProtectionService) BurnOnAttack(ctx context.Context, p *model.Province, now time.Time) error {
	if !p.ProtectionNewbieUntil.After(now) &&
		(p.ProtectionDefeatUntil == nil || !p.ProtectionDefeatUntil.After(now)) {
		return nil
	}
	if err := s.provinceRepo.ClearEarnedProtection(ctx, p.ID, now); err != nil {
		return fmt.Errorf("forfeit protection: %w", err)
	}
	p.ProtectionNewbieUntil = now
	cleared := now
	p.ProtectionDefeatUntil = &cleared
	log.Info().Str("provinceId", p.ID).Msg("Protection forfeited by attacking")
	return nil
}

// AfterDefense evaluates the defender for new protection grants once a battle
// has committed. Two independent triggers: heavy land loss in 24h grants
// defeat protection, and repeated attacks from one attacker grant harassment
// protection. Grant failures are logged, not returned; the battle itself has
// already committed.
func (s *ProtectionService) AfterDefense(ctx context.Context, defender *model.Province, attackerID string, landLostNow int, now time.Time) {
	if err := s.checkDefeat(ctx, defender, landLostNow, now); err != nil {
		log.Error().Err(err).Str("provinceId", defender.ID).Msg("Defeat protection check failed")
	}
	if err := s.checkHarassment(ctx, defender, attackerID, now); err != nil {
		log.Error().Err(err).Str("provinceId", defender.ID).Msg("Harassment protection check failed")
	}
}

func (s *ProtectionService) checkDefeat(ctx context.Context, defender *model.Province, landLostNow int, now time.Time) error {
	if defender.ProtectionDefeatUntil != nil && defender.ProtectionDefeatUntil.After(now) {
		return nil
	}
	lostBefore, err := s.missionRepo.LandLostSince(ctx, defender.ID, now.Add(-defeatLandLossLookback))
	if err != nil {
		return fmt.Errorf("land lost lookup: %w", err)
	}
	// The current battle's report may or may not be visible yet depending on
	// commit timing, so it is passed in explicitly and deduplicated here.
	totalLost := lostBefore
	if lostBefore < landLostNow {
		totalLost = landLostNow
	}
	baseline := defender.Land + totalLost
	if baseline <= 0 {
		return nil
	}
	if float64(totalLost)/float64(baseline) <= defeatLandLossFraction {
		return nil
	}
	until := now.Add(s.cfg.DefeatProtection)
	if err := s.provinceRepo.SetDefeatProtection(ctx, defender.ID, until); err != nil {
		return err
	}
	defender.ProtectionDefeatUntil = &until
	log.Info().Str("provinceId", defender.ID).Int("landLost", totalLost).
		Time("until", until).Msg("Defeat protection granted")
	return nil
}

func (s *ProtectionService) checkHarassment(ctx context.Context, defender *model.Province, attackerID string, now time.Time) error {
	if defender.ProtectionHarassmentUntil != nil && defender.ProtectionHarassmentUntil.After(now) {
		return nil
	}
	count, err := s.cache.AttackCountFrom(ctx, defender.ID, attackerID, now.Add(-harassmentLookback))
	if err != nil {
		return fmt.Errorf("attack count lookup: %w", err)
	}
	if count < s.cfg.HarassmentThreshold {
		return nil
	}
	until := now.Add(s.cfg.HarassmentProtection)
	if err := s.provinceRepo.SetHarassmentProtection(ctx, defender.ID, until); err != nil {
		return err
	}
	defender.ProtectionHarassmentUntil = &until
	log.Info().Str("provinceId", defender.ID).Str("attackerId", attackerID).
		Int("attacks", count).Time("until", until).Msg("Harassment protection granted")
	return nil
}
