package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mthorne/provincia/api/internal/config"
	"github.com/mthorne/provincia/api/internal/model"
	"github.com/mthorne/provincia/api/internal/repository"
	"github.com/mthorne/provincia/api/pkg/combat"
)

// TargetService produces the eligible-target listing. It applies the same
// checks as submission minus the attacker-protection check: a protected player
// still browses targets, they just forfeit protection when they launch.
type TargetService struct {
	provinceRepo repository.ProvinceRepository
	retaliation  *RetaliationService
	cfg          config.Combat
}

// NewTargetService creates a TargetService.
func NewTargetService(provinceRepo repository.ProvinceRepository, retaliation *RetaliationService, cfg config.Combat) *TargetService {
	return &TargetService{provinceRepo: provinceRepo, retaliation: retaliation, cfg: cfg}
}

// ListEligible returns every province the viewer could attack right now,
// ordered by networth descending. Provinces reachable only through an open
// retaliation window are included and flagged.
func (s *TargetService) ListEligible(ctx context.Context, viewerID string) ([]model.TargetView, error) {
	viewer, err := s.provinceRepo.FindByID(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("find viewer: %w", err)
	}
	if viewer == nil {
		return nil, ErrProvinceNotFound
	}

	candidates, err := s.provinceRepo.ListOthers(ctx, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	now := time.Now().UTC()
	windows, err := s.retaliation.List(ctx, viewer.ID, now)
	if err != nil {
		// Degrade to range-only listing rather than failing the whole call.
		log.Warn().Err(err).Str("provinceId", viewer.ID).Msg("Retaliation lookup failed, listing range-only targets")
		windows = nil
	}
	retalTargets := make(map[string]bool, len(windows))
	for _, w := range windows {
		retalTargets[w.AttackerID] = true
	}

	low := s.cfg.RangeLow * float64(viewer.Networth)
	high := s.cfg.RangeHigh * float64(viewer.Networth)

	targets := make([]model.TargetView, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if combat.Allied(sideSnapshot(viewer), sideSnapshot(c)) {
			continue
		}
		retal := retalTargets[c.ID]
		if !retal {
			if c.ProtectedAt(now) {
				continue
			}
			nw := float64(c.Networth)
			if nw < low || nw > high {
				continue
			}
		}
		targets = append(targets, model.TargetView{
			ProvinceID:     c.ID,
			Name:           c.Name,
			Networth:       c.Networth,
			Land:           c.Land,
			Tier:           combat.RelationTier(viewer.Networth, c.Networth, s.cfg.TierWeakerBelow, s.cfg.TierStrongerAbove),
			HasRetaliation: retal,
		})
	}
	return targets, nil
}

// sideSnapshot carries only the fields the allied check reads.
func sideSnapshot(p *model.Province) combat.Snapshot {
	return combat.Snapshot{ID: p.ID, GuildID: p.GuildID, Alliances: p.Alliances}
}
