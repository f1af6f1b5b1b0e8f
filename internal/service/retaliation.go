package service

import (
	"context"
	"time"

	"github.com/mthorne/provincia/api/internal/config"
	"github.com/mthorne/provincia/api/internal/model"
	"github.com/mthorne/provincia/api/internal/repository"
)

// RetaliationService tracks who may strike back at whom. A window belongs to
// the victim of an attack and names the attacker; it bypasses range and target
// protection but grants the original attacker nothing.
type RetaliationService struct {
	cache repository.CombatCache
	cfg   config.Combat
}

// NewRetaliationService creates a RetaliationService.
func NewRetaliationService(cache repository.CombatCache, cfg config.Combat) *RetaliationService {
	return &RetaliationService{cache: cache, cfg: cfg}
}

// Open grants the victim a window against the attacker. A repeat attack
// refreshes the expiry rather than stacking windows.
func (s *RetaliationService) Open(ctx context.Context, victimID, attackerID string, now time.Time) error {
	return s.cache.OpenRetaliation(ctx, victimID, attackerID, now.Add(s.cfg.RetaliationWindow))
}

// Available reports whether the victim holds an open window against the
// attacker.
func (s *RetaliationService) Available(ctx context.Context, victimID, attackerID string, now time.Time) (bool, error) {
	return s.cache.HasRetaliation(ctx, victimID, attackerID, now)
}

// List returns the victim's open windows.
func (s *RetaliationService) List(ctx context.Context, victimID string, now time.Time) ([]model.RetaliationWindow, error) {
	return s.cache.ListRetaliation(ctx, victimID, now)
}
