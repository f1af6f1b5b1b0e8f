package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mthorne/provincia/api/internal/config"
	"github.com/mthorne/provincia/api/internal/model"
	"github.com/mthorne/provincia/api/internal/repository"
)

var (
	// ErrProvinceExists means the player already has a province.
	ErrProvinceExists = errors.New("player already has a province")
	// ErrForbidden means the caller may not view the requested resource.
	ErrForbidden = errors.New("not allowed to view this resource")
)

// ProvinceView is a province with its derived combat state attached.
type ProvinceView struct {
	Province   *model.Province        `json:"province"`
	Protection model.ProtectionStatus `json:"protection"`
	ArmiesAway []model.ArmyAway       `json:"armies_away"`
}

// ProvinceService covers province lifecycle and read-side queries.
type ProvinceService struct {
	provinceRepo  repository.ProvinceRepository
	missionRepo   repository.MissionRepository
	espionageRepo repository.EspionageRepository
	protection    *ProtectionService
	retaliation   *RetaliationService
	cfg           config.Combat
}

// NewProvinceService creates a ProvinceService.
func NewProvinceService(
	provinceRepo repository.ProvinceRepository,
	missionRepo repository.MissionRepository,
	espionageRepo repository.EspionageRepository,
	protection *ProtectionService,
	retaliation *RetaliationService,
	cfg config.Combat,
) *ProvinceService {
	return &ProvinceService{
		provinceRepo:  provinceRepo,
		missionRepo:   missionRepo,
		espionageRepo: espionageRepo,
		protection:    protection,
		retaliation:   retaliation,
		cfg:           cfg,
	}
}

// Create founds a province for the player. Newbie protection starts at the
// moment of founding and is never re-granted.
func (s *ProvinceService) Create(ctx context.Context, playerID, name string) (*model.Province, error) {
	existing, err := s.provinceRepo.FindByOwner(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("check existing province: %w", err)
	}
	if existing != nil {
		return nil, ErrProvinceExists
	}
	now := time.Now().UTC()
	p, err := s.provinceRepo.Create(ctx, playerID, name, now.Add(s.cfg.NewbieProtection))
	if err != nil {
		return nil, err
	}
	log.Info().Str("provinceId", p.ID).Str("ownerId", playerID).
		Time("protectedUntil", p.ProtectionNewbieUntil).Msg("Province founded")
	return p, nil
}

// Get returns a province with protection status and away armies. Only the
// owner sees the full ledger.
func (s *ProvinceService) Get(ctx context.Context, playerID, provinceID string) (*ProvinceView, error) {
	p, err := s.provinceRepo.FindByID(ctx, provinceID)
	if err != nil {
		return nil, fmt.Errorf("find province: %w", err)
	}
	if p == nil {
		return nil, ErrTargetNotFound
	}
	if p.OwnerID != playerID {
		return nil, ErrForbidden
	}
	away, err := s.missionRepo.ListAway(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list away armies: %w", err)
	}
	return &ProvinceView{
		Province:   p,
		Protection: s.protection.Status(p, time.Now().UTC()),
		ArmiesAway: away,
	}, nil
}

// Reports returns the province's battle reports. Owner only.
func (s *ProvinceService) Reports(ctx context.Context, playerID, provinceID string, limit int) ([]model.BattleReport, error) {
	if err := s.requireOwner(ctx, playerID, provinceID); err != nil {
		return nil, err
	}
	return s.missionRepo.ListReportsByProvince(ctx, provinceID, limit)
}

// Report returns one battle report. Only the two combatants may read it.
func (s *ProvinceService) Report(ctx context.Context, playerID, missionID string) (*model.BattleReport, error) {
	rep, err := s.missionRepo.FindReport(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, ErrTargetNotFound
	}
	own, err := s.provinceRepo.FindByOwner(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("find caller province: %w", err)
	}
	if own == nil || (own.ID != rep.AttackerID && own.ID != rep.DefenderID) {
		return nil, ErrForbidden
	}
	return rep, nil
}

// EspionageReports returns the province's own spy runs. Owner only.
func (s *ProvinceService) EspionageReports(ctx context.Context, playerID, provinceID string, limit int) ([]model.EspionageReport, error) {
	if err := s.requireOwner(ctx, playerID, provinceID); err != nil {
		return nil, err
	}
	return s.espionageRepo.ListByProvince(ctx, provinceID, limit)
}

// Retaliation returns the province's open retaliation windows. Owner only.
func (s *ProvinceService) Retaliation(ctx context.Context, playerID, provinceID string) ([]model.RetaliationWindow, error) {
	if err := s.requireOwner(ctx, playerID, provinceID); err != nil {
		return nil, err
	}
	return s.retaliation.List(ctx, provinceID, time.Now().UTC())
}

func (s *ProvinceService) requireOwner(ctx context.Context, playerID, provinceID string) error {
	p, err := s.provinceRepo.FindByID(ctx, provinceID)
	if err != nil {
		return fmt.Errorf("find province: %w", err)
	}
	if p == nil {
		return ErrTargetNotFound
	}
	if p.OwnerID != playerID {
		return ErrForbidden
	}
	return nil
}
