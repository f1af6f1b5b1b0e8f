package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mthorne/provincia/api/internal/model"
	"github.com/mthorne/provincia/api/internal/repository"
)

// TurnService applies the external turn clock to away armies. The turn engine
// itself lives in the economy service; this service only owns the return legs.
type TurnService struct {
	missionRepo repository.MissionRepository
	broadcaster Broadcaster
}

// NewTurnService creates a TurnService.
func NewTurnService(missionRepo repository.MissionRepository, broadcaster Broadcaster) *TurnService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	return &TurnService{missionRepo: missionRepo, broadcaster: broadcaster}
}

// Advance ticks every away army one turn and merges the ones that arrived
// home. Returns the stacks that came back.
func (s *TurnService) Advance(ctx context.Context) ([]model.ArmyAway, error) {
	returned, err := s.missionRepo.AdvanceReturns(ctx)
	if err != nil {
		return nil, fmt.Errorf("advance returns: %w", err)
	}
	for i := range returned {
		a := &returned[i]
		log.Info().Str("provinceId", a.ProvinceID).Str("missionId", a.MissionID).
			Int("troops", a.Composition.Total()).Msg("Army returned home")
		s.broadcaster.BroadcastProvinceEvent(a.ProvinceID, "army_returned", a)
	}
	return returned, nil
}
