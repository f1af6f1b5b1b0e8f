package combat

import "fmt"

// Payout caps per mission type, applied only on success and scaled by the
// margin of victory.
const (
	invasionLandCap  = 0.10 // of defender's current land
	pillageGoldCap   = 0.15 // of defender's current gold
	siegeBuildingCap = 0.05 // of defender's building count
)

// Casualty model. The losing side always takes the higher proportional loss,
// and the attacker's rate is further scaled by the relationship tier.
const (
	attackerDefeatRate   = 0.30
	attackerVictoryBase  = 0.25 // at zero margin; shrinks to floor at full margin
	attackerVictoryFloor = 0.08
	defenderDefeatRate   = 0.05 // defender repelled the attack
	defenderVictoryBase  = 0.10 // at zero margin; grows with margin
	defenderVictorySpan  = 0.20

	tierWeakerMultiplier   = 0.8
	tierStrongerMultiplier = 1.25

	// partialBand is the fraction of required power below which an attack is an
	// outright defeat; between partialBand and 1.0 the attack is a reduced-scale
	// success.
	partialBand = 0.5
)

// Input is everything the outcome computation needs, captured at submission
// time. The calculator never reads live province state.
type Input struct {
	Attacker          Army
	Defender          Army
	Mission           MissionType
	AttackerNetworth  int64
	DefenderNetworth  int64
	DefenderGold      int64
	DefenderLand      int
	DefenderBuildings int
}

// Tuning holds the configurable relationship-tier cutoffs.
type Tuning struct {
	WeakerBelow   float64
	StrongerAbove float64
}

// Outcome is the fully-computed result of one mission. It is pure data; the
// resolver applies it to both ledgers afterwards.
type Outcome struct {
	Victory            bool
	Tier               Tier
	AttackerCasualties Army
	DefenderCasualties Army
	GoldStolen         int64
	LandConquered      int
	LandWasted         int
	BuildingsDestroyed int
	Narrative          string
}

// Resolve computes casualties and loot for one mission. It is a pure function:
// identical inputs always produce the identical outcome, which makes resolution
// re-derivable for idempotent retry.
func Resolve(in Input, cat Catalog, t Tuning) Outcome {
	off := AttackPower(in.Attacker, cat)
	def := DefensePower(in.Defender, cat)
	tier := RelationTier(in.AttackerNetworth, in.DefenderNetworth, t.WeakerBelow, t.StrongerAbove)

	ratio := powerRatio(off, def)
	victory := ratio >= 1.0
	margin := victoryMargin(ratio)

	out := Outcome{
		Victory:            victory,
		Tier:               tier,
		AttackerCasualties: casualties(in.Attacker, attackerRate(margin, ratio)*tierMultiplier(tier)),
		DefenderCasualties: casualties(in.Defender, defenderRate(margin, ratio)),
	}

	if margin > 0 {
		switch in.Mission {
		case MissionInvasion:
			out.LandConquered = scaleInt(in.DefenderLand, invasionLandCap*margin)
			out.LandWasted = out.LandConquered / 4
		case MissionPillage:
			out.GoldStolen = scaleInt64(in.DefenderGold, pillageGoldCap*margin)
		case MissionSiege:
			out.BuildingsDestroyed = scaleInt(in.DefenderBuildings, siegeBuildingCap*margin)
		}
	}

	out.Narrative = narrative(in.Mission, out)
	return out
}

// powerRatio returns off/def, treating an empty garrison as an overrun.
func powerRatio(off, def int64) float64 {
	if def <= 0 {
		if off <= 0 {
			return 0
		}
		return 2.0
	}
	return float64(off) / float64(def)
}

// victoryMargin maps the power ratio into [0,1]: 0 below the partial band,
// linear through the band, 1 at or above the full requirement.
func victoryMargin(ratio float64) float64 {
	switch {
	case ratio < partialBand:
		return 0
	case ratio >= 1.0:
		return 1
	default:
		return (ratio - partialBand) / (1 - partialBand)
	}
}

func attackerRate(margin, ratio float64) float64 {
	if ratio < partialBand {
		return attackerDefeatRate
	}
	return attackerVictoryBase - (attackerVictoryBase-attackerVictoryFloor)*margin
}

func defenderRate(margin, ratio float64) float64 {
	if ratio < partialBand {
		return defenderDefeatRate
	}
	return defenderVictoryBase + defenderVictorySpan*margin
}

func tierMultiplier(tier Tier) float64 {
	switch tier {
	case TierWeaker:
		return tierWeakerMultiplier
	case TierStronger:
		return tierStrongerMultiplier
	default:
		return 1.0
	}
}

// casualties applies rate to every stack, clamped so losses never go negative
// or exceed the committed quantity.
func casualties(a Army, rate float64) Army {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	lost := make(Army, len(a))
	for id, qty := range a {
		if qty <= 0 {
			continue
		}
		n := int(float64(qty) * rate)
		if n > qty {
			n = qty
		}
		if n > 0 {
			lost[id] = n
		}
	}
	return lost
}

func scaleInt(base int, frac float64) int {
	if base <= 0 || frac <= 0 {
		return 0
	}
	return int(float64(base) * frac)
}

func scaleInt64(base int64, frac float64) int64 {
	if base <= 0 || frac <= 0 {
		return 0
	}
	return int64(float64(base) * frac)
}

func narrative(mt MissionType, out Outcome) string {
	attLost := out.AttackerCasualties.Total()
	defLost := out.DefenderCasualties.Total()
	if !out.Victory && out.GoldStolen == 0 && out.LandConquered == 0 && out.BuildingsDestroyed == 0 {
		return fmt.Sprintf("The %s was repelled: %d attackers and %d defenders fell.", mt, attLost, defLost)
	}
	switch mt {
	case MissionInvasion:
		return fmt.Sprintf("The invasion seized %d acres (%d more laid waste); %d attackers and %d defenders fell.",
			out.LandConquered, out.LandWasted, attLost, defLost)
	case MissionPillage:
		return fmt.Sprintf("The raiders escaped with %d gold; %d attackers and %d defenders fell.",
			out.GoldStolen, attLost, defLost)
	case MissionSiege:
		return fmt.Sprintf("Siege engines leveled %d buildings; %d attackers and %d defenders fell.",
			out.BuildingsDestroyed, attLost, defLost)
	}
	return fmt.Sprintf("The battle ended with %d attacker and %d defender losses.", attLost, defLost)
}
