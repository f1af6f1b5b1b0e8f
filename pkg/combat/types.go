// Package combat implements the pure combat rules of Provincia: attack
// eligibility, relationship tiers, and battle outcome computation. It performs
// no I/O; callers hand it submission-time snapshots and apply the results.
package combat

// MissionType is the kind of attack a province can launch.
type MissionType string

const (
	MissionInvasion MissionType = "invasion"
	MissionPillage  MissionType = "pillage"
	MissionSiege    MissionType = "siege"
)

// Valid reports whether mt is a recognized mission type.
func (mt MissionType) Valid() bool {
	switch mt {
	case MissionInvasion, MissionPillage, MissionSiege:
		return true
	}
	return false
}

// Army maps a unit type id to a quantity.
type Army map[string]int

// Clone returns a deep copy of the army.
func (a Army) Clone() Army {
	cp := make(Army, len(a))
	for id, qty := range a {
		cp[id] = qty
	}
	return cp
}

// Total returns the total number of units across all types.
func (a Army) Total() int {
	n := 0
	for _, qty := range a {
		n += qty
	}
	return n
}

// Add merges other into a, creating entries as needed.
func (a Army) Add(other Army) {
	for id, qty := range other {
		a[id] += qty
	}
}

// Subtract removes other from a, deleting entries that reach zero.
// Quantities never go negative; excess is ignored.
func (a Army) Subtract(other Army) {
	for id, qty := range other {
		left := a[id] - qty
		if left <= 0 {
			delete(a, id)
		} else {
			a[id] = left
		}
	}
}

// UnitDef is one entry in the unit catalog: the static combat stats of a tier.
type UnitDef struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Tier          int    `json:"tier"`
	Attack        int    `json:"attack"`
	Defense       int    `json:"defense"`
	UpkeepGold    int    `json:"upkeep_gold"`
	UpkeepFood    int    `json:"upkeep_food"`
	NetworthValue int    `json:"networth_value"`
	CombatCapable bool   `json:"combat_capable"`
}

// Catalog is the read-only unit type lookup keyed by unit id.
type Catalog map[string]UnitDef

// Tier is the relationship between two provinces' networth, derived at query
// time and never stored.
type Tier string

const (
	TierWeaker   Tier = "weaker"
	TierSimilar  Tier = "similar"
	TierStronger Tier = "stronger"
)
