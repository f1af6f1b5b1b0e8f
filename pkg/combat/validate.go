package combat

import "fmt"

// DenialReason identifies why an attack was refused. Denials are values
// returned to the caller, never errors that unwind past the resolver.
type DenialReason string

const (
	DenySelfTarget             DenialReason = "self_target"
	DenyAllied                 DenialReason = "allied"
	DenyAttackerProtected      DenialReason = "attacker_protected"
	DenyTargetProtected        DenialReason = "target_protected"
	DenyOutOfRange             DenialReason = "out_of_range"
	DenyInsufficientTroops     DenialReason = "insufficient_troops"
	DenyConcurrentModification DenialReason = "concurrent_modification"
	DenyArmyAwayReturning      DenialReason = "army_away_return_in_progress"
)

// Denial carries a typed rejection reason and a human-readable detail.
type Denial struct {
	Reason DenialReason `json:"reason"`
	Detail string       `json:"detail,omitempty"`
}

func deny(reason DenialReason, format string, args ...any) *Denial {
	return &Denial{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Snapshot holds the combat-relevant fields of a province captured at
// submission time. Range eligibility is evaluated against these values only;
// the authoritative row is never re-read mid-validation.
type Snapshot struct {
	ID        string
	Networth  int64
	GuildID   string
	Alliances []string
	Protected bool
	ArmyHome  Army
}

// Rules are the tunable eligibility constants.
type Rules struct {
	RangeLow  float64 // lower bound of the networth band, e.g. 0.8
	RangeHigh float64 // upper bound, e.g. 1.2
}

// Validate applies the eligibility checks in order; the first failing check
// wins. retaliation reports whether the attacker holds an open retaliation
// window against the defender (i.e. the defender attacked the attacker within
// the window), which bypasses both the protection and range checks.
// Validation is read-only: all mutation happens in the resolver afterwards.
func Validate(attacker, defender Snapshot, mt MissionType, committed Army, cat Catalog, retaliation bool, rules Rules) *Denial {
	if d := ValidateEligibility(attacker, defender, retaliation, rules); d != nil {
		return d
	}
	return ValidateCommitment(attacker, mt, committed, cat)
}

// ValidateEligibility runs the relationship and range checks without the troop
// commitment check. Espionage shares these checks but commits no combat units.
func ValidateEligibility(attacker, defender Snapshot, retaliation bool, rules Rules) *Denial {
	if attacker.ID == defender.ID {
		return deny(DenySelfTarget, "a province cannot attack itself")
	}

	if Allied(attacker, defender) {
		return deny(DenyAllied, "provinces share a guild or an alliance pact")
	}

	if attacker.Protected {
		return deny(DenyAttackerProtected, "attacking provinces under protection must forfeit it first")
	}

	if defender.Protected && !retaliation {
		return deny(DenyTargetProtected, "target is under protection")
	}

	if !retaliation {
		low := rules.RangeLow * float64(attacker.Networth)
		high := rules.RangeHigh * float64(attacker.Networth)
		nw := float64(defender.Networth)
		if nw < low || nw > high {
			return deny(DenyOutOfRange, "target networth %d outside %.0f-%.0f band", defender.Networth, low, high)
		}
	}

	return nil
}

// ValidateCommitment checks the troop commitment alone: every committed unit
// must be present in sufficient quantity at home, and the mission must include
// at least one combat-capable unit. Used both in the initial validation and in
// the under-lock re-check.
func ValidateCommitment(attacker Snapshot, mt MissionType, committed Army, cat Catalog) *Denial {
	if !mt.Valid() {
		return deny(DenyInsufficientTroops, "unknown mission type %q", mt)
	}
	if committed.Total() <= 0 {
		return deny(DenyInsufficientTroops, "no troops committed")
	}

	capable := false
	for id, qty := range committed {
		if qty <= 0 {
			return deny(DenyInsufficientTroops, "non-positive quantity for unit %q", id)
		}
		def, ok := cat[id]
		if !ok {
			return deny(DenyInsufficientTroops, "unknown unit type %q", id)
		}
		if qty > attacker.ArmyHome[id] {
			return deny(DenyInsufficientTroops, "committed %d %s but only %d at home", qty, id, attacker.ArmyHome[id])
		}
		if def.CombatCapable {
			capable = true
		}
	}
	if !capable {
		return deny(DenyInsufficientTroops, "mission needs at least one combat-capable unit")
	}
	return nil
}

// Allied reports whether the two provinces share a guild or either guild
// appears in the other's alliance set. Target listings apply the same check,
// so it is exported rather than kept private to Validate.
func Allied(a, b Snapshot) bool {
	if a.GuildID != "" && a.GuildID == b.GuildID {
		return true
	}
	for _, g := range a.Alliances {
		if g != "" && g == b.GuildID {
			return true
		}
	}
	for _, g := range b.Alliances {
		if g != "" && g == a.GuildID {
			return true
		}
	}
	return false
}
