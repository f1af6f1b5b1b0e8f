package model

import (
	"time"

	"github.com/mthorne/provincia/api/pkg/combat"
)

// Mission statuses. A mission is created at submission and finalized
// synchronously; no pending state survives past the call.
const (
	MissionResolving = "resolving"
	MissionResolved  = "resolved"
	MissionRejected  = "rejected"
)

// Province is one player's holdings. The combat-relevant fields are owned by
// this service; the economic fields belong to the economy service.
type Province struct {
	ID        string      `json:"id"`
	OwnerID   string      `json:"owner_id"`
	Name      string      `json:"name"`
	Networth  int64       `json:"networth"`
	Land      int         `json:"land"`
	Buildings int         `json:"buildings"`
	Gold      int64       `json:"gold"`
	Mana      int64       `json:"mana"`
	Food      int64       `json:"food"`
	Turns     int         `json:"turns"`
	ArmyHome  combat.Army `json:"army_home"`
	GuildID   string      `json:"guild_id,omitempty"`
	Alliances []string    `json:"alliances,omitempty"`

	ProtectionNewbieUntil     time.Time  `json:"protection_newbie_until"`
	ProtectionDefeatUntil     *time.Time `json:"protection_defeat_until,omitempty"`
	ProtectionHarassmentUntil *time.Time `json:"protection_harassment_until,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProtectedAt reports whether any protection is active at the given instant.
// Protection is evaluated lazily on read; there is no background sweep.
func (p *Province) ProtectedAt(now time.Time) bool {
	if p.ProtectionNewbieUntil.After(now) {
		return true
	}
	if p.ProtectionDefeatUntil != nil && p.ProtectionDefeatUntil.After(now) {
		return true
	}
	if p.ProtectionHarassmentUntil != nil && p.ProtectionHarassmentUntil.After(now) {
		return true
	}
	return false
}

// OutboundProtectedAt reports whether protection blocks the province's own
// outgoing attacks. Only newbie and defeat protection do; harassment
// protection shields the province as a target and leaves its offense free.
func (p *Province) OutboundProtectedAt(now time.Time) bool {
	if p.ProtectionNewbieUntil.After(now) {
		return true
	}
	return p.ProtectionDefeatUntil != nil && p.ProtectionDefeatUntil.After(now)
}

// ProtectionStatus is the derived view of the three protection states,
// consumed by UI badges.
type ProtectionStatus struct {
	Newbie          bool       `json:"newbie"`
	NewbieUntil     *time.Time `json:"newbie_until,omitempty"`
	Defeat          bool       `json:"defeat"`
	DefeatUntil     *time.Time `json:"defeat_until,omitempty"`
	Harassment      bool       `json:"harassment"`
	HarassmentUntil *time.Time `json:"harassment_until,omitempty"`
}

// ArmyAway is a troop stack committed to a mission, unavailable for offense or
// home defense until its return counter reaches zero.
type ArmyAway struct {
	MissionID        string      `json:"mission_id"`
	ProvinceID       string      `json:"province_id"`
	Composition      combat.Army `json:"composition"`
	TurnsUntilReturn int         `json:"turns_until_return"`
}

// Mission is one attack submission. Immutable after resolution except status.
type Mission struct {
	ID           string             `json:"id"`
	AttackerID   string             `json:"attacker_id"`
	DefenderID   string             `json:"defender_id"`
	Type         combat.MissionType `json:"mission_type"`
	Composition  combat.Army        `json:"composition"`
	Status       string             `json:"status"`
	RejectReason string             `json:"reject_reason,omitempty"`
	SubmittedAt  time.Time          `json:"submitted_at"`
	ResolvedAt   *time.Time         `json:"resolved_at,omitempty"`
}

// BattleReport is the immutable, fully-computed outcome of a resolved mission,
// persisted for audit and read by messaging/notification collaborators.
type BattleReport struct {
	MissionID          string      `json:"mission_id"`
	AttackerID         string      `json:"attacker_id"`
	DefenderID         string      `json:"defender_id"`
	Victory            bool        `json:"victory"`
	AttackerCasualties combat.Army `json:"attacker_casualties"`
	DefenderCasualties combat.Army `json:"defender_casualties"`
	GoldStolen         int64       `json:"gold_stolen"`
	LandConquered      int         `json:"land_conquered"`
	LandWasted         int         `json:"land_wasted"`
	BuildingsDestroyed int         `json:"buildings_destroyed"`
	Narrative          string      `json:"narrative"`
	CreatedAt          time.Time   `json:"created_at"`
}

// RetaliationWindow grants a victim the right to attack a specific attacker
// outside normal range rules until it expires. Keyed by the ordered pair; it
// never grants the original attacker anything.
type RetaliationWindow struct {
	VictimID   string    `json:"victim_id"`
	AttackerID string    `json:"attacker_id"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// AttackRecord is one entry in a province's trailing-24h attack log.
type AttackRecord struct {
	AttackerID string    `json:"attacker_id"`
	At         time.Time `json:"at"`
}

// Intel is what a successful espionage run reveals about the defender.
type Intel struct {
	Networth int64       `json:"networth"`
	Gold     int64       `json:"gold"`
	Land     int         `json:"land"`
	ArmyHome combat.Army `json:"army_home"`
}

// EspionageReport records one espionage attempt, successful or not.
type EspionageReport struct {
	ID         string    `json:"id"`
	AttackerID string    `json:"attacker_id"`
	DefenderID string    `json:"defender_id"`
	SpiesSent  int       `json:"spies_sent"`
	SpiesLost  int       `json:"spies_lost"`
	Success    bool      `json:"success"`
	Intel      *Intel    `json:"intel,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TargetView is one row of the eligible-target listing.
type TargetView struct {
	ProvinceID     string      `json:"province_id"`
	Name           string      `json:"name"`
	Networth       int64       `json:"networth"`
	Land           int         `json:"land"`
	Tier           combat.Tier `json:"relationship_tier"`
	HasRetaliation bool        `json:"has_retaliation_available"`
}
