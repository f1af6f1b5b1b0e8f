package combat

import "testing"

func testCatalog() Catalog {
	return Catalog{
		"soldier": {ID: "soldier", Name: "Soldier", Tier: 1, Attack: 10, Defense: 10, NetworthValue: 5, CombatCapable: true},
		"archer":  {ID: "archer", Name: "Archer", Tier: 2, Attack: 15, Defense: 25, NetworthValue: 8, CombatCapable: true},
		"knight":  {ID: "knight", Name: "Knight", Tier: 3, Attack: 40, Defense: 30, NetworthValue: 20, CombatCapable: true},
		"spy":     {ID: "spy", Name: "Spy", Tier: 1, Attack: 0, Defense: 0, NetworthValue: 3, CombatCapable: false},
	}
}

func testRules() Rules {
	return Rules{RangeLow: 0.8, RangeHigh: 1.2}
}

func snapshot(id string, networth int64) Snapshot {
	return Snapshot{
		ID:       id,
		Networth: networth,
		ArmyHome: Army{"soldier": 100, "archer": 50, "spy": 10},
	}
}

func TestValidateRangeBoundary(t *testing.T) {
	const n = 1_000_000
	tests := []struct {
		name     string
		defender int64
		allowed  bool
	}{
		{"exactly 80 percent", 800_000, true},
		{"exactly 120 percent", 1_200_000, true},
		{"just below band", 799_990, false},
		{"just above band", 1_200_010, false},
		{"mid band", 1_050_000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			att := snapshot("a", n)
			def := snapshot("b", tt.defender)
			d := Validate(att, def, MissionInvasion, Army{"soldier": 10}, testCatalog(), false, testRules())
			if tt.allowed && d != nil {
				t.Fatalf("expected allowed, got denial %s: %s", d.Reason, d.Detail)
			}
			if !tt.allowed {
				if d == nil {
					t.Fatal("expected denial, got allowed")
				}
				if d.Reason != DenyOutOfRange {
					t.Fatalf("expected %s, got %s", DenyOutOfRange, d.Reason)
				}
			}
		})
	}
}

func TestValidateRetaliationBypassesRange(t *testing.T) {
	att := snapshot("a", 1_000_000)
	def := snapshot("b", 5_000_000) // far outside the band

	if d := Validate(att, def, MissionPillage, Army{"soldier": 10}, testCatalog(), false, testRules()); d == nil || d.Reason != DenyOutOfRange {
		t.Fatalf("expected out_of_range without a window, got %v", d)
	}
	if d := Validate(att, def, MissionPillage, Army{"soldier": 10}, testCatalog(), true, testRules()); d != nil {
		t.Fatalf("expected retaliation to bypass range, got %s: %s", d.Reason, d.Detail)
	}
}

func TestValidateRetaliationBypassesTargetProtection(t *testing.T) {
	att := snapshot("a", 1_000_000)
	def := snapshot("b", 1_000_000)
	def.Protected = true

	if d := Validate(att, def, MissionInvasion, Army{"soldier": 10}, testCatalog(), false, testRules()); d == nil || d.Reason != DenyTargetProtected {
		t.Fatalf("expected target_protected, got %v", d)
	}
	if d := Validate(att, def, MissionInvasion, Army{"soldier": 10}, testCatalog(), true, testRules()); d != nil {
		t.Fatalf("expected retaliation to bypass protection, got %s", d.Reason)
	}
}

func TestValidateCheckOrder(t *testing.T) {
	cat := testCatalog()
	rules := testRules()

	tests := []struct {
		name string
		mut  func(att, def *Snapshot)
		want DenialReason
	}{
		{
			"self target wins over everything",
			func(att, def *Snapshot) { def.ID = att.ID; att.Protected = true },
			DenySelfTarget,
		},
		{
			"same guild",
			func(att, def *Snapshot) { att.GuildID = "g1"; def.GuildID = "g1" },
			DenyAllied,
		},
		{
			"attacker alliance pact",
			func(att, def *Snapshot) { att.Alliances = []string{"g2"}; def.GuildID = "g2" },
			DenyAllied,
		},
		{
			"defender alliance pact",
			func(att, def *Snapshot) { def.Alliances = []string{"g3"}; att.GuildID = "g3" },
			DenyAllied,
		},
		{
			"attacker protection wins over defender protection",
			func(att, def *Snapshot) { att.Protected = true; def.Protected = true },
			DenyAttackerProtected,
		},
		{
			"defender protection before range",
			func(att, def *Snapshot) { def.Protected = true; def.Networth = 1 },
			DenyTargetProtected,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			att := snapshot("a", 1_000_000)
			def := snapshot("b", 1_000_000)
			tt.mut(&att, &def)
			d := Validate(att, def, MissionInvasion, Army{"soldier": 10}, cat, false, rules)
			if d == nil {
				t.Fatal("expected denial, got allowed")
			}
			if d.Reason != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, d.Reason)
			}
		})
	}
}

func TestValidateCommitment(t *testing.T) {
	att := snapshot("a", 1_000_000)
	cat := testCatalog()

	tests := []struct {
		name      string
		mission   MissionType
		committed Army
		allowed   bool
	}{
		{"valid commitment", MissionInvasion, Army{"soldier": 100, "archer": 10}, true},
		{"full home army", MissionPillage, Army{"soldier": 100, "archer": 50}, true},
		{"empty army", MissionInvasion, Army{}, false},
		{"zero quantity", MissionInvasion, Army{"soldier": 0}, false},
		{"negative quantity", MissionInvasion, Army{"soldier": -5}, false},
		{"more than home", MissionInvasion, Army{"soldier": 101}, false},
		{"unknown unit", MissionInvasion, Army{"dragon": 1}, false},
		{"only non-combat units", MissionInvasion, Army{"spy": 5}, false},
		{"bad mission type", MissionType("parade"), Army{"soldier": 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ValidateCommitment(att, tt.mission, tt.committed, cat)
			if tt.allowed && d != nil {
				t.Fatalf("expected allowed, got %s: %s", d.Reason, d.Detail)
			}
			if !tt.allowed {
				if d == nil {
					t.Fatal("expected insufficient_troops denial")
				}
				if d.Reason != DenyInsufficientTroops {
					t.Fatalf("expected %s, got %s", DenyInsufficientTroops, d.Reason)
				}
			}
		})
	}
}
