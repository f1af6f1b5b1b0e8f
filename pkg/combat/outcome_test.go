package combat

import "testing"

func testTuning() Tuning {
	return Tuning{WeakerBelow: 0.9, StrongerAbove: 1.1}
}

func TestResolvePillageFullMargin(t *testing.T) {
	// Attacker networth 1,000,000 vs defender 1,050,000: within 5%, similar
	// tier. Full-margin pillage against 100,000 gold steals exactly 15%.
	in := Input{
		Attacker:         Army{"knight": 100}, // 4000 attack
		Defender:         Army{"soldier": 10}, // 100 defense
		Mission:          MissionPillage,
		AttackerNetworth: 1_000_000,
		DefenderNetworth: 1_050_000,
		DefenderGold:     100_000,
		DefenderLand:     2_000,
	}
	out := Resolve(in, testCatalog(), testTuning())

	if !out.Victory {
		t.Fatal("expected victory")
	}
	if out.Tier != TierSimilar {
		t.Fatalf("expected similar tier, got %s", out.Tier)
	}
	if out.GoldStolen != 15_000 {
		t.Fatalf("expected 15000 gold stolen, got %d", out.GoldStolen)
	}
	if out.LandConquered != 0 || out.BuildingsDestroyed != 0 {
		t.Fatalf("pillage must not touch land or buildings, got land=%d buildings=%d",
			out.LandConquered, out.BuildingsDestroyed)
	}
}

func TestResolveLootCaps(t *testing.T) {
	cat := testCatalog()
	base := Input{
		Attacker:          Army{"knight": 1000},
		Defender:          Army{"soldier": 1},
		AttackerNetworth:  1_000_000,
		DefenderNetworth:  1_000_000,
		DefenderGold:      1_000_000,
		DefenderLand:      10_000,
		DefenderBuildings: 500,
	}

	tests := []struct {
		mission MissionType
		check   func(t *testing.T, out Outcome)
	}{
		{MissionPillage, func(t *testing.T, out Outcome) {
			if out.GoldStolen > 150_000 {
				t.Fatalf("pillage exceeded 15%% cap: %d", out.GoldStolen)
			}
			if out.GoldStolen != 150_000 {
				t.Fatalf("full-margin pillage should hit the cap, got %d", out.GoldStolen)
			}
		}},
		{MissionInvasion, func(t *testing.T, out Outcome) {
			if out.LandConquered > 1_000 {
				t.Fatalf("invasion exceeded 10%% cap: %d", out.LandConquered)
			}
			if out.GoldStolen != 0 {
				t.Fatalf("invasion must not steal gold, got %d", out.GoldStolen)
			}
		}},
		{MissionSiege, func(t *testing.T, out Outcome) {
			if out.BuildingsDestroyed > 25 {
				t.Fatalf("siege exceeded 5%% cap: %d", out.BuildingsDestroyed)
			}
			if out.GoldStolen != 0 || out.LandConquered != 0 {
				t.Fatal("siege must not touch gold or land")
			}
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mission), func(t *testing.T) {
			in := base
			in.Mission = tt.mission
			tt.check(t, Resolve(in, cat, testTuning()))
		})
	}
}

func TestResolveCasualtyBounds(t *testing.T) {
	cat := testCatalog()
	armies := []struct {
		name     string
		attacker Army
		defender Army
	}{
		{"overwhelming attacker", Army{"knight": 1000}, Army{"soldier": 10}},
		{"overwhelming defender", Army{"soldier": 10}, Army{"knight": 1000}},
		{"even match", Army{"soldier": 100}, Army{"soldier": 100}},
		{"empty garrison", Army{"soldier": 50}, Army{}},
	}
	for _, tt := range armies {
		t.Run(tt.name, func(t *testing.T) {
			out := Resolve(Input{
				Attacker:         tt.attacker,
				Defender:         tt.defender,
				Mission:          MissionInvasion,
				AttackerNetworth: 1_000_000,
				DefenderNetworth: 1_000_000,
				DefenderLand:     1_000,
			}, cat, testTuning())

			for id, lost := range out.AttackerCasualties {
				if lost < 0 || lost > tt.attacker[id] {
					t.Fatalf("attacker casualties for %s out of bounds: %d of %d", id, lost, tt.attacker[id])
				}
			}
			for id, lost := range out.DefenderCasualties {
				if lost < 0 || lost > tt.defender[id] {
					t.Fatalf("defender casualties for %s out of bounds: %d of %d", id, lost, tt.defender[id])
				}
			}
		})
	}
}

func TestResolveLoserTakesHigherLosses(t *testing.T) {
	cat := testCatalog()

	// Decisive attacker victory: defender loses proportionally more.
	win := Resolve(Input{
		Attacker:         Army{"knight": 500},
		Defender:         Army{"soldier": 500},
		Mission:          MissionInvasion,
		AttackerNetworth: 1_000_000,
		DefenderNetworth: 1_000_000,
		DefenderLand:     1_000,
	}, cat, testTuning())
	if !win.Victory {
		t.Fatal("expected victory")
	}
	attRate := float64(win.AttackerCasualties.Total()) / 500
	defRate := float64(win.DefenderCasualties.Total()) / 500
	if defRate <= attRate {
		t.Fatalf("defender should lose proportionally more on defeat: attacker %.3f defender %.3f", attRate, defRate)
	}

	// Repelled attack: attacker pays.
	loss := Resolve(Input{
		Attacker:         Army{"soldier": 500},
		Defender:         Army{"knight": 500},
		Mission:          MissionInvasion,
		AttackerNetworth: 1_000_000,
		DefenderNetworth: 1_000_000,
		DefenderLand:     1_000,
	}, cat, testTuning())
	if loss.Victory {
		t.Fatal("expected defeat")
	}
	if loss.GoldStolen != 0 || loss.LandConquered != 0 || loss.BuildingsDestroyed != 0 {
		t.Fatal("a repelled attack must yield no loot")
	}
	attRate = float64(loss.AttackerCasualties.Total()) / 500
	defRate = float64(loss.DefenderCasualties.Total()) / 500
	if attRate <= defRate {
		t.Fatalf("attacker should lose proportionally more when repelled: attacker %.3f defender %.3f", attRate, defRate)
	}
}

func TestResolveStrongerDefenderInflictsMore(t *testing.T) {
	cat := testCatalog()
	in := Input{
		Attacker:         Army{"knight": 500},
		Defender:         Army{"soldier": 100},
		Mission:          MissionInvasion,
		AttackerNetworth: 1_000_000,
		DefenderLand:     1_000,
	}

	in.DefenderNetworth = 800_000 // weaker tier
	weaker := Resolve(in, cat, testTuning())
	in.DefenderNetworth = 1_500_000 // stronger tier
	stronger := Resolve(in, cat, testTuning())

	if weaker.Tier != TierWeaker || stronger.Tier != TierStronger {
		t.Fatalf("unexpected tiers: %s / %s", weaker.Tier, stronger.Tier)
	}
	if stronger.AttackerCasualties.Total() <= weaker.AttackerCasualties.Total() {
		t.Fatalf("stronger defenders should inflict more attacker casualties: weaker=%d stronger=%d",
			weaker.AttackerCasualties.Total(), stronger.AttackerCasualties.Total())
	}
}

func TestVictoryMargin(t *testing.T) {
	tests := []struct {
		ratio float64
		want  float64
	}{
		{0.0, 0},
		{0.49, 0},
		{0.5, 0},
		{0.75, 0.5},
		{1.0, 1},
		{3.0, 1},
	}
	for _, tt := range tests {
		if got := victoryMargin(tt.ratio); got != tt.want {
			t.Errorf("victoryMargin(%.2f) = %.2f, want %.2f", tt.ratio, got, tt.want)
		}
	}
}

func TestPartialVictoryScalesLoot(t *testing.T) {
	cat := testCatalog()
	in := Input{
		// 1500 attack vs 2000 defense: ratio 0.75, margin 0.5.
		Attacker:         Army{"soldier": 150},
		Defender:         Army{"soldier": 200},
		Mission:          MissionPillage,
		AttackerNetworth: 1_000_000,
		DefenderNetworth: 1_000_000,
		DefenderGold:     100_000,
	}
	out := Resolve(in, cat, testTuning())
	if out.Victory {
		t.Fatal("ratio below 1.0 is not a full victory")
	}
	if out.GoldStolen != 7_500 {
		t.Fatalf("half-margin pillage should steal 7.5%%, got %d", out.GoldStolen)
	}
}

func TestRelationTier(t *testing.T) {
	tests := []struct {
		att, def int64
		want     Tier
	}{
		{1_000_000, 850_000, TierWeaker},
		{1_000_000, 900_000, TierSimilar},
		{1_000_000, 1_100_000, TierSimilar},
		{1_000_000, 1_150_000, TierStronger},
		{0, 500_000, TierStronger},
	}
	for _, tt := range tests {
		if got := RelationTier(tt.att, tt.def, 0.9, 1.1); got != tt.want {
			t.Errorf("RelationTier(%d, %d) = %s, want %s", tt.att, tt.def, got, tt.want)
		}
	}
}
