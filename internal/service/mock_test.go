package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mthorne/provincia/api/internal/model"
	"github.com/mthorne/provincia/api/pkg/combat"
)

type mockProvinceRepo struct {
	provinces map[string]*model.Province
	seq       int

	// findHook runs at the top of FindByID, letting tests mutate state between
	// the pre-lock read and the under-lock re-read.
	findHook func(id string)

	clearCalls int
}

func newMockProvinceRepo() *mockProvinceRepo {
	return &mockProvinceRepo{provinces: make(map[string]*model.Province)}
}

func copyProvince(p *model.Province) *model.Province {
	cp := *p
	cp.ArmyHome = p.ArmyHome.Clone()
	cp.Alliances = append([]string(nil), p.Alliances...)
	if p.ProtectionDefeatUntil != nil {
		t := *p.ProtectionDefeatUntil
		cp.ProtectionDefeatUntil = &t
	}
	if p.ProtectionHarassmentUntil != nil {
		t := *p.ProtectionHarassmentUntil
		cp.ProtectionHarassmentUntil = &t
	}
	return &cp
}

func (m *mockProvinceRepo) put(p *model.Province) {
	m.provinces[p.ID] = copyProvince(p)
}

func (m *mockProvinceRepo) Create(_ context.Context, ownerID, name string, newbieUntil time.Time) (*model.Province, error) {
	m.seq++
	p := &model.Province{
		ID:                    fmt.Sprintf("prov-%d", m.seq),
		OwnerID:               ownerID,
		Name:                  name,
		Networth:              1000,
		Land:                  250,
		Buildings:             50,
		Gold:                  10_000,
		ArmyHome:              combat.Army{},
		ProtectionNewbieUntil: newbieUntil,
		CreatedAt:             time.Now(),
		UpdatedAt:             time.Now(),
	}
	m.put(p)
	return copyProvince(p), nil
}

func (m *mockProvinceRepo) FindByID(_ context.Context, id string) (*model.Province, error) {
	if m.findHook != nil {
		m.findHook(id)
	}
	p, ok := m.provinces[id]
	if !ok {
		return nil, nil
	}
	return copyProvince(p), nil
}

func (m *mockProvinceRepo) FindByOwner(_ context.Context, ownerID string) (*model.Province, error) {
	for _, p := range m.provinces {
		if p.OwnerID == ownerID {
			return copyProvince(p), nil
		}
	}
	return nil, nil
}

func (m *mockProvinceRepo) ListOthers(_ context.Context, excludeID string) ([]model.Province, error) {
	var result []model.Province
	for _, p := range m.provinces {
		if p.ID != excludeID {
			result = append(result, *copyProvince(p))
		}
	}
	return result, nil
}

func (m *mockProvinceRepo) SaveLedger(_ context.Context, p *model.Province) error {
	if _, ok := m.provinces[p.ID]; !ok {
		return fmt.Errorf("province %s not found", p.ID)
	}
	m.put(p)
	return nil
}

func (m *mockProvinceRepo) SetDefeatProtection(_ context.Context, id string, until time.Time) error {
	p, ok := m.provinces[id]
	if !ok {
		return fmt.Errorf("province %s not found", id)
	}
	p.ProtectionDefeatUntil = &until
	return nil
}

func (m *mockProvinceRepo) SetHarassmentProtection(_ context.Context, id string, until time.Time) error {
	p, ok := m.provinces[id]
	if !ok {
		return fmt.Errorf("province %s not found", id)
	}
	p.ProtectionHarassmentUntil = &until
	return nil
}

func (m *mockProvinceRepo) ClearEarnedProtection(_ context.Context, id string, at time.Time) error {
	m.clearCalls++
	p, ok := m.provinces[id]
	if !ok {
		return fmt.Errorf("province %s not found", id)
	}
	if p.ProtectionNewbieUntil.After(at) {
		p.ProtectionNewbieUntil = at
	}
	if p.ProtectionDefeatUntil != nil && p.ProtectionDefeatUntil.After(at) {
		t := at
		p.ProtectionDefeatUntil = &t
	}
	return nil
}

type mockMissionRepo struct {
	provinces *mockProvinceRepo
	rejected  []model.Mission
	reports   map[string]*model.BattleReport
	away      []model.ArmyAway
	seq       int
	commitErr error
}

func newMockMissionRepo(provinces *mockProvinceRepo) *mockMissionRepo {
	return &mockMissionRepo{
		provinces: provinces,
		reports:   make(map[string]*model.BattleReport),
	}
}

func (m *mockMissionRepo) CreateRejected(_ context.Context, mission *model.Mission) (*model.Mission, error) {
	m.seq++
	mission.ID = fmt.Sprintf("mission-%d", m.seq)
	mission.Status = model.MissionRejected
	mission.SubmittedAt = time.Now()
	m.rejected = append(m.rejected, *mission)
	return mission, nil
}

func (m *mockMissionRepo) CommitResolution(_ context.Context, attacker, defender *model.Province, mission *model.Mission, report *model.BattleReport, away *model.ArmyAway) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.seq++
	mission.ID = fmt.Sprintf("mission-%d", m.seq)
	mission.Status = model.MissionResolved
	mission.SubmittedAt = time.Now()
	now := time.Now()
	mission.ResolvedAt = &now

	m.provinces.put(attacker)
	m.provinces.put(defender)

	report.MissionID = mission.ID
	report.CreatedAt = now
	rep := *report
	m.reports[mission.ID] = &rep

	away.MissionID = mission.ID
	m.away = append(m.away, *away)
	return nil
}

func (m *mockMissionRepo) FindReport(_ context.Context, missionID string) (*model.BattleReport, error) {
	rep, ok := m.reports[missionID]
	if !ok {
		return nil, nil
	}
	cp := *rep
	return &cp, nil
}

func (m *mockMissionRepo) ListReportsByProvince(_ context.Context, provinceID string, _ int) ([]model.BattleReport, error) {
	var result []model.BattleReport
	for _, rep := range m.reports {
		if rep.AttackerID == provinceID || rep.DefenderID == provinceID {
			result = append(result, *rep)
		}
	}
	return result, nil
}

func (m *mockMissionRepo) LandLostSince(_ context.Context, defenderID string, since time.Time) (int, error) {
	total := 0
	for _, rep := range m.reports {
		if rep.DefenderID == defenderID && rep.CreatedAt.After(since) {
			total += rep.LandConquered + rep.LandWasted
		}
	}
	return total, nil
}

func (m *mockMissionRepo) ListAway(_ context.Context, provinceID string) ([]model.ArmyAway, error) {
	var result []model.ArmyAway
	for _, a := range m.away {
		if a.ProvinceID == provinceID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockMissionRepo) AdvanceReturns(_ context.Context) ([]model.ArmyAway, error) {
	var remaining []model.ArmyAway
	var returned []model.ArmyAway
	for _, a := range m.away {
		a.TurnsUntilReturn--
		if a.TurnsUntilReturn <= 0 {
			if p, ok := m.provinces.provinces[a.ProvinceID]; ok {
				p.ArmyHome.Add(a.Composition)
			}
			returned = append(returned, a)
		} else {
			remaining = append(remaining, a)
		}
	}
	m.away = remaining
	return returned, nil
}

type mockCombatCache struct {
	windows   map[string]map[string]time.Time // victimID -> attackerID -> expiry
	attacks   map[string][]model.AttackRecord
	published []model.BattleReport
}

func newMockCombatCache() *mockCombatCache {
	return &mockCombatCache{
		windows: make(map[string]map[string]time.Time),
		attacks: make(map[string][]model.AttackRecord),
	}
}

func (m *mockCombatCache) OpenRetaliation(_ context.Context, victimID, attackerID string, expiresAt time.Time) error {
	if m.windows[victimID] == nil {
		m.windows[victimID] = make(map[string]time.Time)
	}
	m.windows[victimID][attackerID] = expiresAt
	return nil
}

func (m *mockCombatCache) HasRetaliation(_ context.Context, victimID, attackerID string, now time.Time) (bool, error) {
	exp, ok := m.windows[victimID][attackerID]
	return ok && exp.After(now), nil
}

func (m *mockCombatCache) ListRetaliation(_ context.Context, victimID string, now time.Time) ([]model.RetaliationWindow, error) {
	var result []model.RetaliationWindow
	for attackerID, exp := range m.windows[victimID] {
		if exp.After(now) {
			result = append(result, model.RetaliationWindow{
				VictimID: victimID, AttackerID: attackerID, ExpiresAt: exp,
			})
		}
	}
	return result, nil
}

func (m *mockCombatCache) RecordAttack(_ context.Context, defenderID, attackerID string, at time.Time) error {
	m.attacks[defenderID] = append(m.attacks[defenderID], model.AttackRecord{AttackerID: attackerID, At: at})
	return nil
}

func (m *mockCombatCache) AttackCountFrom(_ context.Context, defenderID, attackerID string, since time.Time) (int, error) {
	count := 0
	for _, rec := range m.attacks[defenderID] {
		if rec.AttackerID == attackerID && rec.At.After(since) {
			count++
		}
	}
	return count, nil
}

func (m *mockCombatCache) RecentAttacks(_ context.Context, defenderID string, since time.Time) ([]model.AttackRecord, error) {
	var result []model.AttackRecord
	for _, rec := range m.attacks[defenderID] {
		if rec.At.After(since) {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (m *mockCombatCache) PublishReport(_ context.Context, report *model.BattleReport) error {
	m.published = append(m.published, *report)
	return nil
}

type mockEspionageRepo struct {
	reports []model.EspionageReport
	seq     int
}

func (m *mockEspionageRepo) Create(_ context.Context, rep *model.EspionageReport) (*model.EspionageReport, error) {
	m.seq++
	rep.ID = fmt.Sprintf("esp-%d", m.seq)
	rep.CreatedAt = time.Now()
	m.reports = append(m.reports, *rep)
	return rep, nil
}

func (m *mockEspionageRepo) ListByProvince(_ context.Context, provinceID string, _ int) ([]model.EspionageReport, error) {
	var result []model.EspionageReport
	for _, rep := range m.reports {
		if rep.AttackerID == provinceID {
			result = append(result, rep)
		}
	}
	return result, nil
}

type mockUnitRepo struct {
	cat combat.Catalog
}

func (m *mockUnitRepo) Catalog(_ context.Context) (combat.Catalog, error) {
	return m.cat, nil
}

func testCatalog() combat.Catalog {
	return combat.Catalog{
		"soldier": {ID: "soldier", Name: "Soldier", Tier: 1, Attack: 10, Defense: 10, CombatCapable: true},
		"archer":  {ID: "archer", Name: "Archer", Tier: 1, Attack: 15, Defense: 25, CombatCapable: true},
		"knight":  {ID: "knight", Name: "Knight", Tier: 2, Attack: 40, Defense: 30, CombatCapable: true},
		"spy":     {ID: "spy", Name: "Spy", Tier: 1, CombatCapable: false},
	}
}
