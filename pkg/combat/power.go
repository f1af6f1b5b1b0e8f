package combat

// AttackPower returns the tier-weighted offensive power of an army.
// Units missing from the catalog contribute nothing.
func AttackPower(a Army, cat Catalog) int64 {
	var power int64
	for id, qty := range a {
		def, ok := cat[id]
		if !ok || qty <= 0 {
			continue
		}
		power += int64(def.Attack) * int64(qty)
	}
	return power
}

// DefensePower returns the tier-weighted defensive power of a home garrison.
func DefensePower(a Army, cat Catalog) int64 {
	var power int64
	for id, qty := range a {
		def, ok := cat[id]
		if !ok || qty <= 0 {
			continue
		}
		power += int64(def.Defense) * int64(qty)
	}
	return power
}

// RelationTier classifies the defender relative to the attacker from the ratio
// defenderNetworth / attackerNetworth. The cutoffs are tuning values, not a
// hard contract; the similar band is inclusive on both ends.
func RelationTier(attackerNetworth, defenderNetworth int64, weakerBelow, strongerAbove float64) Tier {
	if attackerNetworth <= 0 {
		return TierStronger
	}
	ratio := float64(defenderNetworth) / float64(attackerNetworth)
	switch {
	case ratio < weakerBelow:
		return TierWeaker
	case ratio > strongerAbove:
		return TierStronger
	default:
		return TierSimilar
	}
}
