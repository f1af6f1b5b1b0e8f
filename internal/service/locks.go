package service

import "sync"

// provinceLocks hands out one mutex per province ID. Mission resolution must
// hold both combatants' locks; acquiring them in ascending ID order makes
// reciprocal attacks (A hits B while B hits A) serialize instead of deadlock.
type provinceLocks struct {
	mu sync.Map
}

// provinceLockTable is the process-wide lock table. Every writer of a province
// ledger (mission resolution, espionage spy attrition) must serialize through
// it, so it is shared across services rather than owned by one.
var provinceLockTable provinceLocks

func (l *provinceLocks) get(id string) *sync.Mutex {
	m, _ := l.mu.LoadOrStore(id, &sync.Mutex{})
	return m.(*sync.Mutex)
}

// lock acquires a single province's lock and returns the unlock function.
func (l *provinceLocks) lock(id string) func() {
	m := l.get(id)
	m.Lock()
	return m.Unlock
}

// lockPair acquires both provinces' locks in ascending ID order and returns
// the unlock function. IDs must differ; self-targeting is rejected before any
// lock is taken.
func (l *provinceLocks) lockPair(a, b string) func() {
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	fm := l.get(first)
	sm := l.get(second)
	fm.Lock()
	sm.Lock()
	return func() {
		sm.Unlock()
		fm.Unlock()
	}
}
