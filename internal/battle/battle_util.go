package battle

import "slices"

func NewIdleState() State {
	return State{
		Status: StatusIdle,
		Phase:  PhaseWaiting,
	}
}

// Clone returns a deep copy. Moves, outcomes and log entries are shared
// because nothing mutates them after construction.
func (s State) Clone() State {
	c := s
	c.PlayerTeam = s.PlayerTeam.clone()
	c.EnemyTeam = s.EnemyTeam.clone()
	c.PendingDiceRolls = slices.Clone(s.PendingDiceRolls)
	c.TurnLog = slices.Clone(s.TurnLog)
	if s.PendingSelection != nil {
		sel := *s.PendingSelection
		c.PendingSelection = &sel
	}
	if s.KoSwitch != nil {
		ks := *s.KoSwitch
		ks.Options = slices.Clone(s.KoSwitch.Options)
		c.KoSwitch = &ks
	}
	if s.Rewards != nil {
		r := *s.Rewards
		c.Rewards = &r
	}
	return c
}

func (t *Team) clone() *Team {
	if t == nil {
		return nil
	}
	c := *t
	c.Cores = slices.Clone(t.Cores)
	return &c
}

func ContainsEntry(log []LogEntry, kind EntryKind) bool {
	for _, e := range log {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// LastEntry returns the most recent entry of the given kind.
func LastEntry(log []LogEntry, kind EntryKind) (LogEntry, bool) {
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].Kind == kind {
			return log[i], true
		}
	}
	return LogEntry{}, false
}

// Replay folds events over a fresh idle state.
func Replay(events []Event) State {
	s := NewIdleState()
	for _, ev := range events {
		s = Apply(s, ev)
	}
	return s
}
