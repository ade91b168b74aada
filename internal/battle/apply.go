package battle

import "slices"

// Apply returns the state that results from ev. The input state is never
// mutated; every event is defined for every status, most as no-ops.
func Apply(s State, ev Event) State {
	next := s.Clone()

	switch e := ev.(type) {
	case Reset:
		return NewIdleState()

	case Began:
		if next.Status != StatusIdle {
			return next
		}
		next.SessionID = e.SessionID
		next.Status = StatusConnecting
		next.Phase = PhaseWaiting

	case ConnectionOpened:
		if next.Status == StatusIdle {
			return next
		}
		next.Connected = true
		next.ConnectionLost = false
		if next.Status == StatusConnecting {
			next.Status = StatusActive
		}

	case ConnectionClosed:
		if next.Status == StatusIdle {
			return next
		}
		next.Connected = false

	case ConnectionLost:
		if next.Status == StatusIdle {
			return next
		}
		next.Connected = false
		next.ConnectionLost = true
		next.LastError = e.Reason

	case SelectionMade:
		if next.Status != StatusActive || next.Phase != PhaseActionSelect {
			return next
		}
		sel := e.Selection
		sel.Turn = next.CurrentTurn
		next.PendingSelection = &sel

	case SelectionWithdrawn:
		next.PendingSelection = nil

	case LocalError:
		if e.Err != nil {
			next.LastError = e.Err.Error()
		}

	case ErrorCleared:
		next.LastError = ""

	case ServerError:
		if next.Status == StatusIdle {
			return next
		}
		next.LastError = e.Message

	case ActionRejected:
		if next.Status == StatusIdle {
			return next
		}
		// Phase is left alone; the player resubmits.
		next.LastError = e.Reason
		next.PendingSelection = nil

	case ConnectionEstablished:
		if next.Status == StatusIdle {
			return next
		}
		next.Connected = true
		if next.Status == StatusConnecting {
			next.Status = StatusActive
		}

	case StateRefreshed:
		if next.Status == StatusIdle {
			return next
		}
		next.applySnapshot(&e.Snapshot)
		if next.Status == StatusConnecting {
			next.Status = StatusActive
		}
		if e.Snapshot.Completed && next.Status == StatusActive {
			next.end()
		}

	case TurnStarted:
		if !next.admit() {
			return next
		}
		next.advanceTurn(e.Turn)
		if e.FreeResource {
			next.Phase = PhaseDiceRoll
			next.PendingDiceRolls = slices.Clone(e.PlayerDice)
		} else {
			next.Phase = PhaseActionSelect
			next.PendingDiceRolls = nil
		}
		next.appendLog(LogEntry{Kind: EntryTurnStart, Turn: e.Turn})

	case ResourceDiceRolled:
		if !next.admit() {
			return next
		}
		next.Phase = PhaseDiceRoll
		next.PendingDiceRolls = slices.Clone(e.PlayerDice)

	case DiceAllocated:
		if !next.admit() {
			return next
		}
		next.PendingDiceRolls = nil
		next.Phase = PhaseActionSelect
		patchPools(next.PlayerTeam, e.PlayerPools)
		patchPools(next.EnemyTeam, e.EnemyPools)
		next.applySnapshot(e.Snapshot)

	case ActionResolved:
		if !next.admit() {
			return next
		}
		next.applySnapshot(e.Snapshot)
		next.Phase = PhaseResolution
		next.LastPlayerAction = e.Player
		next.LastEnemyAction = e.Enemy
		next.appendLog(LogEntry{Kind: EntryAction, Turn: next.CurrentTurn, Player: e.Player, Enemy: e.Enemy})
		next.PendingSelection = nil

	case KoSwitchPrompted:
		if !next.admit() {
			return next
		}
		next.Phase = PhaseKoSwitch
		next.KoSwitch = &KoSwitch{Required: true, Options: slices.Clone(e.Options)}
		if e.Error != "" {
			next.LastError = e.Error
		}

	case ForcedSwitch:
		if !next.admit() {
			return next
		}
		if t := next.team(e.Team); t != nil && e.NewIndex >= 0 && e.NewIndex < len(t.Cores) {
			t.ActiveCoreIndex = e.NewIndex
		}
		// An enemy forced switch is informational only.
		if e.Team == SidePlayer {
			next.KoSwitch = nil
			if next.Phase == PhaseKoSwitch {
				next.Phase = PhaseActionSelect
			}
		}
		next.appendLog(LogEntry{Kind: EntryForcedSwitch, Turn: next.CurrentTurn, Team: e.Team, NewIndex: e.NewIndex})

	case EffectTicked:
		if !next.admit() {
			return next
		}
		for _, tick := range e.Events {
			if tick.Kind == TickHeal {
				next.heal(tick.Team, tick.CoreName, tick.Amount)
			}
		}
		if len(e.Events) > 0 {
			next.appendLog(LogEntry{Kind: EntryEffectTick, Turn: next.CurrentTurn, Events: slices.Clone(e.Events)})
		}

	case BattleEnded:
		// A completed snapshot can end the session before the result arrives.
		late := next.Status == StatusEnded && next.Result == ""
		if !late && !next.admit() {
			return next
		}
		next.applySnapshot(e.Snapshot)
		rewards := e.Rewards
		next.Result = e.Result
		next.Rewards = &rewards
		next.end()
		next.appendLog(LogEntry{Kind: EntryBattleEnd, Turn: next.CurrentTurn, Result: e.Result, Rewards: &rewards})
	}

	next.normalize()
	return next
}

// admit reports whether a phase-bearing server event may be applied. A live
// frame while connecting proves the socket is up, so it promotes to active.
func (s *State) admit() bool {
	switch s.Status {
	case StatusConnecting:
		s.Status = StatusActive
		return true
	case StatusActive:
		return true
	default:
		return false
	}
}

func (s *State) advanceTurn(turn int) {
	if turn > s.CurrentTurn {
		s.CurrentTurn = turn
	}
}

func (s *State) applySnapshot(snap *Snapshot) {
	if snap == nil {
		return
	}
	if snap.PlayerTeam != nil {
		s.PlayerTeam = snap.PlayerTeam.clone()
	}
	if snap.EnemyTeam != nil {
		s.EnemyTeam = snap.EnemyTeam.clone()
	}
	s.advanceTurn(snap.CurrentTurn)
	if snap.NPCID != "" {
		s.NPCID = snap.NPCID
	}
	if snap.NPCName != "" {
		s.NPCName = snap.NPCName
	}
}

func (s *State) end() {
	s.Status = StatusEnded
	s.Phase = PhaseWaiting
}

func (s *State) heal(side Side, coreName string, amount int) {
	t := s.team(side)
	if t == nil {
		return
	}
	for i := range t.Cores {
		c := &t.Cores[i]
		if c.Name != coreName {
			continue
		}
		c.CurrentHP = clamp(c.CurrentHP+amount, 0, c.MaxHP)
		return
	}
}

func (s *State) appendLog(e LogEntry) {
	s.TurnLog = append(s.TurnLog, e)
}

// normalize drops phase-scoped fields that do not belong to the current phase.
// A selection left over from an earlier turn or phase was never answered and
// the server has moved on without it.
func (s *State) normalize() {
	if sel := s.PendingSelection; sel != nil && (s.Phase != PhaseActionSelect || sel.Turn < s.CurrentTurn) {
		s.PendingSelection = nil
	}
	if s.Phase != PhaseDiceRoll {
		s.PendingDiceRolls = nil
	}
	if s.Phase != PhaseKoSwitch {
		s.KoSwitch = nil
	}
}

func patchPools(t *Team, p *Pools) {
	if t == nil || p == nil {
		return
	}
	t.EnergyPool = p.Energy
	t.PhysicalPool = p.Physical
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
