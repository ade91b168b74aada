package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTeam() *Team {
	return &Team{
		Cores: []Core{
			{ID: "c1", Name: "Alpha", CurrentHP: 40, MaxHP: 50, Moves: []Move{
				{ID: "m1", Name: "Pulse", DamageType: DamageEnergy, ResourceCost: 3},
				{ID: "m2", Name: "Ram", DamageType: DamagePhysical, ResourceCost: 2},
			}},
			{ID: "c2", Name: "Beta", CurrentHP: 30, MaxHP: 30},
			{ID: "c3", Name: "Gamma", CurrentHP: 0, MaxHP: 25},
		},
		EnergyPool:   2,
		PhysicalPool: 4,
	}
}

func activeState() State {
	s := Replay([]Event{
		Began{SessionID: "b-1"},
		ConnectionOpened{},
		StateRefreshed{Snapshot: Snapshot{PlayerTeam: newTeam(), EnemyTeam: newTeam(), CurrentTurn: 1}},
	})
	return s
}

func inPhase(phase Phase) State {
	s := activeState()
	s.Phase = phase
	return s
}

// checkInvariants asserts the properties that must hold after every transition.
func checkInvariants(t *testing.T, prev, next State) {
	t.Helper()
	if len(next.PendingDiceRolls) > 0 {
		assert.Equal(t, PhaseDiceRoll, next.Phase, "dice pending outside dice_roll")
	}
	if next.KoSwitch != nil {
		assert.Equal(t, PhaseKoSwitch, next.Phase, "ko prompt outside ko_switch")
	}
	if next.PendingSelection != nil {
		assert.Equal(t, PhaseActionSelect, next.Phase, "selection pending outside action_select")
		assert.Equal(t, next.CurrentTurn, next.PendingSelection.Turn, "selection from an earlier turn")
	}
	for _, team := range []*Team{next.PlayerTeam, next.EnemyTeam} {
		if team == nil {
			continue
		}
		for _, c := range team.Cores {
			assert.GreaterOrEqual(t, c.CurrentHP, 0)
			assert.LessOrEqual(t, c.CurrentHP, c.MaxHP)
		}
	}
	if prev.Status == StatusActive && next.Status == StatusActive {
		assert.GreaterOrEqual(t, next.CurrentTurn, prev.CurrentTurn)
	}
	if next.Status != StatusIdle && len(prev.TurnLog) > 0 {
		require.GreaterOrEqual(t, len(next.TurnLog), len(prev.TurnLog), "log shrank")
		assert.Equal(t, prev.TurnLog, next.TurnLog[:len(prev.TurnLog)], "log rewritten")
	}
	assert.True(t, allowedStatus(prev.Status, next.Status), "status %s -> %s", prev.Status, next.Status)
}

func allowedStatus(from, to Status) bool {
	if from == to || to == StatusIdle {
		return true
	}
	switch from {
	case StatusIdle:
		return to == StatusConnecting
	case StatusConnecting:
		return to == StatusActive || to == StatusEnded
	case StatusActive:
		return to == StatusEnded
	}
	return false
}

func TestApply_BattleInitScenario(t *testing.T) {
	s := Apply(NewIdleState(), Began{SessionID: "b-1"})
	require.Equal(t, StatusConnecting, s.Status)

	s = Apply(s, StateRefreshed{Snapshot: Snapshot{PlayerTeam: newTeam(), EnemyTeam: newTeam(), CurrentTurn: 1}})
	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, PhaseWaiting, s.Phase)
	assert.Equal(t, 1, s.CurrentTurn)
	assert.Equal(t, "b-1", s.SessionID)
}

func TestApply_FreeResourceTurnStart(t *testing.T) {
	s := activeState()
	next := Apply(s, TurnStarted{
		Turn:         1,
		FreeResource: true,
		PlayerDice:   []DiceRoll{{CoreID: "c1", CoreName: "Alpha", RollValue: 5}},
	})

	assert.Equal(t, PhaseDiceRoll, next.Phase)
	require.Len(t, next.PendingDiceRolls, 1)
	assert.Equal(t, 5, next.PendingDiceRolls[0].RollValue)
	require.Len(t, next.TurnLog, len(s.TurnLog)+1)
	assert.Equal(t, EntryTurnStart, next.TurnLog[len(next.TurnLog)-1].Kind)
	checkInvariants(t, s, next)
}

func TestApply_NormalTurnStartClearsDice(t *testing.T) {
	s := inPhase(PhaseDiceRoll)
	s.PendingDiceRolls = []DiceRoll{{CoreID: "c1", RollValue: 3}}

	next := Apply(s, TurnStarted{Turn: 2})
	assert.Equal(t, PhaseActionSelect, next.Phase)
	assert.Empty(t, next.PendingDiceRolls)
	assert.Equal(t, 2, next.CurrentTurn)
}

func TestApply_DiceAllocated(t *testing.T) {
	s := Apply(activeState(), TurnStarted{
		Turn:         1,
		FreeResource: true,
		PlayerDice:   []DiceRoll{{CoreID: "c1", CoreName: "Alpha", RollValue: 5}},
	})

	refreshed := newTeam()
	refreshed.EnergyPool = 7
	next := Apply(s, DiceAllocated{
		PlayerPools: &Pools{Energy: 7, Physical: 4},
		Snapshot:    &Snapshot{PlayerTeam: refreshed, EnemyTeam: newTeam(), CurrentTurn: 1},
	})

	assert.Empty(t, next.PendingDiceRolls)
	assert.Equal(t, PhaseActionSelect, next.Phase)
	assert.Equal(t, 7, next.PlayerTeam.EnergyPool)
	checkInvariants(t, s, next)
}

func TestApply_DiceAllocatedPoolPatchWithoutSnapshot(t *testing.T) {
	s := inPhase(PhaseDiceRoll)
	next := Apply(s, DiceAllocated{PlayerPools: &Pools{Energy: 9, Physical: 1}, EnemyPools: &Pools{Energy: 2, Physical: 2}})
	assert.Equal(t, 9, next.PlayerTeam.EnergyPool)
	assert.Equal(t, 1, next.PlayerTeam.PhysicalPool)
	assert.Equal(t, 2, next.EnemyTeam.EnergyPool)
}

func TestApply_ActionResultMiss(t *testing.T) {
	s := inPhase(PhaseActionSelect)
	s = Apply(s, SelectionMade{Selection: Selection{Kind: ActionMove, MoveID: "m1"}})
	require.NotNil(t, s.PendingSelection)

	next := Apply(s, ActionResolved{
		Player: &ActionOutcome{Kind: ActionMove, Success: true, Hit: false, MoveName: "Pulse", SourceCore: "Alpha"},
		Enemy:  &ActionOutcome{Kind: ActionPass, Success: true},
	})

	assert.Nil(t, next.PendingSelection)
	assert.Equal(t, PhaseResolution, next.Phase)
	entry, ok := LastEntry(next.TurnLog, EntryAction)
	require.True(t, ok)
	require.NotNil(t, entry.Player)
	assert.False(t, entry.Player.Hit)
	assert.Contains(t, entry.Describe()[0], "MISSED!")
	checkInvariants(t, s, next)
}

func TestApply_ActionRejectedKeepsPhase(t *testing.T) {
	s := Apply(inPhase(PhaseActionSelect), SelectionMade{Selection: Selection{Kind: ActionPass}})

	next := Apply(s, ActionRejected{Reason: "Not enough energy"})
	assert.Nil(t, next.PendingSelection)
	assert.Equal(t, PhaseActionSelect, next.Phase)
	assert.Equal(t, "Not enough energy", next.LastError)
	assert.Len(t, next.TurnLog, len(s.TurnLog))
}

func TestApply_SelectionSurvivesUnrelatedEvents(t *testing.T) {
	others := []Event{
		ConnectionOpened{},
		ConnectionClosed{},
		ConnectionEstablished{BattleID: "b-1"},
		StateRefreshed{Snapshot: Snapshot{PlayerTeam: newTeam(), CurrentTurn: 1}},
		ServerError{Message: "boom"},
		LocalError{Err: ErrWrongPhase},
		ErrorCleared{},
		ForcedSwitch{Team: SideEnemy, NewIndex: 1},
		EffectTicked{Events: []TickEvent{{Kind: TickHeal, Team: SidePlayer, CoreName: "Alpha", Amount: 5}}},
		SelectionMade{Selection: Selection{Kind: ActionPass}},
	}
	for _, ev := range others {
		s := Apply(inPhase(PhaseActionSelect), SelectionMade{Selection: Selection{Kind: ActionMove, MoveID: "m1"}})
		next := Apply(s, ev)
		assert.NotNil(t, next.PendingSelection, "%T cleared the selection", ev)
	}
}

func TestApply_UnansweredSelectionDroppedOnResync(t *testing.T) {
	events := []Event{
		TurnStarted{Turn: 2},
		SelectionMade{Selection: Selection{Kind: ActionPass}},
		ConnectionClosed{},
		ConnectionOpened{},
		StateRefreshed{Snapshot: Snapshot{PlayerTeam: newTeam(), EnemyTeam: newTeam(), CurrentTurn: 3}},
		TurnStarted{Turn: 3, FreeResource: true, PlayerDice: []DiceRoll{{CoreID: "c1", RollValue: 3}}},
		DiceAllocated{PlayerPools: &Pools{Energy: 5, Physical: 4}},
	}

	s := activeState()
	for _, ev := range events {
		next := Apply(s, ev)
		checkInvariants(t, s, next)
		s = next
	}

	assert.Equal(t, PhaseActionSelect, s.Phase)
	assert.Nil(t, s.PendingSelection)
	assert.NoError(t, Check(s, Command{Type: CmdPass}))
}

func TestApply_SelectionFromEarlierTurnDropped(t *testing.T) {
	s := Apply(inPhase(PhaseActionSelect), SelectionMade{Selection: Selection{Kind: ActionMove, MoveID: "m2"}})
	require.NotNil(t, s.PendingSelection)
	assert.Equal(t, 1, s.PendingSelection.Turn)

	// Resync lands straight in the next turn's action_select.
	next := Apply(s, TurnStarted{Turn: 2})
	assert.Equal(t, PhaseActionSelect, next.Phase)
	assert.Nil(t, next.PendingSelection)
	checkInvariants(t, s, next)
}

func TestApply_SelectionWithdrawn(t *testing.T) {
	s := Apply(inPhase(PhaseActionSelect), SelectionMade{Selection: Selection{Kind: ActionPass}})
	require.NotNil(t, s.PendingSelection)

	next := Apply(s, SelectionWithdrawn{})
	assert.Nil(t, next.PendingSelection)
	assert.Equal(t, PhaseActionSelect, next.Phase)
	assert.Equal(t, s.TurnLog, next.TurnLog)
}

func TestApply_KoSwitchCycle(t *testing.T) {
	s := inPhase(PhaseResolution)
	s.PlayerTeam.Cores[0].CurrentHP = 0

	prompted := Apply(s, KoSwitchPrompted{Options: []SwitchOption{{Index: 1, Name: "Beta"}}})
	assert.Equal(t, PhaseKoSwitch, prompted.Phase)
	require.NotNil(t, prompted.KoSwitch)
	assert.True(t, prompted.KoSwitch.Required)
	checkInvariants(t, s, prompted)

	// Enemy switches never satisfy the player's prompt.
	enemy := Apply(prompted, ForcedSwitch{Team: SideEnemy, NewIndex: 2})
	assert.Equal(t, PhaseKoSwitch, enemy.Phase)
	assert.NotNil(t, enemy.KoSwitch)
	assert.Equal(t, 2, enemy.EnemyTeam.ActiveCoreIndex)

	done := Apply(enemy, ForcedSwitch{Team: SidePlayer, NewIndex: 1})
	assert.Equal(t, PhaseActionSelect, done.Phase)
	assert.Nil(t, done.KoSwitch)
	assert.Equal(t, 1, done.PlayerTeam.ActiveCoreIndex)
	entry, ok := LastEntry(done.TurnLog, EntryForcedSwitch)
	require.True(t, ok)
	assert.Equal(t, SidePlayer, entry.Team)
	assert.Equal(t, 1, entry.NewIndex)
}

func TestApply_KoSwitchPromptError(t *testing.T) {
	next := Apply(inPhase(PhaseKoSwitch), KoSwitchPrompted{
		Options: []SwitchOption{{Index: 1}},
		Error:   "Invalid core selection",
	})
	assert.Equal(t, "Invalid core selection", next.LastError)
}

func TestApply_ForcedSwitchOutOfRangeIgnored(t *testing.T) {
	s := inPhase(PhaseResolution)
	next := Apply(s, ForcedSwitch{Team: SidePlayer, NewIndex: 9})
	assert.Equal(t, 0, next.PlayerTeam.ActiveCoreIndex)
	assert.True(t, ContainsEntry(next.TurnLog, EntryForcedSwitch))
}

func TestApply_EffectTickClampsHeal(t *testing.T) {
	cases := []struct {
		name   string
		amount int
		want   int
	}{
		{name: "partial heal", amount: 5, want: 45},
		{name: "overheal clamps to max", amount: 500, want: 50},
		{name: "exact fill", amount: 10, want: 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := inPhase(PhaseActionSelect)
			next := Apply(s, EffectTicked{Events: []TickEvent{
				{Kind: TickHeal, Team: SidePlayer, CoreName: "Alpha", Amount: tc.amount},
			}})
			assert.Equal(t, tc.want, next.PlayerTeam.Cores[0].CurrentHP)
			assert.Equal(t, 40, s.PlayerTeam.Cores[0].CurrentHP, "input state mutated")
			checkInvariants(t, s, next)
		})
	}
}

func TestApply_EffectTickExpiredAndEmpty(t *testing.T) {
	s := inPhase(PhaseActionSelect)

	empty := Apply(s, EffectTicked{})
	assert.Len(t, empty.TurnLog, len(s.TurnLog))

	expired := Apply(s, EffectTicked{Events: []TickEvent{
		{Kind: TickEffectExpired, Team: SideEnemy, CoreName: "Beta", EffectName: "Guard"},
	}})
	assert.Equal(t, s.EnemyTeam, expired.EnemyTeam)
	require.Len(t, expired.TurnLog, len(s.TurnLog)+1)
	assert.Equal(t, EntryEffectTick, expired.TurnLog[len(expired.TurnLog)-1].Kind)
}

func TestApply_BattleEnd(t *testing.T) {
	s := inPhase(PhaseResolution)
	next := Apply(s, BattleEnded{Result: ResultWin, Rewards: Rewards{Bits: 100, Exp: 50}})

	assert.Equal(t, StatusEnded, next.Status)
	assert.Equal(t, PhaseWaiting, next.Phase)
	assert.Equal(t, ResultWin, next.Result)
	require.NotNil(t, next.Rewards)
	assert.Equal(t, Rewards{Bits: 100, Exp: 50}, *next.Rewards)
	assert.True(t, ContainsEntry(next.TurnLog, EntryBattleEnd))
	checkInvariants(t, s, next)
}

func TestApply_EndedIsTerminal(t *testing.T) {
	ended := Apply(inPhase(PhaseResolution), BattleEnded{Result: ResultLose})

	events := []Event{
		Began{SessionID: "other"},
		TurnStarted{Turn: 5, FreeResource: true, PlayerDice: []DiceRoll{{CoreID: "c1", RollValue: 2}}},
		ResourceDiceRolled{PlayerDice: []DiceRoll{{CoreID: "c1", RollValue: 2}}},
		ActionResolved{Player: &ActionOutcome{Kind: ActionPass, Success: true}},
		KoSwitchPrompted{Options: []SwitchOption{{Index: 1}}},
		BattleEnded{Result: ResultWin},
		ConnectionOpened{},
		StateRefreshed{Snapshot: Snapshot{CurrentTurn: 3}},
	}
	for _, ev := range events {
		next := Apply(ended, ev)
		assert.Equal(t, StatusEnded, next.Status, "%T", ev)
		assert.Equal(t, PhaseWaiting, next.Phase, "%T", ev)
		assert.Equal(t, ResultLose, next.Result, "%T", ev)
	}

	assert.Equal(t, StatusIdle, Apply(ended, Reset{}).Status)
}

func TestApply_CompletedSnapshotEnds(t *testing.T) {
	s := Apply(NewIdleState(), Began{SessionID: "b-1"})
	next := Apply(s, StateRefreshed{Snapshot: Snapshot{CurrentTurn: 9, Completed: true}})
	assert.Equal(t, StatusEnded, next.Status)
	assert.Equal(t, 9, next.CurrentTurn)

	// battle_end still lands its result after the completed snapshot.
	final := Apply(next, BattleEnded{Result: ResultWin, Rewards: Rewards{Bits: 10}})
	assert.Equal(t, ResultWin, final.Result)
	require.NotNil(t, final.Rewards)
	assert.Equal(t, 10, final.Rewards.Bits)
	assert.True(t, ContainsEntry(final.TurnLog, EntryBattleEnd))
	checkInvariants(t, next, final)

	again := Apply(final, BattleEnded{Result: ResultLose})
	assert.Equal(t, ResultWin, again.Result, "only the first result counts")
}

func TestApply_IdleIgnoresServerEvents(t *testing.T) {
	idle := NewIdleState()
	events := []Event{
		ConnectionOpened{},
		ConnectionEstablished{BattleID: "b-1"},
		StateRefreshed{Snapshot: Snapshot{CurrentTurn: 3}},
		TurnStarted{Turn: 2},
		ActionRejected{Reason: "late"},
		BattleEnded{Result: ResultWin},
		ServerError{Message: "late"},
	}
	for _, ev := range events {
		next := Apply(idle, ev)
		assert.Equal(t, idle, next, "%T", ev)
	}
}

func TestApply_TurnNeverDecreases(t *testing.T) {
	s := Apply(inPhase(PhaseActionSelect), TurnStarted{Turn: 4})
	next := Apply(s, StateRefreshed{Snapshot: Snapshot{CurrentTurn: 2}})
	assert.Equal(t, 4, next.CurrentTurn)
}

func TestApply_ConnectionLostAndRecovered(t *testing.T) {
	s := activeState()
	lost := Apply(s, ConnectionLost{Reason: "connection lost"})
	assert.False(t, lost.Connected)
	assert.True(t, lost.ConnectionLost)
	assert.Equal(t, StatusActive, lost.Status)

	back := Apply(lost, ConnectionOpened{})
	assert.True(t, back.Connected)
	assert.False(t, back.ConnectionLost)
}

func TestApply_FullSequenceKeepsInvariants(t *testing.T) {
	events := []Event{
		Began{SessionID: "b-1"},
		ConnectionOpened{},
		ConnectionEstablished{BattleID: "b-1"},
		StateRefreshed{Snapshot: Snapshot{PlayerTeam: newTeam(), EnemyTeam: newTeam(), CurrentTurn: 0}},
		TurnStarted{Turn: 1, FreeResource: true, PlayerDice: []DiceRoll{{CoreID: "c1", RollValue: 4}, {CoreID: "c2", RollValue: 2}}},
		DiceAllocated{PlayerPools: &Pools{Energy: 4, Physical: 2}},
		TurnStarted{Turn: 2},
		SelectionMade{Selection: Selection{Kind: ActionMove, MoveID: "m2"}},
		ActionResolved{Player: &ActionOutcome{Kind: ActionMove, Success: true, Hit: true, DamageDealt: 12}},
		ForcedSwitch{Team: SideEnemy, NewIndex: 1},
		TurnStarted{Turn: 3},
		EffectTicked{Events: []TickEvent{{Kind: TickHeal, Team: SidePlayer, CoreName: "Alpha", Amount: 99}}},
		ResourceDiceRolled{PlayerDice: []DiceRoll{{CoreID: "c1", RollValue: 6}}},
		DiceAllocated{PlayerPools: &Pools{Energy: 10, Physical: 2}},
		ActionResolved{Player: &ActionOutcome{Kind: ActionGainResource, Success: true}},
		KoSwitchPrompted{Options: []SwitchOption{{Index: 1}}},
		ForcedSwitch{Team: SidePlayer, NewIndex: 1},
		ConnectionClosed{},
		ConnectionOpened{},
		StateRefreshed{Snapshot: Snapshot{PlayerTeam: newTeam(), EnemyTeam: newTeam(), CurrentTurn: 4}},
		ActionRejected{Reason: "no"},
		BattleEnded{Result: ResultWin, Rewards: Rewards{Bits: 10}},
		Reset{},
	}

	s := NewIdleState()
	for _, ev := range events {
		next := Apply(s, ev)
		checkInvariants(t, s, next)
		s = next
	}
	assert.Equal(t, NewIdleState(), s)
}
