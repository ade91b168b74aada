package battle

type Event interface{ isEvent() }

// Lifecycle and local events.

type Began struct{ SessionID string }

type ConnectionOpened struct{}

type ConnectionClosed struct{}

// ConnectionLost marks the reconnect budget as exhausted.
type ConnectionLost struct{ Reason string }

type SelectionMade struct{ Selection Selection }

// SelectionWithdrawn drops a selection whose command never left the client.
type SelectionWithdrawn struct{}

type LocalError struct{ Err error }

type ErrorCleared struct{}

type Reset struct{}

// Events interpreted from server frames.

type ConnectionEstablished struct{ BattleID string }

type StateRefreshed struct{ Snapshot Snapshot }

type TurnStarted struct {
	Turn         int
	FreeResource bool
	PlayerDice   []DiceRoll
	EnemyDice    []DiceRoll
}

type ResourceDiceRolled struct{ PlayerDice []DiceRoll }

type DiceAllocated struct {
	PlayerPools *Pools
	EnemyPools  *Pools
	Snapshot    *Snapshot
}

type ActionResolved struct {
	Player   *ActionOutcome
	Enemy    *ActionOutcome
	Snapshot *Snapshot
}

type ActionRejected struct{ Reason string }

type KoSwitchPrompted struct {
	Options []SwitchOption
	Error   string
}

type ForcedSwitch struct {
	Team     Side
	NewIndex int
}

type EffectTicked struct{ Events []TickEvent }

type BattleEnded struct {
	Result   Result
	Rewards  Rewards
	Snapshot *Snapshot
}

type ServerError struct{ Message string }

func (Began) isEvent()                 {}
func (ConnectionOpened) isEvent()      {}
func (ConnectionClosed) isEvent()      {}
func (ConnectionLost) isEvent()        {}
func (SelectionMade) isEvent()         {}
func (SelectionWithdrawn) isEvent()    {}
func (LocalError) isEvent()            {}
func (ErrorCleared) isEvent()          {}
func (Reset) isEvent()                 {}
func (ConnectionEstablished) isEvent() {}
func (StateRefreshed) isEvent()        {}
func (TurnStarted) isEvent()           {}
func (ResourceDiceRolled) isEvent()    {}
func (DiceAllocated) isEvent()         {}
func (ActionResolved) isEvent()        {}
func (ActionRejected) isEvent()        {}
func (KoSwitchPrompted) isEvent()      {}
func (ForcedSwitch) isEvent()          {}
func (EffectTicked) isEvent()          {}
func (BattleEnded) isEvent()           {}
func (ServerError) isEvent()           {}
