package battle

type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusActive     Status = "active"
	StatusEnded      Status = "ended"
)

type Phase string

const (
	PhaseWaiting      Phase = "waiting"
	PhaseDiceRoll     Phase = "dice_roll"
	PhaseActionSelect Phase = "action_select"
	PhaseResolution   Phase = "resolution"
	PhaseKoSwitch     Phase = "ko_switch"
)

type Side string

const (
	SidePlayer Side = "player"
	SideEnemy  Side = "enemy"
)

type Result string

const (
	ResultWin  Result = "win"
	ResultLose Result = "lose"
)

type DamageType string

const (
	DamageEnergy   DamageType = "ENERGY"
	DamagePhysical DamageType = "PHYSICAL"
)

type Pool string

const (
	PoolEnergy   Pool = "energy"
	PoolPhysical Pool = "physical"
)

type Move struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Slot         int        `json:"slot"`
	DamageType   DamageType `json:"dmg_type"`
	Damage       int        `json:"dmg"`
	Accuracy     float64    `json:"accuracy"`
	ResourceCost int        `json:"resource_cost"`
	Type         string     `json:"type,omitempty"`
}

type Core struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Rarity    string `json:"rarity"`
	Level     int    `json:"lvl"`
	Position  int    `json:"position"`
	CurrentHP int    `json:"current_hp"`
	MaxHP     int    `json:"max_hp"`
	Moves     []Move `json:"equipped_moves"`
}

// KnockedOut is derived from hp; the server's is_knocked_out flag is not trusted.
func (c Core) KnockedOut() bool { return c.CurrentHP == 0 }

func (c Core) Move(id string) (Move, bool) {
	for _, m := range c.Moves {
		if m.ID == id {
			return m, true
		}
	}
	return Move{}, false
}

type Team struct {
	Cores           []Core `json:"cores"`
	ActiveCoreIndex int    `json:"active_core_index"`
	EnergyPool      int    `json:"energy_pool"`
	PhysicalPool    int    `json:"physical_pool"`
}

func (t *Team) Active() (Core, bool) {
	if t == nil || t.ActiveCoreIndex < 0 || t.ActiveCoreIndex >= len(t.Cores) {
		return Core{}, false
	}
	return t.Cores[t.ActiveCoreIndex], true
}

type Pools struct {
	Energy   int `json:"energy_pool"`
	Physical int `json:"physical_pool"`
}

type DiceRoll struct {
	CoreID    string `json:"core_id"`
	CoreName  string `json:"core_name"`
	RollValue int    `json:"roll_value"`
}

type Allocation struct {
	CoreID string `json:"core_id"`
	Pool   Pool   `json:"pool"`
}

type ActionKind string

const (
	ActionMove         ActionKind = "move"
	ActionSwitch       ActionKind = "switch"
	ActionPass         ActionKind = "pass"
	ActionGainResource ActionKind = "gain_resource"
)

// Selection is the player's in-flight choice awaiting action_result or action_rejected.
type Selection struct {
	Kind      ActionKind `json:"kind"`
	MoveID    string     `json:"move_id,omitempty"`
	CoreIndex int        `json:"core_index,omitempty"`
	Turn      int        `json:"turn"`
}

type SwitchOption struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	CurrentHP int    `json:"current_hp"`
	MaxHP     int    `json:"max_hp"`
}

type KoSwitch struct {
	Required bool           `json:"required"`
	Options  []SwitchOption `json:"options"`
}

type Rewards struct {
	Bits int `json:"bits"`
	Exp  int `json:"exp"`
}

// ActionOutcome is one side's resolved action as reported by the server.
type ActionOutcome struct {
	Kind          ActionKind `json:"action_type"`
	Success       bool       `json:"success"`
	MoveName      string     `json:"move_name,omitempty"`
	SourceCore    string     `json:"source_core,omitempty"`
	TargetCore    string     `json:"target_core,omitempty"`
	DamageDealt   int        `json:"damage_dealt,omitempty"`
	Critical      bool       `json:"was_critical,omitempty"`
	Hit           bool       `json:"accuracy_check,omitempty"`
	NewActiveCore string     `json:"new_active_core,omitempty"`
	OldActiveCore string     `json:"old_active_core,omitempty"`
}

type TickKind string

const (
	TickHeal          TickKind = "heal"
	TickEffectExpired TickKind = "effect_expired"
)

type TickEvent struct {
	Kind       TickKind `json:"type"`
	Team       Side     `json:"team"`
	CoreName   string   `json:"core_name"`
	Amount     int      `json:"amount,omitempty"`
	EffectName string   `json:"effect_name,omitempty"`
}

// Snapshot is the server's full battle_state payload.
type Snapshot struct {
	PlayerTeam  *Team
	EnemyTeam   *Team
	CurrentTurn int
	Completed   bool
	NPCID       string
	NPCName     string
}

type State struct {
	SessionID        string         `json:"session_id"`
	Status           Status         `json:"status"`
	Phase            Phase          `json:"phase"`
	CurrentTurn      int            `json:"current_turn"`
	PlayerTeam       *Team          `json:"player_team"`
	EnemyTeam        *Team          `json:"enemy_team"`
	PendingDiceRolls []DiceRoll     `json:"pending_dice_rolls"`
	PendingSelection *Selection     `json:"pending_selection"`
	KoSwitch         *KoSwitch      `json:"ko_switch"`
	Result           Result         `json:"result,omitempty"`
	Rewards          *Rewards       `json:"rewards"`
	TurnLog          []LogEntry     `json:"turn_log"`
	Connected        bool           `json:"connected"`
	ConnectionLost   bool           `json:"connection_lost"`
	LastError        string         `json:"last_error,omitempty"`
	NPCID            string         `json:"npc_id,omitempty"`
	NPCName          string         `json:"npc_name,omitempty"`
	LastPlayerAction *ActionOutcome `json:"last_player_action"`
	LastEnemyAction  *ActionOutcome `json:"last_enemy_action"`
}

func (s State) team(side Side) *Team {
	if side == SidePlayer {
		return s.PlayerTeam
	}
	return s.EnemyTeam
}
