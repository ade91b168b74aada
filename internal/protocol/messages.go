package protocol

import "github.com/DoyleJ11/arena-battle-client/internal/battle"

// Server -> client message types.
const (
	TypeConnectionEstablished = "connection_established"
	TypeBattleState           = "battle_state"
	TypeTurnStart             = "turn_start"
	TypeResourceDice          = "resource_dice"
	TypeDiceAllocated         = "dice_allocated"
	TypeActionResult          = "action_result"
	TypeActionRejected        = "action_rejected"
	TypeKoSwitchPrompt        = "ko_switch_prompt"
	TypeForcedSwitch          = "forced_switch"
	TypeEffectTick            = "effect_tick"
	TypeBattleEnd             = "battle_end"
	TypeError                 = "error"
)

// Client -> server message types.
const (
	TypeBattleInit     = "battle_init"
	TypeAction         = "action"
	TypeDiceAllocation = "dice_allocation"
	TypeKoSwitchChoice = "ko_switch_choice"
	TypeReconnect      = "reconnect"
)

const statusCompleted = "COMPLETED"

type ClientMessage struct {
	Type         string              `json:"type"`
	ActionType   string              `json:"action_type,omitempty"`
	ActionData   *ActionData         `json:"action_data,omitempty"`
	Allocations  []battle.Allocation `json:"allocations,omitempty"`
	NewCoreIndex *int                `json:"new_core_index,omitempty"`
}

type ActionData struct {
	MoveID       string `json:"move_id,omitempty"`
	NewCoreIndex *int   `json:"new_core_index,omitempty"`
}

type envelope struct {
	Type string `json:"type"`
}

type wireCore struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Type      string        `json:"type"`
	CoreType  string        `json:"core_type"` // NPC cores use core_type instead of type
	Rarity    string        `json:"rarity"`
	Level     int           `json:"lvl"`
	Position  int           `json:"position"`
	CurrentHP int           `json:"current_hp"`
	MaxHP     int           `json:"max_hp"`
	Moves     []battle.Move `json:"equipped_moves"`
}

type wireTeam struct {
	EnergyPool      int        `json:"energy_pool"`
	PhysicalPool    int        `json:"physical_pool"`
	ActiveCoreIndex int        `json:"active_core_index"`
	Cores           []wireCore `json:"cores"`
}

type wireState struct {
	BattleID    string    `json:"battle_id"`
	Status      string    `json:"status"`
	CurrentTurn int       `json:"current_turn"`
	PlayerTeam  *wireTeam `json:"player_team"`
	EnemyTeam   *wireTeam `json:"enemy_team"`
	NPCID       string    `json:"npc_id"`
	NPCName     string    `json:"npc_name"`
}

type connectionEstablished struct {
	BattleID string `json:"battle_id"`
}

type turnStart struct {
	TurnNumber         int               `json:"turn_number"`
	IsFreeResourceTurn bool              `json:"is_free_resource_turn"`
	PlayerDice         []battle.DiceRoll `json:"player_dice"`
	EnemyDice          []battle.DiceRoll `json:"enemy_dice"`
}

type resourceDice struct {
	PlayerDice []battle.DiceRoll `json:"player_dice"`
}

type diceAllocated struct {
	PlayerPools *battle.Pools `json:"player_pools"`
	EnemyPools  *battle.Pools `json:"enemy_pools"`
	BattleState *wireState    `json:"battle_state"`
}

type actionResult struct {
	PlayerAction *battle.ActionOutcome `json:"player_action"`
	EnemyAction  *battle.ActionOutcome `json:"enemy_action"`
	BattleState  *wireState            `json:"battle_state"`
}

type actionRejected struct {
	Reason string `json:"reason"`
}

type koSwitchPrompt struct {
	AvailableCores []battle.SwitchOption `json:"available_cores"`
	Error          string                `json:"error"`
}

type forcedSwitch struct {
	Team         string `json:"team"`
	NewCoreIndex int    `json:"new_core_index"`
}

type effectTick struct {
	Events []battle.TickEvent `json:"events"`
}

type battleEnd struct {
	Result      string         `json:"result"`
	Rewards     battle.Rewards `json:"rewards"`
	BattleState *wireState     `json:"battle_state"`
}

type serverError struct {
	Message string `json:"message"`
}
