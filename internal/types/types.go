package types

import "github.com/DoyleJ11/arena-battle-client/internal/battle"

// ClientMessage is a player command from a local UI, over HTTP or the view
// socket. Type is one of move, switch, pass, gain_resource, dice_allocation
// or ko_switch_choice.
type ClientMessage struct {
	Type        string              `json:"type"`
	MoveID      string              `json:"move_id,omitempty"`
	CoreIndex   int                 `json:"core_index,omitempty"`
	Allocations []battle.Allocation `json:"allocations,omitempty"`
}

func (m ClientMessage) Command() battle.Command {
	return battle.Command{
		Type:        battle.CommandType(m.Type),
		MoveID:      m.MoveID,
		CoreIndex:   m.CoreIndex,
		Allocations: m.Allocations,
	}
}

type ServerMessage struct {
	Type    string        `json:"type"` // "view" | "error"
	Version int           `json:"version,omitempty"`
	State   *battle.State `json:"state,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type StartBattleRequest struct {
	NPCID      string `json:"npc_id"`
	OperatorID string `json:"operator_id,omitempty"`
	// BattleID attaches to a battle created elsewhere, skipping the arena call.
	BattleID string `json:"battle_id,omitempty"`
}

type StartBattleResponse struct {
	BattleID string `json:"battle_id"`
}
