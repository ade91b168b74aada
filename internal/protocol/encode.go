package protocol

import (
	"encoding/json"

	"github.com/DoyleJ11/arena-battle-client/internal/battle"
)

func BattleInit() ClientMessage {
	return ClientMessage{Type: TypeBattleInit}
}

// Reconnect asks the server to replay whatever it is still waiting on,
// including an unanswered ko_switch_prompt.
func Reconnect() ClientMessage {
	return ClientMessage{Type: TypeReconnect}
}

// FromCommand builds the single outbound message for a player command.
func FromCommand(cmd battle.Command) (ClientMessage, error) {
	switch cmd.Type {
	case battle.CmdMove:
		return ClientMessage{Type: TypeAction, ActionType: string(battle.ActionMove), ActionData: &ActionData{MoveID: cmd.MoveID}}, nil
	case battle.CmdSwitch:
		idx := cmd.CoreIndex
		return ClientMessage{Type: TypeAction, ActionType: string(battle.ActionSwitch), ActionData: &ActionData{NewCoreIndex: &idx}}, nil
	case battle.CmdPass:
		return ClientMessage{Type: TypeAction, ActionType: string(battle.ActionPass), ActionData: &ActionData{}}, nil
	case battle.CmdGainResource:
		return ClientMessage{Type: TypeAction, ActionType: string(battle.ActionGainResource), ActionData: &ActionData{}}, nil
	case battle.CmdAllocateDice:
		return ClientMessage{Type: TypeDiceAllocation, Allocations: cmd.Allocations}, nil
	case battle.CmdKoSwitch:
		idx := cmd.CoreIndex
		return ClientMessage{Type: TypeKoSwitchChoice, NewCoreIndex: &idx}, nil
	default:
		return ClientMessage{}, battle.ErrUnsupportedCommand
	}
}

func Encode(m ClientMessage) ([]byte, error) {
	return json.Marshal(m)
}
