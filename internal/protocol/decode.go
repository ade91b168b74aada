package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/arena-battle-client/internal/battle"
)

var ErrUnknownMessageType = errors.New("unknown message type")
var ErrMalformed = errors.New("malformed message")

// Decode classifies one inbound frame and converts it to exactly one battle
// event. Unknown types return ErrUnknownMessageType and are meant to be
// logged and dropped by the caller.
func Decode(data []byte) (battle.Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeConnectionEstablished:
		var m connectionEstablished
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		return battle.ConnectionEstablished{BattleID: m.BattleID}, nil

	case TypeBattleState:
		var m wireState
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		return battle.StateRefreshed{Snapshot: *m.snapshot()}, nil

	case TypeTurnStart:
		var m turnStart
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		return battle.TurnStarted{
			Turn:         m.TurnNumber,
			FreeResource: m.IsFreeResourceTurn,
			PlayerDice:   m.PlayerDice,
			EnemyDice:    m.EnemyDice,
		}, nil

	case TypeResourceDice:
		var m resourceDice
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		return battle.ResourceDiceRolled{PlayerDice: m.PlayerDice}, nil

	case TypeDiceAllocated:
		var m diceAllocated
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		return battle.DiceAllocated{
			PlayerPools: m.PlayerPools,
			EnemyPools:  m.EnemyPools,
			Snapshot:    m.BattleState.snapshot(),
		}, nil

	case TypeActionResult:
		var m actionResult
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		return battle.ActionResolved{
			Player:   m.PlayerAction,
			Enemy:    m.EnemyAction,
			Snapshot: m.BattleState.snapshot(),
		}, nil

	case TypeActionRejected:
		var m actionRejected
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		return battle.ActionRejected{Reason: m.Reason}, nil

	case TypeKoSwitchPrompt:
		var m koSwitchPrompt
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		return battle.KoSwitchPrompted{Options: m.AvailableCores, Error: m.Error}, nil

	case TypeForcedSwitch:
		var m forcedSwitch
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		side, ok := parseSide(m.Team)
		if !ok {
			return nil, fmt.Errorf("%w: forced_switch team %q", ErrMalformed, m.Team)
		}
		return battle.ForcedSwitch{Team: side, NewIndex: m.NewCoreIndex}, nil

	case TypeEffectTick:
		var m effectTick
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		return battle.EffectTicked{Events: m.Events}, nil

	case TypeBattleEnd:
		var m battleEnd
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		result, ok := parseResult(m.Result)
		if !ok {
			return nil, fmt.Errorf("%w: battle_end result %q", ErrMalformed, m.Result)
		}
		return battle.BattleEnded{Result: result, Rewards: m.Rewards, Snapshot: m.BattleState.snapshot()}, nil

	case TypeError:
		var m serverError
		if err := unmarshal(data, &m); err != nil {
			return nil, err
		}
		return battle.ServerError{Message: m.Message}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
	}
}

func unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func (w *wireState) snapshot() *battle.Snapshot {
	if w == nil {
		return nil
	}
	return &battle.Snapshot{
		PlayerTeam:  w.PlayerTeam.team(),
		EnemyTeam:   w.EnemyTeam.team(),
		CurrentTurn: w.CurrentTurn,
		Completed:   w.Status == statusCompleted,
		NPCID:       w.NPCID,
		NPCName:     w.NPCName,
	}
}

func (w *wireTeam) team() *battle.Team {
	if w == nil {
		return nil
	}
	t := &battle.Team{
		ActiveCoreIndex: w.ActiveCoreIndex,
		EnergyPool:      max(w.EnergyPool, 0),
		PhysicalPool:    max(w.PhysicalPool, 0),
		Cores:           make([]battle.Core, 0, len(w.Cores)),
	}
	for _, c := range w.Cores {
		typ := c.Type
		if typ == "" {
			typ = c.CoreType
		}
		maxHP := max(c.MaxHP, 0)
		t.Cores = append(t.Cores, battle.Core{
			ID:        c.ID,
			Name:      c.Name,
			Type:      typ,
			Rarity:    c.Rarity,
			Level:     c.Level,
			Position:  c.Position,
			CurrentHP: min(max(c.CurrentHP, 0), maxHP),
			MaxHP:     maxHP,
			Moves:     c.Moves,
		})
	}
	return t
}

func parseSide(s string) (battle.Side, bool) {
	switch s {
	case "player":
		return battle.SidePlayer, true
	case "enemy":
		return battle.SideEnemy, true
	default:
		return "", false
	}
}

func parseResult(s string) (battle.Result, bool) {
	switch s {
	case "win":
		return battle.ResultWin, true
	case "lose":
		return battle.ResultLose, true
	default:
		return "", false
	}
}
