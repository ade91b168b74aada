package battle

import (
	"errors"
	"fmt"
)

var ErrNotActive = errors.New("battle not active")
var ErrWrongPhase = errors.New("action not allowed in this phase")
var ErrSelectionPending = errors.New("an action is already awaiting the server")
var ErrUnknownMove = errors.New("move not equipped on active core")
var ErrUnaffordable = errors.New("not enough resources")
var ErrInvalidCore = errors.New("invalid core selection")
var ErrBadAllocation = errors.New("invalid dice allocation")
var ErrUnsupportedCommand = errors.New("unsupported command")

type CommandType string

const (
	CmdMove         CommandType = "move"
	CmdSwitch       CommandType = "switch"
	CmdPass         CommandType = "pass"
	CmdGainResource CommandType = "gain_resource"
	CmdAllocateDice CommandType = "dice_allocation"
	CmdKoSwitch     CommandType = "ko_switch_choice"
)

// Command is a player intent headed for the server.
type Command struct {
	Type        CommandType
	MoveID      string
	CoreIndex   int
	Allocations []Allocation
}

// Check performs the validation that is safe to do locally. The server stays
// the authority and may still reject a command that passes.
func Check(s State, cmd Command) error {
	if s.Status != StatusActive {
		return ErrNotActive
	}

	switch cmd.Type {
	case CmdMove, CmdSwitch, CmdPass, CmdGainResource:
		if s.Phase != PhaseActionSelect {
			return fmt.Errorf("%s during %s: %w", cmd.Type, s.Phase, ErrWrongPhase)
		}
		if s.PendingSelection != nil {
			return ErrSelectionPending
		}
		switch cmd.Type {
		case CmdMove:
			return checkMove(s, cmd.MoveID)
		case CmdSwitch:
			return checkSwitch(s, cmd.CoreIndex)
		}
		return nil

	case CmdAllocateDice:
		if s.Phase != PhaseDiceRoll {
			return fmt.Errorf("%s during %s: %w", cmd.Type, s.Phase, ErrWrongPhase)
		}
		return checkAllocations(s.PendingDiceRolls, cmd.Allocations)

	case CmdKoSwitch:
		if s.Phase != PhaseKoSwitch || s.KoSwitch == nil {
			return fmt.Errorf("%s during %s: %w", cmd.Type, s.Phase, ErrWrongPhase)
		}
		for _, opt := range s.KoSwitch.Options {
			if opt.Index == cmd.CoreIndex {
				return nil
			}
		}
		return ErrInvalidCore

	default:
		return ErrUnsupportedCommand
	}
}

// SelectionFor returns the pending selection a command records, if any.
// gain_resource is answered with resource_dice rather than action_result,
// so it never holds a selection.
func SelectionFor(cmd Command) (Selection, bool) {
	switch cmd.Type {
	case CmdMove:
		return Selection{Kind: ActionMove, MoveID: cmd.MoveID}, true
	case CmdSwitch:
		return Selection{Kind: ActionSwitch, CoreIndex: cmd.CoreIndex}, true
	case CmdPass:
		return Selection{Kind: ActionPass}, true
	default:
		return Selection{}, false
	}
}

func checkMove(s State, moveID string) error {
	core, ok := s.PlayerTeam.Active()
	if !ok {
		return ErrInvalidCore
	}
	move, ok := core.Move(moveID)
	if !ok {
		return ErrUnknownMove
	}
	if !canAfford(s.PlayerTeam, move) {
		return fmt.Errorf("%s costs %d: %w", move.Name, move.ResourceCost, ErrUnaffordable)
	}
	return nil
}

func canAfford(t *Team, m Move) bool {
	if m.DamageType == DamageEnergy {
		return t.EnergyPool >= m.ResourceCost
	}
	return t.PhysicalPool >= m.ResourceCost
}

func checkSwitch(s State, idx int) error {
	t := s.PlayerTeam
	if t == nil || idx < 0 || idx >= len(t.Cores) {
		return ErrInvalidCore
	}
	if idx == t.ActiveCoreIndex || t.Cores[idx].KnockedOut() {
		return ErrInvalidCore
	}
	return nil
}

// checkAllocations requires every pending die to be assigned exactly once.
func checkAllocations(dice []DiceRoll, allocs []Allocation) error {
	if len(allocs) != len(dice) {
		return fmt.Errorf("%d allocations for %d dice: %w", len(allocs), len(dice), ErrBadAllocation)
	}
	pending := make(map[string]int, len(dice))
	for _, d := range dice {
		pending[d.CoreID]++
	}
	for _, a := range allocs {
		if a.Pool != PoolEnergy && a.Pool != PoolPhysical {
			return fmt.Errorf("pool %q: %w", a.Pool, ErrBadAllocation)
		}
		if pending[a.CoreID] == 0 {
			return fmt.Errorf("core %q has no pending die: %w", a.CoreID, ErrBadAllocation)
		}
		pending[a.CoreID]--
	}
	return nil
}
