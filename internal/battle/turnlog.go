package battle

import (
	"fmt"
	"strings"
)

type EntryKind string

const (
	EntryTurnStart    EntryKind = "turn_start"
	EntryAction       EntryKind = "action"
	EntryEffectTick   EntryKind = "effect_tick"
	EntryForcedSwitch EntryKind = "forced_switch"
	EntryBattleEnd    EntryKind = "battle_end"
)

// LogEntry is one element of the append-only turn log. Which fields are set
// depends on Kind.
type LogEntry struct {
	Kind     EntryKind      `json:"type"`
	Turn     int            `json:"turn"`
	Player   *ActionOutcome `json:"player,omitempty"`
	Enemy    *ActionOutcome `json:"enemy,omitempty"`
	Events   []TickEvent    `json:"events,omitempty"`
	Team     Side           `json:"team,omitempty"`
	NewIndex int            `json:"new_index"`
	Result   Result         `json:"result,omitempty"`
	Rewards  *Rewards       `json:"rewards,omitempty"`
}

// Describe renders the entry as display lines.
func (e LogEntry) Describe() []string {
	switch e.Kind {
	case EntryTurnStart:
		return []string{fmt.Sprintf("TURN %d", e.Turn)}

	case EntryAction:
		var lines []string
		if l, ok := describeOutcome(e.Player); ok {
			lines = append(lines, l)
		}
		if l, ok := describeOutcome(e.Enemy); ok {
			lines = append(lines, "enemy "+l)
		}
		return lines

	case EntryEffectTick:
		lines := make([]string, 0, len(e.Events))
		for _, ev := range e.Events {
			switch ev.Kind {
			case TickHeal:
				lines = append(lines, fmt.Sprintf("%s regenerated %d HP", ev.CoreName, ev.Amount))
			case TickEffectExpired:
				lines = append(lines, fmt.Sprintf("%s: %s wore off", ev.CoreName, ev.EffectName))
			}
		}
		return lines

	case EntryForcedSwitch:
		if e.Team == SidePlayer {
			return []string{"Your core was knocked out!"}
		}
		return []string{"Enemy core was knocked out!"}

	case EntryBattleEnd:
		line := "DEFEAT"
		if e.Result == ResultWin {
			line = "VICTORY!"
		}
		if e.Rewards != nil && (e.Rewards.Bits > 0 || e.Rewards.Exp > 0) {
			line += fmt.Sprintf(" +%d bits +%d exp", e.Rewards.Bits, e.Rewards.Exp)
		}
		return []string{line}
	}
	return nil
}

func describeOutcome(o *ActionOutcome) (string, bool) {
	if o == nil || !o.Success {
		return "", false
	}
	switch o.Kind {
	case ActionMove:
		if !o.Hit {
			return fmt.Sprintf("%s used %s MISSED!", o.SourceCore, o.MoveName), true
		}
		line := fmt.Sprintf("%s used %s on %s -%d HP", o.SourceCore, o.MoveName, o.TargetCore, o.DamageDealt)
		if o.Critical {
			line += " CRIT!"
		}
		return line, true
	case ActionSwitch:
		return fmt.Sprintf("%s switched to %s", o.OldActiveCore, o.NewActiveCore), true
	case ActionGainResource:
		return fmt.Sprintf("%s gained resources", o.SourceCore), true
	default:
		return fmt.Sprintf("%s passed", o.SourceCore), true
	}
}

// Render joins every entry's lines in log order.
func Render(log []LogEntry) string {
	var b strings.Builder
	for _, e := range log {
		for _, l := range e.Describe() {
			b.WriteString(strings.TrimSpace(l))
			b.WriteByte('\n')
		}
	}
	return b.String()
}
