package chip8vm

import (
	"fmt"
	"strings"
)

// Quirks toggles behaviours that differ between historical interpreters.
// The zero value is the behaviour every fixture in this package expects.
type Quirks byte

const (
	// QuirkVfReset clears VF after OR, AND and XOR
	QuirkVfReset Quirks = 1 << iota
	// QuirkShiftUsesVy shifts Vy into Vx instead of shifting Vx in place
	QuirkShiftUsesVy
	// QuirkJumpUsesVx makes BXNN jump to XNN + Vx instead of NNN + V0
	QuirkJumpUsesVx
	// QuirkMemoryMovesIndex leaves I pointing after the last byte of FX55/FX65
	QuirkMemoryMovesIndex
)

var quirkNames = map[string]Quirks{
	"vfreset": QuirkVfReset,
	"shift":   QuirkShiftUsesVy,
	"jump":    QuirkJumpUsesVx,
	"memory":  QuirkMemoryMovesIndex,
}

func (q Quirks) Has(flag Quirks) bool {
	return q&flag != 0
}

// ParseQuirks reads a comma separated list such as "shift,memory"
func ParseQuirks(s string) (Quirks, error) {
	var q Quirks
	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}

		flag, ok := quirkNames[name]
		if !ok {
			return 0, fmt.Errorf("unknown quirk %q, valid quirks: vfreset, shift, jump, memory", name)
		}
		q |= flag
	}

	return q, nil
}
