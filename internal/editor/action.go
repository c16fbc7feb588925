package editor

// Action is one editing command from a host's input.
type Action int

const (
	ActionNone Action = iota
	ActionUp
	ActionDown
	ActionLeft
	ActionRight
	ActionQuit
	ActionToggleLayer // Input.Layer names the layer
	ActionToggleEntities
	ActionNextLayer
	ActionBrushPrev
	ActionBrushNext
	ActionPaint
	ActionErase
)

var actionNames = [...]string{
	ActionNone:           "none",
	ActionUp:             "up",
	ActionDown:           "down",
	ActionLeft:           "left",
	ActionRight:          "right",
	ActionQuit:           "quit",
	ActionToggleLayer:    "toggle-layer",
	ActionToggleEntities: "toggle-entities",
	ActionNextLayer:      "next-layer",
	ActionBrushPrev:      "brush-prev",
	ActionBrushNext:      "brush-next",
	ActionPaint:          "paint",
	ActionErase:          "erase",
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// Input carries an action into an editor.
type Input struct {
	Action Action
	Layer  int
}

// Key maps a single typed character to an input. Hosts translate their own
// key events (escape sequences, ebiten keys) into the same inputs.
func Key(r rune) Input {
	switch r {
	case 'w', 'W':
		return Input{Action: ActionUp}
	case 's', 'S':
		return Input{Action: ActionDown}
	case 'a', 'A':
		return Input{Action: ActionLeft}
	case 'd', 'D':
		return Input{Action: ActionRight}
	case 'q', 'Q', 3: // Ctrl-C
		return Input{Action: ActionQuit}
	case 'e', 'E':
		return Input{Action: ActionToggleEntities}
	case 'l', 'L':
		return Input{Action: ActionNextLayer}
	case '[':
		return Input{Action: ActionBrushPrev}
	case ']':
		return Input{Action: ActionBrushNext}
	case ' ':
		return Input{Action: ActionPaint}
	case 'x', 'X':
		return Input{Action: ActionErase}
	}
	if r >= '0' && r <= '9' {
		return Input{Action: ActionToggleLayer, Layer: int(r - '0')}
	}
	return Input{}
}
