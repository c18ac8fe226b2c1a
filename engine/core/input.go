package core

type Button uint16

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
	BUTTON_MAX_BUTTONS
)

// PointerPhase is the state of a PointerTracker.
type PointerPhase uint8

const (
	PointerIdle PointerPhase = iota
	// Pressed but not yet moved past the dead zone.
	PointerPressed
	PointerDragging
)

func (p PointerPhase) String() string {
	switch p {
	case PointerIdle:
		return "idle"
	case PointerPressed:
		return "pressed"
	case PointerDragging:
		return "dragging"
	default:
		return "unknown"
	}
}

const DefaultDragDeadZone float32 = 4.0 // pixels

// PointerTracker is the input state machine idle -> pressed -> dragging -> idle.
// Samples are injected by the caller, so it works the same for window events
// and for synthetic sequences in tests.
type PointerTracker struct {
	phase    PointerPhase
	deadZone float32

	startX, startY float32
	lastX, lastY   float32
}

func NewPointerTracker(deadZone float32) *PointerTracker {
	if deadZone < 0 {
		deadZone = 0
	}
	return &PointerTracker{deadZone: deadZone}
}

func (p *PointerTracker) Phase() PointerPhase {
	return p.phase
}

// Down starts a press at (x, y). A press while already down restarts it.
func (p *PointerTracker) Down(x, y float32) {
	p.phase = PointerPressed
	p.startX, p.startY = x, y
	p.lastX, p.lastY = x, y
}

// Move feeds a pointer sample. It returns the delta since the previous sample
// and true once the press has become a drag; otherwise false.
func (p *PointerTracker) Move(x, y float32) (dx, dy float32, dragging bool) {
	switch p.phase {
	case PointerIdle:
		p.lastX, p.lastY = x, y
		return 0, 0, false
	case PointerPressed:
		mx, my := x-p.startX, y-p.startY
		if mx*mx+my*my < p.deadZone*p.deadZone {
			return 0, 0, false
		}
		p.phase = PointerDragging
	}
	dx, dy = x-p.lastX, y-p.lastY
	p.lastX, p.lastY = x, y
	return dx, dy, true
}

// Up ends the press. It reports whether the gesture was a drag.
func (p *PointerTracker) Up() bool {
	wasDragging := p.phase == PointerDragging
	p.phase = PointerIdle
	return wasDragging
}

// Cancel drops any press without reporting it.
func (p *PointerTracker) Cancel() {
	p.phase = PointerIdle
}

// Position returns the last injected sample.
func (p *PointerTracker) Position() (float32, float32) {
	return p.lastX, p.lastY
}
