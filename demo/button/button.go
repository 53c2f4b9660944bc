// Package button is a demo Feature wrapping a debounced GPIO button,
// using the same ISR-queues-raw-level / worker-debounces split used
// elsewhere in this codebase for interrupt-driven GPIO inputs: here the
// "ISR" is Inject (called by a real GPIO interrupt handler on MCU builds,
// or a test/demo driver on host), and the debounce+edge-detection logic
// that would normally run on its own goroutine instead runs inside Tick,
// called from the same cooperative loop as Engine.Work() so it never
// touches the engine concurrently with it (the engine's single-producer
// discipline).
package button

import (
	"time"

	"hdc-go/hdc/dtype"
	"hdc-go/hdc/featurereg"
	"hdc-go/hdc/model"
	"hdc-go/x/strx"
)

const (
	ClassName    = "button"
	ClassVersion = "1.0.0"
)

const (
	PropPressed     uint8 = 0x10
	EventButtonEdge uint8 = 0x01
)

const defaultDebounce = 20 * time.Millisecond
const edgeQueueLen = 8

func init() { featurereg.RegisterBuilder(ClassName, featurereg.BuilderFunc(build)) }

// Device is the in-memory state of one demo button instance.
type Device struct {
	pressed  *model.StorageSlot
	invert   bool
	debounce time.Duration

	edgeQ chan bool // raw levels, fed by Inject; never blocks the caller

	lastLevel    bool
	lastEdgeTime time.Time
	primed       bool
}

func build(in featurereg.BuildInput) (*model.Feature, error) {
	dev := &Device{
		pressed:  &model.StorageSlot{Buf: make([]byte, 1)},
		debounce: defaultDebounce,
		edgeQ:    make(chan bool, edgeQueueLen),
	}
	if v, ok := in.Params["invert"].(bool); ok {
		dev.invert = v
	}
	if ms, ok := in.Params["debounce_ms"].(int); ok && ms > 0 {
		dev.debounce = time.Duration(ms) * time.Millisecond
	}

	f := &model.Feature{
		ID:           in.ID,
		Name:         strx.Coalesce(in.Name, "button"),
		ClassName:    ClassName,
		ClassVersion: ClassVersion,
		Doc:          "Debounced GPIO button.",
		APIHandle:    dev,
		Properties: []*model.Property{
			{
				ID:       PropPressed,
				Name:     "Pressed",
				Dtype:    dtype.BOOL,
				ReadOnly: true,
				Doc:      "Current debounced press state.",
				Backing:  model.PropertyBacking{Storage: dev.pressed},
			},
		},
		Events: []model.Event{
			{
				ID:   EventButtonEdge,
				Name: "ButtonEdge",
				Doc:  "Emitted on every debounced press/release transition.",
				Args: []model.Argument{
					{Dtype: dtype.UINT8, Name: "level"},
					{Dtype: dtype.UINT8, Name: "debounced"},
				},
			},
		},
	}
	return f, nil
}

// Inject feeds one raw GPIO level reading into the device's edge queue.
// On an MCU build this is called directly from the pin's interrupt
// handler; it must never block — ISRs do nothing but set volatile state.
// A full queue silently drops the sample — the next debounce window will
// observe the pin's settled level anyway.
func (d *Device) Inject(level bool) {
	select {
	case d.edgeQ <- level:
	default:
	}
}

func (d *Device) logicalPressed(level bool) bool {
	if d.invert {
		return !level
	}
	return level
}

// Tick drains at most one queued raw level and applies the debounce
// window, updating Pressed and emitting ButtonEdge on a settled
// transition. Must be called once per super-loop iteration.
func Tick(ce model.CommandEngine, f *model.Feature, now time.Time) {
	dev, ok := f.APIHandle.(*Device)
	if !ok {
		return
	}
	var raw bool
	select {
	case raw = <-dev.edgeQ:
	default:
		return
	}

	if !dev.primed {
		dev.primed = true
		dev.lastLevel = raw
		dev.lastEdgeTime = now
		dev.pressed.Buf[0] = boolByte(dev.logicalPressed(raw))
		return
	}

	if raw == dev.lastLevel {
		return
	}
	if now.Sub(dev.lastEdgeTime) < dev.debounce {
		return
	}
	dev.lastLevel = raw
	dev.lastEdgeTime = now

	pressed := dev.logicalPressed(raw)
	dev.pressed.Buf[0] = boolByte(pressed)
	ce.EmitEvent(f, EventButtonEdge, []byte{boolByte(raw), boolByte(pressed)}, nil)
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
