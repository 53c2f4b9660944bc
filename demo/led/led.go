// Package led is a demo Feature wrapping a ramped PWM LED, using the same
// cur/target/duration/steps shape as a hardware PWM ramp descriptor. The
// ramp math is a standard integer accumulator — the kind a synchronous,
// caller-driven linear ramp helper would use internally — but driven one
// Step per Tick call instead of blocking inside a goroutine-owned sleep
// loop: a blocking ramp helper assumes a dedicated goroutine free to
// block between steps, which the engine's single cooperative Work() loop
// cannot offer (only one call chain ever touches the engine at a time),
// so Ramp's progress instead advances once per super-loop iteration via
// Tick.
package led

import (
	"encoding/binary"
	"time"

	"hdc-go/hdc/dtype"
	"hdc-go/hdc/featurereg"
	"hdc-go/hdc/model"
	"hdc-go/x/mathx"
	"hdc-go/x/strx"
)

const (
	ClassName    = "led"
	ClassVersion = "1.0.0"
)

// Property, command, and state ids (feature-local; the 0xF0-0xFF range is
// reserved for the mandatory descriptors hdc/corefeature supplies).
const (
	PropBrightness uint8 = 0x10
	CmdRamp        uint8 = 0x01
	StateIdle      uint8 = 0x00
	StateRamping   uint8 = 0x01
)

// TopBrightness is the logical ceiling Ramp clamps its target to. A value
// written through SetPropertyValue is stored as given.
const TopBrightness uint16 = 1000

func init() { featurereg.RegisterBuilder(ClassName, featurereg.BuilderFunc(build)) }

// Device is the in-memory state of one demo LED instance.
type Device struct {
	brightness *model.StorageSlot
	ramp       rampState
}

// rampState is a non-blocking restatement of a linear-ramp accumulator:
// acc/delta/totalSteps accumulate error the same way a blocking
// Bresenham-style ramp helper would, but one step is taken per Tick
// instead of the whole ramp looping internally.
type rampState struct {
	active     bool
	cur, to    int32
	acc, delta int32
	totalSteps int32
	stepsDone  int32
	stepDur    time.Duration
	next       time.Time
}

func build(in featurereg.BuildInput) (*model.Feature, error) {
	dev := &Device{brightness: &model.StorageSlot{Buf: make([]byte, 2)}}

	f := &model.Feature{
		ID:           in.ID,
		Name:         strx.Coalesce(in.Name, "led"),
		ClassName:    ClassName,
		ClassVersion: ClassVersion,
		Doc:          "Ramped PWM LED brightness.",
		APIHandle:    dev,
		States: []model.State{
			{ID: StateIdle, Name: "Idle"},
			{ID: StateRamping, Name: "Ramping"},
		},
		Properties: []*model.Property{
			{
				ID:      PropBrightness,
				Name:    "Brightness",
				Dtype:   dtype.UINT16,
				Doc:     "Logical brightness, 0..1000.",
				Backing: model.PropertyBacking{Storage: dev.brightness},
			},
		},
		Commands: []*model.Command{
			{
				ID:   CmdRamp,
				Name: "Ramp",
				Doc:  "Ramps Brightness linearly to `to` over duration_ms, in `steps` increments.",
				Args: []model.Argument{
					{Dtype: dtype.UINT16, Name: "to"},
					{Dtype: dtype.UINT32, Name: "duration_ms"},
					{Dtype: dtype.UINT16, Name: "steps"},
				},
				Handler: dev.handleRamp,
			},
		},
	}
	return f, nil
}

func (d *Device) brightnessValue() uint16 {
	return binary.LittleEndian.Uint16(d.brightness.Buf)
}

// CurrentBrightness returns f's logical 0..1000 brightness level, for a
// board-specific main loop to drive onto real PWM/GPIO hardware.
func CurrentBrightness(f *model.Feature) uint16 {
	dev, ok := f.APIHandle.(*Device)
	if !ok {
		return 0
	}
	return dev.brightnessValue()
}

func (d *Device) setBrightness(v uint16) {
	binary.LittleEndian.PutUint16(d.brightness.Buf, v)
}

func (d *Device) handleRamp(ce model.CommandEngine, f *model.Feature, req []byte) {
	if len(req) < 8 {
		ce.Reply(f.ID, CmdRamp, invalidArgs, nil)
		return
	}
	to := binary.LittleEndian.Uint16(req[0:2])
	durationMs := binary.LittleEndian.Uint32(req[2:6])
	steps := binary.LittleEndian.Uint16(req[6:8])
	cur := d.brightnessValue()

	if steps == 0 || durationMs == 0 {
		d.setBrightness(mathx.Min(to, TopBrightness))
		ce.Reply(f.ID, CmdRamp, 0, nil)
		return
	}

	stepDurMs := uint32(durationMs) / uint32(steps)
	if stepDurMs == 0 {
		stepDurMs = 1
	}
	d.ramp = rampState{
		active:     true,
		cur:        int32(cur),
		to:         int32(mathx.Min(to, TopBrightness)),
		delta:      int32(to) - int32(cur),
		totalSteps: int32(steps),
		stepDur:    time.Duration(stepDurMs) * time.Millisecond,
		next:       time.Now().Add(time.Duration(stepDurMs) * time.Millisecond),
	}
	ce.Reply(f.ID, CmdRamp, 0, nil)
	ce.SetFeatureState(f, StateRamping)
}

// invalidArgs mirrors corefeature.ExcInvalidArgs without importing
// hdc/corefeature purely for one constant (demo features only need the
// reserved exception *value*, never its descriptor metadata).
const invalidArgs uint8 = 0xF3

// Tick advances f's in-progress Ramp, if any, by at most one step. It must
// be called once per application super-loop iteration from the same
// goroutine that calls Engine.Work(), exactly like the engine's own
// cooperative dispatch — the single-producer discipline extends to every
// Feature that touches ce.
func Tick(ce model.CommandEngine, f *model.Feature, now time.Time) {
	dev, ok := f.APIHandle.(*Device)
	if !ok || !dev.ramp.active {
		return
	}
	r := &dev.ramp
	if now.Before(r.next) {
		return
	}
	r.stepsDone++
	if r.stepsDone >= r.totalSteps {
		dev.setBrightness(uint16(r.to))
		r.active = false
		ce.SetFeatureState(f, StateIdle)
		return
	}
	r.acc += r.delta
	inc := r.acc / r.totalSteps
	if inc != 0 {
		r.acc -= inc * r.totalSteps
		r.cur = mathx.Clamp(r.cur+inc, int32(0), int32(TopBrightness))
		dev.setBrightness(uint16(r.cur))
	}
	r.next = r.next.Add(r.stepDur)
}
