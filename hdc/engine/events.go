package engine

import (
	"hdc-go/hdc/corefeature"
	"hdc-go/hdc/model"
)

// Python-compatible log levels, matching logging's numeric scale.
const (
	LevelDebug    uint8 = 10
	LevelInfo     uint8 = 20
	LevelWarning  uint8 = 30
	LevelError    uint8 = 40
	LevelCritical uint8 = 50
)

// EmitEvent composes [0xF3][feature_id][event_id][prefix...][suffix...]
// through the frame encoder and TX composer. A nil feature defaults to Core.
func (e *Engine) EmitEvent(f *model.Feature, eventID uint8, prefix, suffix []byte) {
	if f == nil {
		f, _ = e.device.Feature(corefeature.CoreFeatureID)
	}
	if f == nil {
		return
	}
	out := make([]byte, 0, 3+len(prefix)+len(suffix))
	out = append(out, msgEvent, f.ID, eventID)
	out = append(out, prefix...)
	out = append(out, suffix...)
	e.reply(out)
}

// EmitLog drops the event when level < feature.LogEventThreshold; otherwise
// emits the Log event with payload [level][utf8 text], no NUL terminator.
func (e *Engine) EmitLog(f *model.Feature, level uint8, text string) {
	if f == nil {
		f, _ = e.device.Feature(corefeature.CoreFeatureID)
	}
	if f == nil {
		return
	}
	if level < f.LogEventThreshold {
		return
	}
	e.EmitEvent(f, corefeature.EventLog, []byte{level}, []byte(text))
}

// SetFeatureState implements set_feature_state: a no-op if newState equals
// the current state; otherwise the state is set first,
// then a FeatureStateTransition event with payload [previous, current] is
// emitted.
func (e *Engine) SetFeatureState(f *model.Feature, newState uint8) {
	if f == nil || newState == f.FeatureState {
		return
	}
	prev := f.FeatureState
	f.FeatureState = newState
	e.EmitEvent(f, corefeature.EventFeatureStateTransition, []byte{prev, newState}, nil)
}
