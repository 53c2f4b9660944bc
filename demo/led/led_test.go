package led

import (
	"testing"
	"time"

	"hdc-go/hdc/featurereg"
	"hdc-go/hdc/model"
)

type fakeEngine struct {
	replies []replyCall
	states  []stateCall
}

type replyCall struct {
	featureID, cmdID, exception uint8
	payload                     []byte
}

type stateCall struct {
	f        *model.Feature
	newState uint8
}

func (f *fakeEngine) Reply(featureID, cmdID, exception uint8, payload []byte) {
	f.replies = append(f.replies, replyCall{featureID, cmdID, exception, payload})
}
func (f *fakeEngine) SetFeatureState(ft *model.Feature, newState uint8) {
	if newState == ft.FeatureState {
		return
	}
	ft.FeatureState = newState
	f.states = append(f.states, stateCall{ft, newState})
}
func (f *fakeEngine) EmitEvent(ft *model.Feature, eventID uint8, prefix, suffix []byte) {}
func (f *fakeEngine) EmitLog(ft *model.Feature, level uint8, text string)               {}

func newTestFeature(t *testing.T) *model.Feature {
	t.Helper()
	b, ok := featurereg.Lookup(ClassName)
	if !ok {
		t.Fatal("led builder not registered")
	}
	f, err := b.Build(featurereg.BuildInput{ID: 1, Name: "test_led"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return f
}

func TestSnapRampWithZeroStepsSetsImmediately(t *testing.T) {
	f := newTestFeature(t)
	fe := &fakeEngine{}
	req := make([]byte, 8)
	req[0], req[1] = 0xE8, 0x03 // to = 1000
	f.Commands[0].Handler(fe, f, req)

	if got := CurrentBrightness(f); got != 1000 {
		t.Fatalf("brightness = %d, want 1000", got)
	}
	if len(fe.states) != 0 {
		t.Fatalf("expected no state transition for an instant snap, got %v", fe.states)
	}
}

func TestRampAdvancesAndReturnsToIdle(t *testing.T) {
	f := newTestFeature(t)
	fe := &fakeEngine{}
	req := make([]byte, 8)
	req[0], req[1] = 0xE8, 0x03 // to = 1000
	req[2], req[3], req[4], req[5] = 100, 0, 0, 0 // duration_ms = 100
	req[6], req[7] = 10, 0 // steps = 10
	f.Commands[0].Handler(fe, f, req)

	if f.FeatureState != StateRamping {
		t.Fatalf("FeatureState = %d, want StateRamping", f.FeatureState)
	}

	now := time.Now()
	for i := 0; i < 20; i++ {
		now = now.Add(20 * time.Millisecond)
		Tick(fe, f, now)
	}

	if f.FeatureState != StateIdle {
		t.Fatalf("FeatureState = %d, want StateIdle after ramp completes", f.FeatureState)
	}
	if got := CurrentBrightness(f); got != 1000 {
		t.Fatalf("brightness = %d, want 1000 at ramp end", got)
	}
}
