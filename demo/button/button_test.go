package button

import (
	"testing"
	"time"

	"hdc-go/hdc/featurereg"
	"hdc-go/hdc/model"
)

type eventCall struct {
	f              *model.Feature
	eventID        uint8
	prefix, suffix []byte
}

type fakeEngine struct{ events []eventCall }

func (f *fakeEngine) Reply(featureID, cmdID, exception uint8, payload []byte) {}
func (f *fakeEngine) SetFeatureState(ft *model.Feature, newState uint8)       {}
func (f *fakeEngine) EmitEvent(ft *model.Feature, eventID uint8, prefix, suffix []byte) {
	f.events = append(f.events, eventCall{ft, eventID, prefix, suffix})
}
func (f *fakeEngine) EmitLog(ft *model.Feature, level uint8, text string) {}

func newTestFeature(t *testing.T, invert bool) *model.Feature {
	t.Helper()
	b, ok := featurereg.Lookup(ClassName)
	if !ok {
		t.Fatal("button builder not registered")
	}
	f, err := b.Build(featurereg.BuildInput{ID: 2, Name: "test_button", Params: map[string]any{"invert": invert, "debounce_ms": 10}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return f
}

func TestFirstSampleIsPrimedWithoutEdgeEvent(t *testing.T) {
	f := newTestFeature(t, false)
	fe := &fakeEngine{}
	dev := f.APIHandle.(*Device)

	dev.Inject(true)
	Tick(fe, f, time.Now())

	if len(fe.events) != 0 {
		t.Fatalf("expected no ButtonEdge on the priming sample, got %v", fe.events)
	}
	if f.Properties[0].Backing.Storage.Buf[0] != 1 {
		t.Fatalf("Pressed = %v, want true", f.Properties[0].Backing.Storage.Buf[0])
	}
}

func TestDebounceSuppressesRapidToggle(t *testing.T) {
	f := newTestFeature(t, false)
	fe := &fakeEngine{}
	dev := f.APIHandle.(*Device)

	now := time.Now()
	dev.Inject(false)
	Tick(fe, f, now)

	dev.Inject(true)
	now = now.Add(2 * time.Millisecond) // well within the 10ms debounce window
	Tick(fe, f, now)

	if len(fe.events) != 0 {
		t.Fatalf("expected debounced edge to be suppressed, got %v", fe.events)
	}
}

func TestSettledEdgeEmitsButtonEdge(t *testing.T) {
	f := newTestFeature(t, false)
	fe := &fakeEngine{}
	dev := f.APIHandle.(*Device)

	now := time.Now()
	dev.Inject(false)
	Tick(fe, f, now)

	dev.Inject(true)
	now = now.Add(20 * time.Millisecond)
	Tick(fe, f, now)

	if len(fe.events) != 1 {
		t.Fatalf("got %d events, want 1", len(fe.events))
	}
	ev := fe.events[0]
	if ev.eventID != EventButtonEdge {
		t.Fatalf("eventID = %#x, want %#x", ev.eventID, EventButtonEdge)
	}
	if ev.prefix[0] != 1 || ev.suffix != nil {
		t.Fatalf("prefix/suffix = %v/%v, want [1]/nil", ev.prefix, ev.suffix)
	}
}

func TestInvertFlipsLogicalLevel(t *testing.T) {
	f := newTestFeature(t, true)
	dev := f.APIHandle.(*Device)
	fe := &fakeEngine{}

	dev.Inject(true) // raw high, inverted => not pressed
	Tick(fe, f, time.Now())

	if f.Properties[0].Backing.Storage.Buf[0] != 0 {
		t.Fatalf("Pressed = %v, want false (inverted)", f.Properties[0].Backing.Storage.Buf[0])
	}
}
