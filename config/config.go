// Package config resolves a board's build-time-ish engine knobs
// (VersionString, MaxReqMessageSize, TXBufferSize) from an embedded JSON
// blob keyed by device id, using the same embedded-JSON-per-device-id
// lookup and bus-publish-as-retained idiom used for hardware-abstraction
// configuration elsewhere in this codebase, pointed at hdc/engine.Config's
// three knobs instead of a nested device table (hdc-go has no device tree
// to publish; the engine's Device descriptor tree is assembled in-process
// by cmd/hdc-hostsim and cmd/hdc-rp2 from hdc/featurereg builders instead).
package config

import (
	"context"
	"errors"

	"hdc-go/bus"
	"hdc-go/hdc/engine"
	"hdc-go/x/mathx"

	"github.com/andreyvit/tinyjson"
)

const (
	serviceName  = "config"
	topicPrefix  = "config"
	CtxDeviceKey = "device" // context key carrying the device/board id
)

// Bounds: MaxReqMessageSize in [5,254]; TXBufferSize large enough to hold
// one worst-case packet (255 payload + 3 overhead).
const (
	minMaxReqMessageSize = 5
	maxMaxReqMessageSize = 254
	minTXBufferSize      = 258
)

// EmbeddedConfigLookup resolves a device id to its raw embedded JSON
// config. Overridable by tests and by code-generated build variants.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// raw is the on-the-wire shape of one board's embedded config JSON.
type raw struct {
	VersionString     string `json:"version_string"`
	MaxReqMessageSize uint32 `json:"max_req_message_size"`
	TXBufferSize      int    `json:"tx_buffer_size"`
}

// Load resolves device's embedded config into an engine.Config, clamping
// out-of-range values rather than rejecting the board outright.
func Load(device string) (engine.Config, error) {
	b, ok := EmbeddedConfigLookup(device)
	if !ok || len(b) == 0 {
		return engine.Config{}, errors.New("config: no embedded config for device " + device)
	}

	r := tinyjson.Raw(b)
	val := r.Value()
	if err := r.EnsureEOF(); err != nil {
		return engine.Config{}, err
	}
	m, ok := val.(map[string]any)
	if !ok {
		return engine.Config{}, errors.New("config: embedded config is not a JSON object")
	}

	var cfg engine.Config
	if s, ok := m["version_string"].(string); ok {
		cfg.VersionString = s
	}
	if n, ok := numberOf(m["max_req_message_size"]); ok {
		cfg.MaxReqMessageSize = uint32(n)
	}
	if n, ok := numberOf(m["tx_buffer_size"]); ok {
		cfg.TXBufferSize = int(n)
	}
	return Validate(cfg), nil
}

func numberOf(v any) (float64, bool) {
	n, ok := v.(float64)
	return n, ok
}

// Validate clamps cfg's build-time knobs into their documented bounds,
// using x/mathx.Clamp directly rather than a hand-rolled min/max.
func Validate(cfg engine.Config) engine.Config {
	cfg.MaxReqMessageSize = mathx.Clamp(cfg.MaxReqMessageSize, uint32(minMaxReqMessageSize), uint32(maxMaxReqMessageSize))
	cfg.TXBufferSize = mathx.Max(cfg.TXBufferSize, minTXBufferSize)
	return cfg
}

// Service publishes one device's resolved config onto the bus as retained
// messages: any interested subscriber (a demo feature wanting to know
// which board it's running on, a diagnostics feature) reads the current
// value immediately on subscribe, with no polling.
type Service struct{ Name string }

func NewService() *Service { return &Service{Name: serviceName} }

func (s *Service) publishRetained(conn *bus.Connection, cfg engine.Config) {
	conn.Publish(&bus.Message{Topic: bus.T(topicPrefix, "version_string"), Payload: cfg.VersionString, Retained: true})
	conn.Publish(&bus.Message{Topic: bus.T(topicPrefix, "max_req_message_size"), Payload: cfg.MaxReqMessageSize, Retained: true})
	conn.Publish(&bus.Message{Topic: bus.T(topicPrefix, "tx_buffer_size"), Payload: cfg.TXBufferSize, Retained: true})
}

func (s *Service) publish(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return errors.New("config: missing device ID in context")
	}
	cfg, err := Load(device)
	if err != nil {
		return err
	}
	s.publishRetained(conn, cfg)
	return nil
}

// Start launches the config publisher in a goroutine, matching the
// fire-and-forget shape used for board-boot services elsewhere in this
// codebase: callers that don't need the value immediately, just its eventual
// retained presence on the bus, can fire Start and move on.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go func() { _ = s.publish(ctx, conn) }()
}

// Resolve loads device's config synchronously and republishes it onto conn
// as retained messages before returning it, so a caller that needs the
// engine.Config value immediately (cmd/hdc-hostsim, cmd/hdc-rp2, at process
// startup) still leaves every other bus subscriber able to pick the same
// values up later without polling.
func (s *Service) Resolve(ctx context.Context, conn *bus.Connection) (engine.Config, error) {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return engine.Config{}, errors.New("config: missing device ID in context")
	}
	cfg, err := Load(device)
	if err != nil {
		return engine.Config{}, err
	}
	s.publishRetained(conn, cfg)
	return cfg, nil
}
