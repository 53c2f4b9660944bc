package config

import (
	"context"
	"testing"
	"time"

	"hdc-go/bus"
)

func TestLoadClampsOutOfRangeKnobs(t *testing.T) {
	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) ([]byte, bool) {
		if device != "oversized" {
			return nil, false
		}
		return []byte(`{
			"version_string": "HDC 1.0.0-alpha.12",
			"max_req_message_size": 9000,
			"tx_buffer_size": 4
		}`), true
	}
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })

	cfg, err := Load("oversized")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxReqMessageSize != maxMaxReqMessageSize {
		t.Fatalf("MaxReqMessageSize = %d, want clamped to %d", cfg.MaxReqMessageSize, maxMaxReqMessageSize)
	}
	if cfg.TXBufferSize != minTXBufferSize {
		t.Fatalf("TXBufferSize = %d, want clamped to %d", cfg.TXBufferSize, minTXBufferSize)
	}
}

func TestLoadUnknownDevice(t *testing.T) {
	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) ([]byte, bool) { return nil, false }
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })

	if _, err := Load("unknown-board"); err == nil {
		t.Fatal("expected error for unknown device, got nil")
	}
}

func TestServicePublishRetainedPerKey(t *testing.T) {
	b := bus.NewBus(16)
	conn := b.NewConnection("test-config")
	svc := NewService()

	ctx := context.WithValue(context.Background(), CtxDeviceKey, "hostsim")
	svc.Start(ctx, conn)

	sub := conn.Subscribe(bus.Topic{topicPrefix, "#"})

	wantCount := 3
	got := map[string]any{}

	deadline := time.Now().Add(600 * time.Millisecond)
	for len(got) < wantCount && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			if len(m.Topic) < 2 {
				t.Fatalf("unexpected topic length: %#v", m.Topic)
			}
			key, ok := m.Topic[1].(string)
			if !ok {
				t.Fatalf("topic[1] type %T, want string", m.Topic[1])
			}
			got[key] = m.Payload
		case <-time.After(10 * time.Millisecond):
		}
	}
	if len(got) != wantCount {
		t.Fatalf("expected %d retained messages, got %d (%v)", wantCount, len(got), got)
	}

	if v, ok := got["max_req_message_size"].(uint32); !ok || v != 254 {
		t.Fatalf("max_req_message_size = %#v, want 254", got["max_req_message_size"])
	}
	if v, ok := got["tx_buffer_size"].(int); !ok || v != 1024 {
		t.Fatalf("tx_buffer_size = %#v, want 1024", got["tx_buffer_size"])
	}
}

func TestServicePublishMissingDeviceInContext(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test-missing-device")
	svc := NewService()

	if err := svc.publish(context.Background(), conn); err == nil {
		t.Fatal("expected error for missing device ID, got nil")
	}
}
