// Package aht20 drives the AHT20 temperature/humidity sensor over I2C for
// demo/env, whose Tick state machine calls Trigger, waits out TriggerHint,
// then polls Collect until it stops returning ErrNotReady — a two-phase
// trigger/collect split rather than a single blocking Read, because a
// sensor's ~80ms conversion time is far longer than a cooperative engine
// tick may ever block for.
//
// I2C.Tx MUST perform a write followed by a repeated-start read when both w
// and r are provided, without releasing the bus.
//
// Conversion helpers return fixed-point tenths of a unit (deci-°C and
// deci-%RH): the wire properties demo/env exposes are INT16/UINT16, not
// floats, so there is no reason to round-trip through float32 on the way
// there.
package aht20

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// Address is the AHT20's fixed I2C address.
const Address = 0x38

const (
	cmdTrigger    = 0xAC
	cmdInitialize = 0xBE

	statusBusy       = 0x80
	statusCalibrated = 0x08
)

// ErrNotReady is returned by Collect while the triggered conversion is
// still in progress.
var ErrNotReady = errors.New("aht20: not ready")

// Device wraps an I2C connection to one AHT20 sensor.
type Device struct {
	bus     drivers.I2C
	Address uint16

	triggerHint time.Duration
	buf         [7]byte // reused across Collect calls to avoid allocation
}

// New creates a Device over an already-configured I2C bus. It does not touch
// the device; call Configure before use.
func New(bus drivers.I2C) Device {
	return Device{bus: bus, Address: Address, triggerHint: 80 * time.Millisecond}
}

// Configure initializes the device if its calibration bit isn't already set.
func (d *Device) Configure() {
	st, _ := d.status() // ignore transport error; attempt init regardless
	if st&statusCalibrated != 0 {
		return
	}
	_ = d.bus.Tx(d.Address, []byte{cmdInitialize, 0x08, 0x00}, nil)
	time.Sleep(10 * time.Millisecond)
}

func (d *Device) status() (byte, error) {
	data := []byte{0}
	if err := d.bus.Tx(d.Address, nil, data); err != nil {
		return 0, err
	}
	return data[0], nil
}

// Trigger starts a measurement: a quick register write with no blocking.
// The device then needs TriggerHint to convert before Collect will succeed.
func (d *Device) Trigger() error {
	return d.bus.Tx(d.Address, []byte{cmdTrigger, 0x33, 0x00}, nil)
}

// TriggerHint is the nominal conversion time a caller should wait after
// Trigger before calling Collect.
func (d *Device) TriggerHint() time.Duration {
	return d.triggerHint
}

// Collect reads one measurement into out. Returns ErrNotReady if the device
// is still converting; any I2C error is returned as-is.
func (d *Device) Collect(out *Sample) error {
	data := d.buf[:]
	if err := d.bus.Tx(d.Address, nil, data); err != nil {
		return err
	}
	if (data[0]&statusCalibrated) == 0 || (data[0]&statusBusy) != 0 {
		return ErrNotReady
	}
	out.RawHumidity = (uint32(data[1]) << 12) | (uint32(data[2]) << 4) | (uint32(data[3]) >> 4)
	out.RawTemp = (uint32(data[3]&0x0F) << 16) | (uint32(data[4]) << 8) | uint32(data[5])
	return nil
}

// Sample holds one raw AHT20 reading.
type Sample struct {
	RawHumidity uint32
	RawTemp     uint32
}

// DeciRelHumidity converts the raw humidity reading to tenths of a percent.
func (s Sample) DeciRelHumidity() int32 {
	return (int32(s.RawHumidity) * 1000) / 0x100000
}

// DeciCelsius converts the raw temperature reading to tenths of a degree
// Celsius.
func (s Sample) DeciCelsius() int32 {
	return ((int32(s.RawTemp) * 2000) / 0x100000) - 500
}
