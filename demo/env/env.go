// Package env is a demo Feature wrapping the AHT20 temperature/humidity
// sensor (drivers/aht20). Readings are polled on a fixed cadence by Tick
// rather than fetched
// synchronously inside the property Getter: AHT20's conversion takes ~80ms
// (drivers/aht20's TriggerHint), far longer than a property read may block
// the engine's cooperative Work() loop, so the Getter only ever returns
// the last cached reading.
package env

import (
	"encoding/binary"
	"time"

	"hdc-go/drivers/aht20"
	"hdc-go/hdc/dtype"
	"hdc-go/hdc/featurereg"
	"hdc-go/hdc/model"
	"hdc-go/x/strx"

	"tinygo.org/x/drivers"
)

const (
	ClassName    = "env"
	ClassVersion = "1.0.0"
)

const (
	PropTemperatureDeciC  uint8 = 0x10
	PropHumidityDeciPct   uint8 = 0x11
	pollPeriod                  = 2 * time.Second
)

func init() { featurereg.RegisterBuilder(ClassName, featurereg.BuilderFunc(build)) }

// Device is the in-memory state of one demo AHT20 instance.
type Device struct {
	sensor aht20.Device

	triggered bool
	readyAt   time.Time
	nextPoll  time.Time

	lastTempDeciC       int16
	lastHumidityDeciPct uint16
}

// build resolves its I2C bus from in.Params["i2c"] (a tinygo.org/x/drivers.I2C),
// falling back to a canned fake bus so the host demo runs without real
// hardware attached, the same role transport.HostTransport plays for the
// wire transport.
func build(in featurereg.BuildInput) (*model.Feature, error) {
	bus, ok := in.Params["i2c"].(drivers.I2C)
	if !ok {
		bus = fakeI2C{}
	}

	dev := &Device{sensor: aht20.New(bus)}
	dev.sensor.Configure()

	f := &model.Feature{
		ID:           in.ID,
		Name:         strx.Coalesce(in.Name, "env"),
		ClassName:    ClassName,
		ClassVersion: ClassVersion,
		Doc:          "AHT20 temperature/humidity sensor.",
		APIHandle:    dev,
		Properties: []*model.Property{
			{
				ID:       PropTemperatureDeciC,
				Name:     "TemperatureDeciC",
				Dtype:    dtype.INT16,
				ReadOnly: true,
				Doc:      "Last measured temperature, tenths of a degree Celsius.",
				Backing:  model.PropertyBacking{Getter: dev.temperatureGetter},
			},
			{
				ID:       PropHumidityDeciPct,
				Name:     "HumidityDeciPct",
				Dtype:    dtype.UINT16,
				ReadOnly: true,
				Doc:      "Last measured relative humidity, tenths of a percent.",
				Backing:  model.PropertyBacking{Getter: dev.humidityGetter},
			},
		},
	}
	return f, nil
}

func (d *Device) temperatureGetter(f *model.Feature) []byte {
	out := make([]byte, 2)
	binary.LittleEndian.PutUint16(out, uint16(d.lastTempDeciC))
	return out
}

func (d *Device) humidityGetter(f *model.Feature) []byte {
	out := make([]byte, 2)
	binary.LittleEndian.PutUint16(out, d.lastHumidityDeciPct)
	return out
}

// Tick advances the trigger/collect state machine by at most one step.
// Must be called once per super-loop iteration.
func Tick(ce model.CommandEngine, f *model.Feature, now time.Time) {
	dev, ok := f.APIHandle.(*Device)
	if !ok {
		return
	}

	if !dev.triggered {
		if now.Before(dev.nextPoll) {
			return
		}
		if err := dev.sensor.Trigger(); err != nil {
			ce.EmitLog(f, 30, "aht20 trigger failed")
			dev.nextPoll = now.Add(pollPeriod)
			return
		}
		dev.triggered = true
		dev.readyAt = now.Add(dev.sensor.TriggerHint())
		return
	}

	if now.Before(dev.readyAt) {
		return
	}
	var s aht20.Sample
	err := dev.sensor.Collect(&s)
	switch err {
	case aht20.ErrNotReady:
		dev.readyAt = now.Add(10 * time.Millisecond)
	case nil:
		dev.lastTempDeciC = int16(s.DeciCelsius())
		dev.lastHumidityDeciPct = uint16(s.DeciRelHumidity())
		dev.triggered = false
		dev.nextPoll = now.Add(pollPeriod)
	default:
		ce.EmitLog(f, 30, "aht20 collect failed")
		dev.triggered = false
		dev.nextPoll = now.Add(pollPeriod)
	}
}

// fakeI2C simulates a steady ~22.0C / 45.0%RH AHT20 reading for the host
// demo (cmd/hdc-hostsim), the same role transport_host.go plays for the
// wire transport when no real hardware is attached.
type fakeI2C struct{}

// Fixed raw AHT20 register values that decode to 219 deci-C (21.9C) and
// 449 deci-%RH (44.9%RH) via aht20.Sample's conversion formulas.
var fakeStatusByte = byte(0x08) // calibrated, not busy
var fakeReading = [5]byte{0x73, 0x33, 0x35, 0xC2, 0x8F}

func (fakeI2C) Tx(addr uint16, w, r []byte) error {
	if len(r) == 0 {
		return nil
	}
	r[0] = fakeStatusByte
	copy(r[1:], fakeReading[:])
	return nil
}
