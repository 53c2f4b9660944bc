//go:build rp2040 || rp2350

// Command hdc-rp2 wires the engine to a real Pico/Pico 2 UART and I2C bus,
// following the same UART0.Configure / i2c0-setup pattern used elsewhere
// in this codebase for RP2040/RP2350 hardware bring-up.
package main

import (
	"context"
	"machine"
	"time"

	"github.com/jangala-dev/tinygo-uartx/uartx"

	"hdc-go/bus"
	"hdc-go/config"
	"hdc-go/demo/button"
	"hdc-go/demo/env"
	"hdc-go/demo/led"
	"hdc-go/hdc/engine"
	"hdc-go/hdc/featurereg"
	"hdc-go/hdc/model"
	"hdc-go/hdc/transport"

	"tinygo.org/x/drivers"
)

const device = "pico"

const (
	statusLEDPin  = machine.LED
	userButtonPin = machine.GPIO15
)

func buildDevice(i2c drivers.I2C) *model.Device {
	core := &model.Feature{ID: 0, Name: "Core", ClassName: "Core", ClassVersion: "1.0.0"}

	ledBuilder, _ := featurereg.Lookup(led.ClassName)
	ledFeature, err := ledBuilder.Build(featurereg.BuildInput{ID: 1, Name: "status_led"})
	if err != nil {
		panic(err)
	}

	buttonBuilder, _ := featurereg.Lookup(button.ClassName)
	buttonFeature, err := buttonBuilder.Build(featurereg.BuildInput{
		ID: 2, Name: "user_button",
		Params: map[string]any{"invert": true, "debounce_ms": 20},
	})
	if err != nil {
		panic(err)
	}

	envBuilder, _ := featurereg.Lookup(env.ClassName)
	envFeature, err := envBuilder.Build(featurereg.BuildInput{
		ID: 3, Name: "room_sensor",
		Params: map[string]any{"i2c": i2c},
	})
	if err != nil {
		panic(err)
	}

	return &model.Device{Features: []*model.Feature{core, ledFeature, buttonFeature, envFeature}}
}

func main() {
	b := bus.NewBus(8)
	conn := b.NewConnection(device)
	configCtx := context.WithValue(context.Background(), config.CtxDeviceKey, device)
	cfg, err := config.NewService().Resolve(configCtx, conn)
	if err != nil {
		panic(err)
	}

	statusLEDPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	userButtonPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	i2c0 := machine.I2C0
	_ = i2c0.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	})

	_ = uartx.UART0.Configure(uartx.UARTConfig{})

	dev := buildDevice(i2c0)
	tp := transport.NewRP2Transport(uartx.UART0)
	e := engine.New(dev, tp, cfg)
	if err := e.Init(); err != nil {
		panic(err)
	}

	ledFeature, _ := dev.Feature(1)
	buttonFeature, _ := dev.Feature(2)
	envFeature, _ := dev.Feature(3)

	userButtonPin.SetInterrupt(machine.PinToggle, func(machine.Pin) {
		buttonDev, ok := buttonFeature.APIHandle.(*button.Device)
		if ok {
			buttonDev.Inject(userButtonPin.Get())
		}
	})

	for {
		e.Work()
		now := time.Now()
		led.Tick(e, ledFeature, now)
		button.Tick(e, buttonFeature, now)
		env.Tick(e, envFeature, now)
		statusLEDPin.Set(led.CurrentBrightness(ledFeature) > 0)
	}
}
