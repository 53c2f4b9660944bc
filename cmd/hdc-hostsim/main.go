// Command hdc-hostsim runs the HDC engine over a simulated transport with
// three demo features (LED, button, env) wired in, standing in for a real
// MCU super-loop (`for(;;) { hdc_engine_work(); ... }`) so the whole
// protocol can be exercised without hardware.
package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"hdc-go/bus"
	"hdc-go/config"
	"hdc-go/demo/button"
	"hdc-go/demo/env"
	"hdc-go/demo/led"
	"hdc-go/hdc/engine"
	"hdc-go/hdc/featurereg"
	"hdc-go/hdc/model"
	"hdc-go/hdc/transport"
	"hdc-go/x/timex"
)

const device = "hostsim"

const heartbeatPeriodMs = 5000

func buildDevice() *model.Device {
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
	envFeature, err := envBuilder.Build(featurereg.BuildInput{ID: 3, Name: "room_sensor"})
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
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	dev := buildDevice()
	tp := transport.NewHostTransport()
	e := engine.New(dev, tp, cfg)
	if err := e.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "init:", err)
		os.Exit(1)
	}

	ledFeature, _ := dev.Feature(1)
	buttonFeature, _ := dev.Feature(2)
	envFeature, _ := dev.Feature(3)

	go simulateButtonPresses(tp, buttonFeature)
	go feedStdinAsWire(tp)

	fmt.Fprintln(os.Stderr, "hdc-hostsim: feeding raw wire bytes from stdin, Ctrl-D to stop")
	nextHeartbeat := timex.NowMs() + heartbeatPeriodMs
	for {
		e.Work()
		now := time.Now()
		led.Tick(e, ledFeature, now)
		button.Tick(e, buttonFeature, now)
		env.Tick(e, envFeature, now)

		if ms := timex.NowMs(); ms >= nextHeartbeat {
			fmt.Fprintf(os.Stderr, "hdc-hostsim: alive, t=%dms\n", ms)
			nextHeartbeat = ms + heartbeatPeriodMs
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// feedStdinAsWire lets a human or a test harness pipe raw HDC wire bytes
// into the simulated transport from stdin.
func feedStdinAsWire(tp *transport.HostTransport) {
	r := bufio.NewReader(os.Stdin)
	buf := make([]byte, 512)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			tp.Inject(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// simulateButtonPresses injects a random press/release every few seconds so
// the demo produces ButtonEdge events without any real hardware attached.
func simulateButtonPresses(tp *transport.HostTransport, f *model.Feature) {
	dev, ok := f.APIHandle.(*button.Device)
	if !ok {
		return
	}
	level := false
	for {
		time.Sleep(time.Duration(2000+rand.Intn(3000)) * time.Millisecond)
		level = !level
		dev.Inject(level)
	}
}
