// Command controllerd wires the I²C bus, device drivers, and storage
// collaborator into a running state actor (spec §6's single process-level
// initialization entry point).
//
// Grounded on google-periph/experimental/cmd/bmp180's open-bus-then-loop
// shape, generalized from one hardcoded driver to the full device registry
// loaded from config.
package main

import (
	"flag"
	"os"
	"os/signal"

	"github.com/edaniels/golog"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/homepi/controller/conn/i2c"
	"github.com/homepi/controller/internal/bus"
	"github.com/homepi/controller/internal/expr"
	"github.com/homepi/controller/internal/linuxi2c"
	"github.com/homepi/controller/internal/model"
	"github.com/homepi/controller/internal/state"
	"github.com/homepi/controller/internal/storage"
)

// noGrammarParser satisfies state.Parser without implementing the
// expression grammar: spec §1 places "configuration parsing (a yacc-style
// grammar for the expression language)" out of scope, so this binary wires
// the interface boundary but not an actual tokenizer. A real deployment
// replaces this with the grammar collaborator described in spec §6.
type noGrammarParser struct{}

func (noGrammarParser) ParseBoolExpr(text string) (expr.BoolExpr, error) {
	return nil, errors.New("controllerd: no expression-language parser is wired into this build")
}

func main() {
	log := golog.Global()

	configPath := flag.String("config", "/etc/controllerd/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalw("failed to load config", "path", *configPath, "err", err)
	}

	var phys i2c.Bus
	opened, err := linuxi2c.Open(cfg.I2CBus)
	if err != nil {
		log.Warnw("physical I2C bus unavailable; continuing in degraded mode", "bus", cfg.I2CBus, "err", err)
	} else {
		phys = opened
		defer opened.Close()
	}
	serializer := bus.New(phys)
	defer serializer.Close()

	store := storage.New()
	for _, dc := range cfg.Devices {
		dev, err := deviceFromConfig(dc)
		if err != nil {
			log.Warnw("skipping misconfigured device", "id", dc.ID, "err", err)
			continue
		}
		if _, err := store.AddDevice(dev); err != nil {
			log.Warnw("failed to register configured device", "id", dc.ID, "err", err)
		}
	}

	actor, err := state.New(serializer, store, noGrammarParser{}, clockwork.NewRealClock(), cfg.Users)
	if err != nil {
		log.Fatalw("failed to start state actor", "err", err)
	}
	log.Infow("controllerd starting", "bus", cfg.I2CBus, "devices", len(cfg.Devices), "lat", cfg.Latitude, "long", cfg.Longitude)

	done := make(chan struct{})
	go func() {
		actor.Run()
		close(done)
	}()

	<-waitForSignal()
	log.Infow("controllerd shutting down")
	actor.Terminate()
	<-done
}

func deviceFromConfig(dc deviceConfig) (model.Device, error) {
	d := model.Device{ID: dc.ID, Notes: dc.Notes}
	switch dc.Kind {
	case "barometer":
		d.Kind = model.KindBarometer
		d.Barometer = model.BarometerModel{Addr: dc.Addr, Mode: samplingModeFromConfig(dc.Mode)}
	case "temp_sensor":
		d.Kind = model.KindTempSensor
		d.TempSens = model.TempSensorModel{Addr: dc.Addr}
	case "gpio_expander":
		d.Kind = model.KindGpioExpander
		d.Expander = model.GpioExpanderModel{Addr: dc.Addr}
	default:
		return model.Device{}, errors.Errorf("unknown device kind %q", dc.Kind)
	}
	return d, nil
}

func samplingModeFromConfig(mode string) model.SamplingMode {
	switch mode {
	case "standard":
		return model.Standard
	case "high_res":
		return model.HighRes
	case "ultra_high_res":
		return model.UltraHighRes
	default:
		return model.UltraLowPower
	}
}

// waitForSignal blocks the shutdown path until the process receives
// SIGINT, the same interrupt-driven shutdown google-periph's own command
// examples (e.g. cmd/bmxx80) use.
func waitForSignal() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return ch
}
