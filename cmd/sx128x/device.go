package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli"

	"github.com/NV4RE/sx128x"
	"github.com/NV4RE/sx128x/internal/config"
)

// radio is an opened and configured transceiver.
type radio struct {
	cfg *config.Config
	bus *sx128x.Bus
	dev *sx128x.Device
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if l := c.GlobalString("log-level"); l != "" {
		level = l
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)
	return cfg, nil
}

// openRadio opens the bus, resets the chip and applies the radio section.
func openRadio(c *cli.Context) (*radio, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	rc, err := cfg.Radio.Radio()
	if err != nil {
		return nil, err
	}

	bus, err := sx128x.Open(cfg.Device.SPI, cfg.Device.Busy, cfg.Device.IRQ, cfg.Device.Reset, cfg.Device.Speed())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device.SPI, err)
	}

	dev, err := sx128x.New(bus, cfg.Device.Options())
	if err != nil {
		bus.Close()
		return nil, err
	}

	if err := dev.Configure(rc); err != nil {
		bus.Close()
		return nil, fmt.Errorf("configure: %w", err)
	}

	log.Info().
		Str("device", cfg.Device.Name).
		Stringer("packet_type", dev.PacketType()).
		Uint32("frequency", rc.Frequency).
		Int8("tx_power", rc.TxPower).
		Msg("Radio configured")

	return &radio{cfg: cfg, bus: bus, dev: dev}, nil
}

// Close puts the chip back in StandbyRC and releases the bus.
func (r *radio) Close() {
	if err := r.dev.Standby(sx128x.ModeStandbyRC); err != nil {
		log.Warn().Err(err).Msg("Failed to put radio in standby")
	}
	if err := r.bus.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close bus")
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			log.Info().Msg("Shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}
