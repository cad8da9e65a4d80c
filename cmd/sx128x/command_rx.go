package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli"

	"github.com/NV4RE/sx128x"
	"github.com/NV4RE/sx128x/internal/forward"
)

func rxCommand(context *cli.Context) error {
	r, err := openRadio(context)
	if err != nil {
		return err
	}
	defer r.Close()

	var fwd *forward.Forwarder
	if context.Bool("forward") {
		nc, err := forward.Connect(r.cfg.NATS.URL, forward.Options{
			Name:              r.cfg.Device.Name,
			Username:          r.cfg.NATS.Username,
			Password:          r.cfg.NATS.Password,
			MaxReconnects:     r.cfg.NATS.MaxReconnects,
			ReconnectInterval: r.cfg.NATS.ReconnectInterval,
		})
		if err != nil {
			return err
		}
		defer nc.Drain()
		fwd = forward.New(nc, r.cfg.NATS.Subject, r.cfg.Device.Name)
		log.Info().Str("subject", fwd.Subject()).Msg("Forwarding to NATS")
	}

	ctx, cancel := signalContext()
	defer cancel()

	count := context.Uint("count")
	for n := uint(0); count == 0 || n < count; n++ {
		p, err := r.dev.Receive(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, sx128x.ErrCRC), errors.Is(err, sx128x.ErrHeader):
			log.Warn().Err(err).Msg("Dropped packet")
			continue
		case errors.Is(err, sx128x.ErrRxTimeout):
			log.Info().Msg("Receive timed out")
			return nil
		case err != nil:
			return err
		}

		printPacket(p)
		if fwd != nil {
			if _, err := fwd.Forward(r.dev.Config().Frequency, p); err != nil {
				log.Error().Err(err).Msg("Failed to forward packet")
			}
		}
	}
	return nil
}

func printPacket(p *sx128x.Packet) {
	line := fmt.Sprintf("%s len=%d rssi=%.1f", p.Info.PacketType, p.Info.Length, p.Info.RSSI)
	if p.Info.HasSNR {
		line += fmt.Sprintf(" snr=%.2f", p.Info.SNR)
	}
	if p.Info.Ranging != nil {
		line += fmt.Sprintf(" distance=%.2fm", p.Info.Ranging.Distance)
	}
	fmt.Printf("%s payload=%x\n", line, p.Payload)
}
