package main

import (
	"encoding/hex"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli"
)

func txCommand(context *cli.Context) error {
	if context.NArg() != 1 {
		return errors.New("expected exactly one payload argument")
	}

	payload := []byte(context.Args().First())
	if context.Bool("hex") {
		b, err := hex.DecodeString(context.Args().First())
		if err != nil {
			return err
		}
		payload = b
	}

	r, err := openRadio(context)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, cancel := signalContext()
	defer cancel()

	count := context.Uint("count")
	interval := context.Duration("interval")
	for i := uint(0); i < count; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
			}
		}

		start := time.Now()
		if err := r.dev.Transmit(ctx, payload); err != nil {
			return err
		}
		ev := log.Info().Int("length", len(payload)).Dur("airtime", time.Since(start))
		if res := r.dev.RangingResult(); res != nil {
			ev = ev.Int32("raw", res.Raw).Float64("distance", res.Distance)
		}
		ev.Msg("Packet sent")
	}
	return nil
}
