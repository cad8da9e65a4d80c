package main

import (
	"fmt"

	"github.com/urfave/cli"
)

func cadCommand(context *cli.Context) error {
	r, err := openRadio(context)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, cancel := signalContext()
	defer cancel()

	for i := uint(0); i < context.Uint("count"); i++ {
		detected, err := r.dev.DetectActivity(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fmt.Printf("cad %d: detected=%t\n", i, detected)
	}
	return nil
}

func cwCommand(context *cli.Context) error {
	r, err := openRadio(context)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := r.dev.StartContinuousWave(); err != nil {
		return err
	}
	fmt.Println("Transmitting continuous wave, interrupt to stop")
	<-ctx.Done()
	return nil
}
