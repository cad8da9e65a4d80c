package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	app := cli.NewApp()
	app.Name = "sx128x"
	app.Usage = "Drive an SX1280/SX1281 2.4 GHz transceiver"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Value:  "sx128x.yml",
			Usage:  "Configuration file",
			EnvVar: "SX128X_CONFIG",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "Override the configured log level (trace, debug, info, warn, error)",
		},
	}
	app.Commands = COMMANDS

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("sx128x failed")
	}
}
