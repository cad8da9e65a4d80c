package main

import (
	"github.com/urfave/cli"
)

var COMMANDS = []cli.Command{
	{
		Name:   "info",
		Usage:  "Reset the radio and print firmware version, mode and channel status",
		Action: infoCommand,
	},

	{
		Name:      "tx",
		Usage:     "Transmit a packet",
		ArgsUsage: "<payload>",
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "hex, x",
				Usage: "Payload is hex encoded",
			},
			cli.UintFlag{
				Name:  "count, n",
				Value: 1,
				Usage: "Number of packets to send",
			},
			cli.DurationFlag{
				Name:  "interval",
				Value: 0,
				Usage: "Pause between packets",
			},
		},
		Action: txCommand,
	},

	{
		Name:  "rx",
		Usage: "Receive packets and print them, optionally forwarding them to NATS",
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "forward, f",
				Usage: "Publish received packets to the configured NATS server",
			},
			cli.UintFlag{
				Name:  "count, n",
				Value: 0,
				Usage: "Stop after this many packets (default is 0: run until interrupted)",
			},
		},
		Action: rxCommand,
	},

	{
		Name:  "cad",
		Usage: "Run channel activity detection (LoRa only)",
		Flags: []cli.Flag{
			cli.UintFlag{
				Name:  "count, n",
				Value: 1,
				Usage: "Number of detections to run",
			},
		},
		Action: cadCommand,
	},

	{
		Name:   "cw",
		Usage:  "Transmit a continuous wave until interrupted",
		Action: cwCommand,
	},
}
