package main

import (
	"fmt"

	"github.com/urfave/cli"
)

func infoCommand(context *cli.Context) error {
	r, err := openRadio(context)
	if err != nil {
		return err
	}
	defer r.Close()

	version, err := r.dev.FirmwareVersion()
	if err != nil {
		return err
	}
	chip, err := r.dev.ChipPacketType()
	if err != nil {
		return err
	}
	ch, err := r.dev.ChannelInfo()
	if err != nil {
		return err
	}

	fmt.Printf("firmware:    0x%04x\n", version)
	fmt.Printf("packet type: %s\n", chip)
	fmt.Printf("mode:        %s\n", ch.Mode)
	fmt.Printf("frequency:   %d Hz\n", r.dev.Config().Frequency)
	return nil
}
