package sx128x

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/driver/driverreg"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Transport is the host side of the radio: one chip-select framed full duplex
// transaction plus the busy, irq and reset lines. All calls block.
type Transport interface {
	Tx(w, r []byte) error
	Busy() (bool, error)
	IRQ() (bool, error)
	Reset(l gpio.Level) error
}

// irqWaiter is implemented by transports that can block on the irq line.
type irqWaiter interface {
	WaitIRQ(timeout time.Duration) bool
}

const DefaultSPISpeed = 8 * physic.MegaHertz

// Bus is a Transport over a periph.io SPI connection and GPIO pins.
type Bus struct {
	SPI      spi.Conn
	BusyPin  gpio.PinIn
	IRQPin   gpio.PinIn
	ResetPin gpio.PinOut

	port spi.PortCloser
}

// Open initialises the host drivers and opens the named SPI port and pins.
// irq may be empty when the DIO1 line is not wired.
func Open(spiDev, busy, irq, rst string, speed physic.Frequency) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}

	if _, err := driverreg.Init(); err != nil {
		return nil, err
	}

	if speed == 0 {
		speed = DefaultSPISpeed
	}

	p, err := spireg.Open(spiDev)
	if err != nil {
		return nil, err
	}

	c, err := p.Connect(speed, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, err
	}

	b := &Bus{SPI: c, port: p}

	busyPin := gpioreg.ByName(busy)
	if busyPin == nil {
		p.Close()
		return nil, errors.New("failed to find BUSY pin")
	}
	if err := busyPin.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		p.Close()
		return nil, err
	}
	b.BusyPin = busyPin

	if irq != "" {
		irqPin := gpioreg.ByName(irq)
		if irqPin == nil {
			p.Close()
			return nil, errors.New("failed to find IRQ pin")
		}
		if err := irqPin.In(gpio.PullDown, gpio.RisingEdge); err != nil {
			p.Close()
			return nil, err
		}
		b.IRQPin = irqPin
	}

	reset := gpioreg.ByName(rst)
	if reset == nil {
		p.Close()
		return nil, errors.New("failed to find RESET pin")
	}
	if err := reset.Out(gpio.High); err != nil {
		p.Close()
		return nil, err
	}
	b.ResetPin = reset

	return b, nil
}

func (b *Bus) Tx(w, r []byte) error {
	return b.SPI.Tx(w, r)
}

func (b *Bus) Busy() (bool, error) {
	if b.BusyPin == nil {
		return false, errors.New("busy pin not configured")
	}
	return b.BusyPin.Read() == gpio.High, nil
}

// IRQ reports the DIO1 level. Without an irq pin it always reports pending so
// callers fall back to reading the irq status over the bus.
func (b *Bus) IRQ() (bool, error) {
	if b.IRQPin == nil {
		return true, nil
	}
	return b.IRQPin.Read() == gpio.High, nil
}

func (b *Bus) WaitIRQ(timeout time.Duration) bool {
	if b.IRQPin == nil {
		time.Sleep(timeout)
		return true
	}
	if b.IRQPin.Read() == gpio.High {
		return true
	}
	return b.IRQPin.WaitForEdge(timeout)
}

func (b *Bus) Reset(l gpio.Level) error {
	if b.ResetPin == nil {
		return errors.New("reset pin not configured")
	}
	return b.ResetPin.Out(l)
}

func (b *Bus) Close() error {
	if b.port == nil {
		return nil
	}
	return b.port.Close()
}

func (b *Bus) String() string {
	return fmt.Sprintf("sx128x(%s)", b.SPI)
}
