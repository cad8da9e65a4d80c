package sx128x

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi"
)

// simChip answers SPI frames the way the radio does, closely enough to drive
// complete transmit and receive cycles.
type simChip struct {
	sync.Mutex

	circuit  byte
	sleeping bool
	failOp   Opcode

	regs       map[Register]byte
	buf        [bufferSize]byte
	packetType byte
	txBase     byte
	rxBase     byte
	modulation []byte
	packet     []byte
	autoFs     bool
	continuous bool

	irq  IRQ
	mask IRQ

	// txEvent or rxEvent is raised by the GetIrqStatus poll following polls
	// empty ones.
	txEvent IRQ
	rxEvent IRQ
	polls   int
	event   IRQ
	wait    int

	rxLength  byte
	rxStart   byte
	pktStatus []byte
	rssi      byte

	ops []Opcode

	busy   *gpiotest.Pin
	irqPin *gpiotest.Pin
	rst    *gpiotest.Pin
}

func newSimChip() *simChip {
	return &simChip{
		circuit: circuitStandbyRC,
		regs: map[Register]byte{
			RegFirmwareVersion:     0xa9,
			RegFirmwareVersion + 1: 0xb5,
			RegFreqErrorCorrection: 0x80,
			RegSyncWordTolerance:   0x34,
		},
		txEvent:   IRQTxDone,
		pktStatus: make([]byte, 5),
		busy:      &gpiotest.Pin{N: "BUSY", L: gpio.Low},
		irqPin:    &gpiotest.Pin{N: "DIO1", L: gpio.Low},
		rst:       &gpiotest.Pin{N: "RST", L: gpio.High},
	}
}

func (c *simChip) String() string      { return "sim" }
func (c *simChip) Halt() error         { return nil }
func (c *simChip) Duplex() conn.Duplex { return conn.Full }

func (c *simChip) TxPackets(p []spi.Packet) error {
	for _, pk := range p {
		if err := c.Tx(pk.W, pk.R); err != nil {
			return err
		}
	}
	return nil
}

func (c *simChip) status(cmd CommandStatus) byte {
	return c.circuit<<5 | byte(cmd)<<2
}

func (c *simChip) finishCycle() {
	if c.circuit == circuitRx && c.continuous {
		return
	}
	c.circuit = circuitStandbyRC
	if c.autoFs {
		c.circuit = circuitFS
	}
}

func (c *simChip) schedule(ev IRQ) {
	c.event, c.wait = ev, c.polls
}

func (c *simChip) Tx(w, r []byte) error {
	c.Lock()
	defer c.Unlock()
	defer c.updateIRQPin()

	op := Opcode(w[0])
	if c.sleeping {
		c.sleeping = false
		c.circuit = circuitStandbyRC
		return nil
	}
	c.ops = append(c.ops, op)
	if op == c.failOp {
		r[0] = c.status(CmdProcessingError)
		return nil
	}

	switch op {
	case OpWriteRegister:
		addr := Register(w[1])<<8 | Register(w[2])
		for i, b := range w[3:] {
			c.regs[addr+Register(i)] = b
		}
	case OpReadRegister:
		addr := Register(w[1])<<8 | Register(w[2])
		for i := range r[4:] {
			r[4+i] = c.regs[addr+Register(i)]
		}
	case OpWriteBuffer:
		for i, b := range w[2:] {
			c.buf[(int(w[1])+i)%bufferSize] = b
		}
	case OpReadBuffer:
		for i := range r[3:] {
			r[3+i] = c.buf[(int(w[1])+i)%bufferSize]
		}
	case OpSetSleep:
		c.sleeping = true
	case OpSetStandby:
		c.circuit = circuitStandbyRC + w[1]
		c.event = 0
	case OpSetFs:
		c.circuit = circuitFS
	case OpSetTx:
		c.circuit = circuitTx
		c.schedule(c.txEvent)
	case OpSetRx:
		c.circuit = circuitRx
		c.continuous = w[2] == 0xff && w[3] == 0xff
		c.schedule(c.rxEvent)
	case OpSetCad:
		c.circuit = circuitRx
		c.continuous = false
		c.schedule(c.rxEvent)
	case OpSetPacketType:
		c.packetType = w[1]
	case OpGetPacketType:
		r[2] = c.packetType
	case OpSetBufferBaseAddress:
		c.txBase, c.rxBase = w[1], w[2]
	case OpSetModulationParams:
		c.modulation = append([]byte(nil), w[1:]...)
	case OpSetPacketParams:
		c.packet = append([]byte(nil), w[1:]...)
	case OpSetAutoFs:
		c.autoFs = w[1] == 1
	case OpSetDioIrqParams:
		c.mask = IRQ(w[1])<<8 | IRQ(w[2])
	case OpGetIrqStatus:
		if c.event != 0 {
			if c.wait > 0 {
				c.wait--
			} else {
				c.irq |= c.event
				c.event = 0
				c.finishCycle()
			}
		}
		r[2], r[3] = byte(c.irq>>8), byte(c.irq)
	case OpClrIrqStatus:
		c.irq &^= IRQ(w[1])<<8 | IRQ(w[2])
	case OpGetRxBufferStatus:
		r[2], r[3] = c.rxLength, c.rxStart
	case OpGetPacketStatus:
		copy(r[2:], c.pktStatus)
	case OpGetRssiInst:
		r[2] = c.rssi
	}
	r[0] = c.status(CmdSuccess)
	return nil
}

func (c *simChip) updateIRQPin() {
	if c.irq&c.mask != 0 {
		c.irqPin.L = gpio.High
	} else {
		c.irqPin.L = gpio.Low
	}
}

// reset forgets the recorded opcodes.
func (c *simChip) reset() {
	c.Lock()
	defer c.Unlock()
	c.ops = nil
}

func (c *simChip) recorded() []Opcode {
	c.Lock()
	defer c.Unlock()
	return append([]Opcode(nil), c.ops...)
}

func (c *simChip) has(op Opcode) bool {
	for _, o := range c.recorded() {
		if o == op {
			return true
		}
	}
	return false
}

func testOptions() Options {
	nop := zerolog.Nop()
	return Options{
		Logger:       &nop,
		BusyTimeout:  5 * time.Millisecond,
		PollInterval: time.Millisecond,
	}
}

func newSimDevice(t *testing.T) (*simChip, *Device) {
	t.Helper()
	c := newSimChip()
	d, err := New(&Bus{SPI: c, BusyPin: c.busy, IRQPin: c.irqPin, ResetPin: c.rst}, testOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.reset()
	return c, d
}

func configureSim(t *testing.T, d *Device, m Modem) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Modem = m
	if err := d.Configure(cfg); err != nil {
		t.Fatalf("Configure(%s): %v", m.PacketType(), err)
	}
	return cfg
}
