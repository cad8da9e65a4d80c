package sx128x

import (
	"fmt"
	"time"
)

// Status is the byte the chip clocks out at the start of every transaction.
type Status byte

// CommandStatus is the command result field of the status byte.
type CommandStatus byte

const (
	CmdSuccess         CommandStatus = 0x1
	CmdDataAvailable   CommandStatus = 0x2
	CmdTimeout         CommandStatus = 0x3
	CmdProcessingError CommandStatus = 0x4
	CmdExecFailure     CommandStatus = 0x5
	CmdTxDone          CommandStatus = 0x6
)

var commandStatusNames = map[CommandStatus]string{
	CmdSuccess:         "success",
	CmdDataAvailable:   "data available",
	CmdTimeout:         "command timeout",
	CmdProcessingError: "processing error",
	CmdExecFailure:     "failure to execute",
	CmdTxDone:          "tx done",
}

func (c CommandStatus) String() string {
	if n, ok := commandStatusNames[c]; ok {
		return n
	}
	return fmt.Sprintf("status(%d)", byte(c))
}

// Failed reports whether the chip rejected the command.
func (c CommandStatus) Failed() bool {
	return c == CmdTimeout || c == CmdProcessingError || c == CmdExecFailure
}

const (
	circuitStandbyRC   = 0x2
	circuitStandbyXOSC = 0x3
	circuitFS          = 0x4
	circuitRx          = 0x5
	circuitTx          = 0x6
)

// Mode decodes the circuit mode field. ok is false for reserved values.
func (s Status) Mode() (m Mode, ok bool) {
	switch (s >> 5) & 0x07 {
	case circuitStandbyRC:
		return ModeStandbyRC, true
	case circuitStandbyXOSC:
		return ModeStandbyXOSC, true
	case circuitFS:
		return ModeFS, true
	case circuitRx:
		return ModeRx, true
	case circuitTx:
		return ModeTx, true
	}
	return 0, false
}

func (s Status) Command() CommandStatus {
	return CommandStatus((s >> 2) & 0x07)
}

func (s Status) String() string {
	m, ok := s.Mode()
	if !ok {
		return fmt.Sprintf("0x%02x (%s)", byte(s), s.Command())
	}
	return fmt.Sprintf("0x%02x (%s, %s)", byte(s), m, s.Command())
}

// waitBusy polls the busy line until it clears or the busy timeout expires.
func (d *Device) waitBusy() error {
	deadline := time.Now().Add(d.busyTimeout)
	for {
		busy, err := d.t.Busy()
		if err != nil {
			return &TransportError{Op: "busy", Err: err}
		}
		if !busy {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrBusyTimeout
		}
		time.Sleep(busyPollInterval)
	}
}

// transact runs one framed transaction and decodes the status byte.
func (d *Device) transact(op Opcode, w []byte) (Status, []byte, error) {
	if op != OpSetStandby {
		if err := d.sm.awake(op.String()); err != nil {
			return 0, nil, err
		}
	}
	if err := d.waitBusy(); err != nil {
		return 0, nil, err
	}

	r := make([]byte, len(w))
	if err := d.t.Tx(w, r); err != nil {
		return 0, nil, &TransportError{Op: op.String(), Err: err}
	}

	st := Status(r[0])
	d.log.Trace().Stringer("op", op).Hex("w", w).Hex("r", r).Stringer("status", st).Msg("command")

	if st.Command().Failed() {
		return st, nil, &CommandError{Op: op, Status: st}
	}
	if m, ok := st.Mode(); ok {
		d.sm.observe(m)
	}
	return st, r, nil
}

// execute sends an opcode with its parameters and returns the status.
func (d *Device) execute(op Opcode, params ...byte) (Status, error) {
	w := append([]byte{byte(op)}, params...)
	st, _, err := d.transact(op, w)
	return st, err
}

// executeRead sends an opcode with its parameters followed by a NOP and n
// more NOPs, and returns the n data bytes clocked back after the NOP.
func (d *Device) executeRead(op Opcode, n int, params ...byte) (Status, []byte, error) {
	w := make([]byte, 1+len(params)+1+n)
	w[0] = byte(op)
	copy(w[1:], params)
	st, r, err := d.transact(op, w)
	if err != nil {
		return st, nil, err
	}
	return st, r[2+len(params):], nil
}

func (d *Device) readRegister(reg Register, n int) ([]byte, error) {
	_, b, err := d.executeRead(OpReadRegister, n, byte(reg>>8), byte(reg))
	return b, err
}

func (d *Device) readRegisterByte(reg Register) (byte, error) {
	b, err := d.readRegister(reg, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Device) writeRegister(reg Register, data ...byte) error {
	_, err := d.execute(OpWriteRegister, append([]byte{byte(reg >> 8), byte(reg)}, data...)...)
	return err
}

func (d *Device) readBuffer(offset byte, n int) ([]byte, error) {
	_, b, err := d.executeRead(OpReadBuffer, n, offset)
	return b, err
}

func (d *Device) writeBuffer(offset byte, data []byte) error {
	_, err := d.execute(OpWriteBuffer, append([]byte{offset}, data...)...)
	return err
}

// wake pulls the chip out of sleep. The first chip-select edge wakes the chip
// and the frame itself is discarded, so busy is not awaited before it.
func (d *Device) wake() error {
	w := []byte{byte(OpGetStatus)}
	if err := d.t.Tx(w, make([]byte, 1)); err != nil {
		return &TransportError{Op: "wake", Err: err}
	}
	time.Sleep(wakeSettleTime)
	return d.waitBusy()
}
