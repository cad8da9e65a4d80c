package sx128x

import (
	"bytes"
	"time"
)

// TimeoutStep is the unit of the SetTx and SetRx timeout count.
type TimeoutStep byte

const (
	Step15us625 TimeoutStep = 0x00
	Step62us5   TimeoutStep = 0x01
	Step1ms     TimeoutStep = 0x02
	Step4ms     TimeoutStep = 0x03
)

var stepDurations = [...]time.Duration{
	Step15us625: 15625 * time.Nanosecond,
	Step62us5:   62500 * time.Nanosecond,
	Step1ms:     time.Millisecond,
	Step4ms:     4 * time.Millisecond,
}

func (s TimeoutStep) Duration() time.Duration {
	if int(s) < len(stepDurations) {
		return stepDurations[s]
	}
	return 0
}

// Timeout is the chip side timeout of a transmit or receive cycle. A zero
// Count disables the timeout; on receive RxContinuous keeps the receiver on
// after each packet.
type Timeout struct {
	Step  TimeoutStep
	Count uint16
}

var RxContinuous = Timeout{Step: Step15us625, Count: rxContinuousCount}

// TimeoutFromDuration picks the finest step that can express d.
func TimeoutFromDuration(d time.Duration) (Timeout, error) {
	if d <= 0 {
		return Timeout{}, nil
	}
	for s := Step15us625; s <= Step4ms; s++ {
		step := s.Duration()
		n := (d + step - 1) / step
		if n < time.Duration(rxContinuousCount) {
			return Timeout{Step: s, Count: uint16(n)}, nil
		}
	}
	return Timeout{}, invalidConfig("timeout %s too long", d)
}

func (t Timeout) Duration() time.Duration {
	return t.Step.Duration() * time.Duration(t.Count)
}

func (t Timeout) Continuous() bool {
	return t.Count == rxContinuousCount
}

func (t Timeout) validate() error {
	if t.Step > Step4ms {
		return invalidConfig("timeout step 0x%02x", byte(t.Step))
	}
	return nil
}

func (t Timeout) encode() []byte {
	return []byte{byte(t.Step), byte(t.Count >> 8), byte(t.Count)}
}

// BufferBase are the offsets of the transmit and receive regions in the 256
// byte packet buffer.
type BufferBase struct {
	TX byte
	RX byte
}

func (b BufferBase) validate() error {
	if b.TX == b.RX {
		return invalidConfig("tx and rx buffer base both at 0x%02x", b.TX)
	}
	return nil
}

// txSpace is the room from the tx base up to the rx base, wrapping at the end
// of the buffer.
func (b BufferBase) txSpace() int {
	return (int(b.RX) - int(b.TX) + bufferSize) % bufferSize
}

func (d *Device) SetBufferBase(b BufferBase) error {
	if err := b.validate(); err != nil {
		return err
	}
	if _, err := d.execute(OpSetBufferBaseAddress, b.TX, b.RX); err != nil {
		return err
	}
	d.cfg.BufferBase = b
	return nil
}

// IRQStatus reads the interrupt flags without clearing them.
func (d *Device) IRQStatus() (IRQ, error) {
	_, b, err := d.executeRead(OpGetIrqStatus, 2)
	if err != nil {
		return 0, err
	}
	return IRQ(b[0])<<8 | IRQ(b[1]), nil
}

// ClearIRQ clears the flags in mask. Clearing nothing costs no transaction.
func (d *Device) ClearIRQ(mask IRQ) error {
	if mask == IRQNone {
		return nil
	}
	_, err := d.execute(OpClrIrqStatus, byte(mask>>8), byte(mask))
	return err
}

// SetIRQMask enables the flags in mask and routes them to DIO1.
func (d *Device) SetIRQMask(mask IRQ) error {
	hi, lo := byte(mask>>8), byte(mask)
	_, err := d.execute(OpSetDioIrqParams, hi, lo, hi, lo, 0, 0, 0, 0)
	return err
}

// rxBufferStatus returns the received length and its offset in the buffer.
func (d *Device) rxBufferStatus() (length, start byte, err error) {
	_, b, err := d.executeRead(OpGetRxBufferStatus, 2)
	if err != nil {
		return 0, 0, err
	}
	return b[0], b[1], nil
}

func (d *Device) packetStatus() ([]byte, error) {
	_, b, err := d.executeRead(OpGetPacketStatus, 5)
	return b, err
}

func (d *Device) readRangingResult() ([]byte, error) {
	return d.readRegister(RegRangingResult, 3)
}

type cycle byte

const (
	cycleNone cycle = iota
	cycleTx
	cycleRx
	cycleCAD
)

func (c cycle) String() string {
	switch c {
	case cycleTx:
		return "transmit"
	case cycleRx:
		return "receive"
	case cycleCAD:
		return "cad"
	}
	return "none"
}

const (
	txIRQMask        = IRQTxDone | IRQRxTxTimeout
	rxIRQMask        = IRQRxDone | IRQCrcError | IRQHeaderError | IRQRxTxTimeout
	rangingTxIRQMask = IRQTxDone | IRQRangingMasterResultValid | IRQRangingMasterTimeout | IRQRxTxTimeout
	rangingRxIRQMask = IRQRangingSlaveResponseDone | IRQRangingSlaveRequestDiscard | IRQRxTxTimeout
	cadIRQMask       = IRQCadDone | IRQCadDetected
)

// writePacketParams sends the packet parameter block unless the chip already
// holds it.
func (d *Device) writePacketParams(p []byte) error {
	if bytes.Equal(p, d.packetParams) {
		return nil
	}
	if _, err := d.execute(OpSetPacketParams, p...); err != nil {
		return err
	}
	d.packetParams = p
	return nil
}

// arm enables mask, clears stale flags and issues the mode command.
func (d *Device) arm(mask IRQ, op Opcode, params ...byte) error {
	if err := d.SetIRQMask(mask); err != nil {
		return err
	}
	if err := d.ClearIRQ(IRQAll); err != nil {
		return err
	}
	_, err := d.execute(op, params...)
	return err
}

// pending performs the single poll of a check call. With the irq pin in use
// a low DIO1 means nothing happened and the bus is left alone.
func (d *Device) pending() (IRQ, error) {
	if d.useIRQPin {
		set, err := d.t.IRQ()
		if err != nil {
			return 0, &TransportError{Op: "irq", Err: err}
		}
		if !set {
			return 0, nil
		}
	}
	return d.IRQStatus()
}

// finish clears the flags that ended a cycle and records the return to the
// fallback mode.
func (d *Device) finish(irq IRQ) error {
	if err := d.ClearIRQ(irq); err != nil {
		return err
	}
	d.sm.complete()
	if d.sm.mode != ModeRx {
		d.cycle = cycleNone
	}
	d.log.Debug().Stringer("irq", irq).Stringer("mode", d.sm.mode).Msg("cycle complete")
	return nil
}

func (d *Device) startTransmit(payload []byte) error {
	if err := d.sm.check("transmit", ModeTx); err != nil {
		return err
	}
	if !d.fresh {
		return ErrStaleConfig
	}
	if n := d.modem.maxPayload(); len(payload) > n {
		return invalidConfig("payload of %d bytes, at most %d", len(payload), n)
	}
	if n := d.cfg.BufferBase.txSpace(); len(payload) > n {
		return invalidConfig("payload of %d bytes overlaps rx buffer at 0x%02x", len(payload), d.cfg.BufferBase.RX)
	}
	params, err := d.modem.withPayloadLength(uint8(len(payload))).EncodePacketParams()
	if err != nil {
		return err
	}

	if len(payload) > 0 {
		if err := d.writeBuffer(d.cfg.BufferBase.TX, payload); err != nil {
			return err
		}
	}
	if err := d.writePacketParams(params); err != nil {
		return err
	}

	if err := d.armTransmit(); err != nil {
		return err
	}
	d.log.Debug().Int("len", len(payload)).Stringer("type", d.packetType).Msg("transmit started")
	return nil
}

// armTransmit starts a transmit cycle of the buffer and packet parameters
// already on the chip.
func (d *Device) armTransmit() error {
	mask := IRQ(txIRQMask)
	if r, ok := d.modem.(*Ranging); ok {
		if err := r.setRole(d, true); err != nil {
			return err
		}
		mask = rangingTxIRQMask
	}
	if err := d.arm(mask, OpSetTx, d.cfg.Timeout.encode()...); err != nil {
		return err
	}
	d.sm.commit(ModeTx, false)
	d.cycle = cycleTx
	d.ranging = nil
	return nil
}

func (d *Device) checkTransmit() (bool, error) {
	if d.cycle != cycleTx {
		return false, &ModeError{Op: "check transmit", Mode: d.sm.mode}
	}
	irq, err := d.pending()
	if err != nil || irq == 0 {
		return false, err
	}

	if _, ok := d.modem.(*Ranging); ok {
		switch {
		case irq.Has(IRQRangingMasterResultValid):
			raw, err := d.readRangingResult()
			if err != nil {
				return false, err
			}
			d.ranging = decodeRangingResult(raw, d.modem.(*Ranging).Modulation.Bandwidth)
			return true, d.finish(irq)
		case irq.Has(IRQRangingMasterTimeout):
			if err := d.finish(irq); err != nil {
				return false, err
			}
			return false, ErrRangingTimeout
		case irq.Has(IRQRxTxTimeout):
			if err := d.finish(irq); err != nil {
				return false, err
			}
			return false, ErrTxTimeout
		}
		return false, nil
	}

	switch {
	case irq.Has(IRQTxDone):
		return true, d.finish(irq)
	case irq.Has(IRQRxTxTimeout):
		if err := d.finish(irq); err != nil {
			return false, err
		}
		return false, ErrTxTimeout
	}
	return false, nil
}

func (d *Device) startReceive() error {
	if err := d.sm.check("receive", ModeRx); err != nil {
		return err
	}
	if !d.fresh {
		return ErrStaleConfig
	}
	// A transmit may have left its own length in the packet parameters.
	params, err := d.modem.EncodePacketParams()
	if err != nil {
		return err
	}
	if err := d.writePacketParams(params); err != nil {
		return err
	}

	mask := IRQ(rxIRQMask)
	if r, ok := d.modem.(*Ranging); ok {
		if err := r.setRole(d, false); err != nil {
			return err
		}
		mask = rangingRxIRQMask
	}
	if err := d.arm(mask, OpSetRx, d.cfg.Timeout.encode()...); err != nil {
		return err
	}
	d.sm.commit(ModeRx, d.cfg.Timeout.Continuous())
	d.cycle = cycleRx
	d.log.Debug().Stringer("type", d.packetType).Bool("continuous", d.cfg.Timeout.Continuous()).Msg("receive started")
	return nil
}

func (d *Device) checkReceive() (*Packet, bool, error) {
	if d.cycle != cycleRx {
		return nil, false, &ModeError{Op: "check receive", Mode: d.sm.mode}
	}
	irq, err := d.pending()
	if err != nil || irq == 0 {
		return nil, false, err
	}

	var fail error
	switch {
	case irq.Has(IRQRangingSlaveResponseDone):
		if err := d.finish(irq); err != nil {
			return nil, false, err
		}
		return &Packet{Payload: []byte{}, Info: PacketInfo{PacketType: PacketTypeRanging}}, true, nil
	case irq.Has(IRQRangingSlaveRequestDiscard):
		// Request for another address, the slave keeps listening.
		return nil, false, d.ClearIRQ(IRQRangingSlaveRequestDiscard)
	case irq.Has(IRQCrcError):
		fail = ErrCRC
	case irq.Has(IRQHeaderError):
		fail = ErrHeader
	case irq.Has(IRQRxTxTimeout):
		fail = ErrRxTimeout
	case irq.Has(IRQRxDone):
		p, err := d.readPacket()
		if err != nil {
			return nil, false, err
		}
		if err := d.finish(irq); err != nil {
			return nil, false, err
		}
		return p, true, nil
	default:
		return nil, false, nil
	}

	if err := d.finish(irq); err != nil {
		return nil, false, err
	}
	return nil, false, fail
}

// readPacket fetches the payload at the offset the chip reports, then the
// packet status.
func (d *Device) readPacket() (*Packet, error) {
	reported, start, err := d.rxBufferStatus()
	if err != nil {
		return nil, err
	}
	n, err := d.modem.rxLength(d, reported)
	if err != nil {
		return nil, err
	}

	payload := []byte{}
	if n > 0 {
		if payload, err = d.readBuffer(start, n); err != nil {
			return nil, err
		}
	}

	raw, err := d.packetStatus()
	if err != nil {
		return nil, err
	}
	info := d.modem.DecodePacketStatus(raw)
	info.Length = n
	return &Packet{Payload: payload, Info: info}, nil
}

func (d *Device) startCAD() error {
	if err := d.sm.check("cad", ModeCAD); err != nil {
		return err
	}
	if !d.fresh {
		return ErrStaleConfig
	}
	if d.packetType != PacketTypeLoRa {
		return invalidConfig("channel activity detection needs LoRa, configured %s", d.packetType)
	}
	if _, err := d.execute(OpSetCadParams, byte(d.cfg.CADSymbols)); err != nil {
		return err
	}
	if err := d.arm(cadIRQMask, OpSetCad); err != nil {
		return err
	}
	d.sm.commit(ModeCAD, false)
	d.cycle = cycleCAD
	return nil
}

func (d *Device) checkCAD() (detected, done bool, err error) {
	if d.cycle != cycleCAD {
		return false, false, &ModeError{Op: "check cad", Mode: d.sm.mode}
	}
	irq, err := d.pending()
	if err != nil || !irq.Has(IRQCadDone) {
		return false, false, err
	}
	if err := d.finish(irq); err != nil {
		return false, false, err
	}
	return irq.Has(IRQCadDetected), true, nil
}
