package sx128x

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
)

const (
	DefaultBusyTimeout  = 100 * time.Millisecond
	DefaultPollInterval = 5 * time.Millisecond

	busyPollInterval = 50 * time.Microsecond
	wakeSettleTime   = time.Millisecond
	resetPulse       = 10 * time.Millisecond
)

// Options tune the driver itself, independent of the radio settings.
type Options struct {
	// BusyTimeout bounds the wait for the busy line before each transaction.
	BusyTimeout time.Duration
	// PollInterval is the sleep between checks of the blocking helpers when
	// the transport cannot wait on the irq line.
	PollInterval time.Duration
	// UseIRQPin makes checks read the DIO1 level first and skip the bus
	// while it is low.
	UseIRQPin        bool
	SkipVersionCheck bool
	Logger           *zerolog.Logger
}

// Config is the radio configuration applied by Configure. The packet type is
// the one of Modem.
type Config struct {
	Frequency  uint32 // Hz
	Modem      Modem
	TxPower    int8 // dBm, -18 to 13
	RampTime   RampTime
	BufferBase BufferBase
	Timeout    Timeout
	Regulator  RegulatorMode
	// Fallback is the mode the chip returns to after a cycle: ModeStandbyRC
	// (also selected by the zero value) or ModeFS.
	Fallback   Mode
	CADSymbols CADSymbols
}

// DefaultConfig is LoRa at 2.4 GHz, 10 dBm, without chip side timeout.
func DefaultConfig() Config {
	return Config{
		Frequency:  FrequencyMin,
		Modem:      DefaultLoRa(),
		TxPower:    10,
		RampTime:   Ramp20Us,
		BufferBase: BufferBase{TX: 0x00, RX: 0x80},
		Regulator:  RegulatorLDO,
		Fallback:   ModeStandbyRC,
		CADSymbols: CADFourSymbols,
	}
}

func (c Config) fallback() Mode {
	if c.Fallback == ModeSleep {
		return ModeStandbyRC
	}
	return c.Fallback
}

// frequencySteps converts Hz to the 24 bit PLL step count, f * 2^18 / 52 MHz.
func frequencySteps(hz uint32) ([]byte, error) {
	if hz < FrequencyMin || hz > FrequencyMax {
		return nil, invalidConfig("frequency %d Hz outside %d to %d", hz, FrequencyMin, FrequencyMax)
	}
	steps := uint32(uint64(hz) << 18 / xtalFrequency)
	return []byte{byte(steps >> 16), byte(steps >> 8), byte(steps)}, nil
}

func txParams(power int8, ramp RampTime) ([]byte, error) {
	if power < txPowerMin || power > txPowerMax {
		return nil, invalidConfig("tx power %d dBm outside %d to %d", power, txPowerMin, txPowerMax)
	}
	if ramp&0x1f != 0 {
		return nil, invalidConfig("ramp time 0x%02x", byte(ramp))
	}
	return []byte{byte(power - txPowerMin), byte(ramp)}, nil
}

// encodedConfig holds every block Configure sends, computed up front so a bad
// setting never reaches the bus.
type encodedConfig struct {
	frequency  []byte
	modulation []byte
	packet     []byte
	tx         []byte
}

func (c Config) encode() (*encodedConfig, error) {
	if c.Modem == nil {
		return nil, invalidConfig("no modem")
	}
	var e encodedConfig
	var err error
	if e.frequency, err = frequencySteps(c.Frequency); err != nil {
		return nil, err
	}
	if err = c.Modem.validate(); err != nil {
		return nil, err
	}
	if e.modulation, err = c.Modem.EncodeModulation(); err != nil {
		return nil, err
	}
	if e.packet, err = c.Modem.EncodePacketParams(); err != nil {
		return nil, err
	}
	if e.tx, err = txParams(c.TxPower, c.RampTime); err != nil {
		return nil, err
	}
	if err = c.BufferBase.validate(); err != nil {
		return nil, err
	}
	if err = c.Timeout.validate(); err != nil {
		return nil, err
	}
	if c.Regulator != RegulatorLDO && c.Regulator != RegulatorDCDC {
		return nil, invalidConfig("regulator mode 0x%02x", byte(c.Regulator))
	}
	if f := c.fallback(); f != ModeStandbyRC && f != ModeFS {
		return nil, invalidConfig("fallback mode %s", f)
	}
	if c.CADSymbols&0x1f != 0 || c.CADSymbols > CADSixteenSymbols {
		return nil, invalidConfig("cad symbols 0x%02x", byte(c.CADSymbols))
	}
	return &e, nil
}

// ChannelInfo is a snapshot of the channel and the chip mode.
type ChannelInfo struct {
	RSSI      float64 // dBm, instantaneous
	RSSIValid bool    // only while receiving
	Mode      Mode
}

// Device is one SX128x on its transport. It is not safe for concurrent use.
type Device struct {
	t   Transport
	sm  *stateMachine
	log zerolog.Logger

	busyTimeout  time.Duration
	pollInterval time.Duration
	useIRQPin    bool

	cfg          Config
	modem        Modem
	packetType   PacketType
	packetParams []byte
	fresh        bool
	cycle        cycle
	ranging      *RangingResult
}

// New resets the chip, brings it to StandbyRC and checks the firmware
// version.
func New(t Transport, opts Options) (*Device, error) {
	if opts.BusyTimeout == 0 {
		opts.BusyTimeout = DefaultBusyTimeout
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = DefaultPollInterval
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	d := &Device{
		t:            t,
		sm:           newStateMachine(),
		log:          logger.With().Str("component", "sx128x").Logger(),
		busyTimeout:  opts.BusyTimeout,
		pollInterval: opts.PollInterval,
		useIRQPin:    opts.UseIRQPin,
		packetType:   PacketTypeGFSK,
	}

	if err := d.Reset(); err != nil {
		return nil, err
	}

	v, err := d.FirmwareVersion()
	if err != nil {
		return nil, err
	}
	switch {
	case v == 0x0000 || v == 0xffff:
		return nil, ErrNoComms
	case v != firmwareVersion && !opts.SkipVersionCheck:
		return nil, fmt.Errorf("%w: 0x%04x", ErrInvalidDevice, v)
	case v != firmwareVersion:
		d.log.Warn().Uint16("version", v).Msg("unexpected firmware version")
	}
	d.log.Debug().Uint16("version", v).Msg("device ready")
	return d, nil
}

// Reset pulses the reset line and brings the chip back to StandbyRC. All
// configuration is lost.
func (d *Device) Reset() error {
	if err := d.t.Reset(gpio.Low); err != nil {
		return &TransportError{Op: "reset", Err: err}
	}
	time.Sleep(resetPulse)
	if err := d.t.Reset(gpio.High); err != nil {
		return &TransportError{Op: "reset", Err: err}
	}
	time.Sleep(resetPulse)

	d.sm = newStateMachine()
	d.packetType = PacketTypeGFSK
	d.packetParams = nil
	d.fresh = false
	d.cycle = cycleNone
	d.ranging = nil
	return d.Standby(ModeStandbyRC)
}

// Mode returns the cached operating mode.
func (d *Device) Mode() Mode {
	return d.sm.mode
}

// PacketType returns the packet type last selected on the chip.
func (d *Device) PacketType() PacketType {
	return d.packetType
}

// Config returns the configuration last applied.
func (d *Device) Config() Config {
	return d.cfg
}

// Configure validates c completely and then writes it to the chip, which must
// be in standby. Once the packet type is accepted any later failure leaves the
// parameters stale.
func (d *Device) Configure(c Config) error {
	e, err := c.encode()
	if err != nil {
		return err
	}
	if !d.sm.mode.Standby() {
		return &ModeError{Op: "configure", Mode: d.sm.mode}
	}

	if err := d.SetPacketType(c.Modem.PacketType()); err != nil {
		return err
	}
	if _, err := d.execute(OpSetRfFrequency, e.frequency...); err != nil {
		return err
	}
	if _, err := d.execute(OpSetBufferBaseAddress, c.BufferBase.TX, c.BufferBase.RX); err != nil {
		return err
	}
	if _, err := d.execute(OpSetModulationParams, e.modulation...); err != nil {
		return err
	}
	if err := c.Modem.setup(d); err != nil {
		return err
	}
	if _, err := d.execute(OpSetPacketParams, e.packet...); err != nil {
		return err
	}
	d.packetParams = e.packet
	if _, err := d.execute(OpSetTxParams, e.tx...); err != nil {
		return err
	}
	if _, err := d.execute(OpSetRegulatorMode, byte(c.Regulator)); err != nil {
		return err
	}
	var autoFs byte
	if c.fallback() == ModeFS {
		autoFs = 1
	}
	if _, err := d.execute(OpSetAutoFs, autoFs); err != nil {
		return err
	}

	c.Fallback = c.fallback()
	d.cfg = c
	d.modem = c.Modem
	d.sm.fallback = c.Fallback
	d.fresh = true
	d.log.Debug().
		Stringer("type", d.packetType).
		Uint32("frequency", c.Frequency).
		Int8("power", c.TxPower).
		Stringer("fallback", c.Fallback).
		Msg("configured")
	return nil
}

// SetPacketType selects the packet type. The modulation and packet parameters
// must be configured again before the next cycle.
func (d *Device) SetPacketType(pt PacketType) error {
	if pt > PacketTypeBLE {
		return invalidConfig("packet type 0x%02x", byte(pt))
	}
	if !d.sm.mode.Standby() {
		return &ModeError{Op: "set packet type", Mode: d.sm.mode}
	}
	if _, err := d.execute(OpSetPacketType, byte(pt)); err != nil {
		return err
	}
	d.packetType = pt
	d.packetParams = nil
	d.fresh = false
	return nil
}

// ChipPacketType reads the packet type back from the chip.
func (d *Device) ChipPacketType() (PacketType, error) {
	_, b, err := d.executeRead(OpGetPacketType, 1)
	if err != nil {
		return 0, err
	}
	return PacketType(b[0]), nil
}

// SetFrequency retunes without a full Configure.
func (d *Device) SetFrequency(hz uint32) error {
	steps, err := frequencySteps(hz)
	if err != nil {
		return err
	}
	if _, err := d.execute(OpSetRfFrequency, steps...); err != nil {
		return err
	}
	d.cfg.Frequency = hz
	return nil
}

func (d *Device) SetTxPower(power int8, ramp RampTime) error {
	p, err := txParams(power, ramp)
	if err != nil {
		return err
	}
	if _, err := d.execute(OpSetTxParams, p...); err != nil {
		return err
	}
	d.cfg.TxPower, d.cfg.RampTime = power, ramp
	return nil
}

// SetTimeout changes the chip side timeout of following cycles.
func (d *Device) SetTimeout(t Timeout) error {
	if err := t.validate(); err != nil {
		return err
	}
	d.cfg.Timeout = t
	return nil
}

func (d *Device) FirmwareVersion() (uint16, error) {
	b, err := d.readRegister(RegFirmwareVersion, 2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

// Calibrate runs the selected calibrations. The chip must be in StandbyRC.
func (d *Device) Calibrate(p CalibrationParams) error {
	if d.sm.mode != ModeStandbyRC {
		return &ModeError{Op: "calibrate", Mode: d.sm.mode}
	}
	if p == 0 || p&^CalibrateAll != 0 {
		return invalidConfig("calibration 0x%02x", byte(p))
	}
	_, err := d.execute(OpCalibrate, byte(p))
	return err
}

// SetAutoTx makes the chip transmit delay after each received packet. Zero
// disables it.
func (d *Device) SetAutoTx(delay time.Duration) error {
	var us int64
	if delay > 0 {
		us = delay.Microseconds() - autoTxOffsetUs
		if us <= 0 || us > 0xffff {
			return invalidConfig("auto tx delay %s", delay)
		}
	}
	_, err := d.execute(OpSetAutoTx, byte(us>>8), byte(us))
	return err
}

// SetSyncWord writes sync word index (1 to 3) of the selected packet type.
func (d *Device) SetSyncWord(index int, value []byte) error {
	return d.writeSyncWord(d.packetType, index, value)
}

// SetMode requests a mode change. Tx transmits the buffer contents with the
// packet parameters last written; Rx and CAD behave as StartReceive and
// StartCAD.
func (d *Device) SetMode(m Mode) error {
	switch m {
	case ModeSleep:
		return d.Sleep(SleepRetainDataRAM)
	case ModeStandbyRC, ModeStandbyXOSC:
		return d.Standby(m)
	case ModeFS:
		return d.Fs()
	case ModeTx:
		if err := d.sm.check("set mode", ModeTx); err != nil {
			return err
		}
		if !d.fresh {
			return ErrStaleConfig
		}
		return d.armTransmit()
	case ModeRx:
		return d.startReceive()
	case ModeCAD:
		return d.startCAD()
	}
	return invalidConfig("mode %s", m)
}

// Standby moves to StandbyRC or StandbyXOSC. It is accepted in every mode,
// wakes a sleeping chip and aborts any running cycle.
func (d *Device) Standby(m Mode) error {
	var p byte
	switch m {
	case ModeStandbyRC:
	case ModeStandbyXOSC:
		p = 1
	default:
		return invalidConfig("%s is not a standby mode", m)
	}

	if d.sm.mode == ModeSleep {
		if err := d.wake(); err != nil {
			return err
		}
	}
	if _, err := d.execute(OpSetStandby, p); err != nil {
		return err
	}
	if d.cycle != cycleNone {
		d.log.Debug().Stringer("cycle", d.cycle).Msg("cycle aborted")
	}
	d.sm.commit(m, false)
	d.cycle = cycleNone
	return nil
}

// Sleep puts the chip to sleep. Only Standby wakes it again.
func (d *Device) Sleep(c SleepConfig) error {
	if c&^(SleepRetainDataRAM|SleepRetainDataBuff) != 0 {
		return invalidConfig("sleep config 0x%02x", byte(c))
	}
	if err := d.sm.check("sleep", ModeSleep); err != nil {
		return err
	}
	if _, err := d.execute(OpSetSleep, byte(c)); err != nil {
		return err
	}
	d.sm.commit(ModeSleep, false)
	if c&SleepRetainDataRAM == 0 {
		d.fresh = false
		d.packetParams = nil
	}
	return nil
}

func (d *Device) Fs() error {
	if err := d.sm.check("fs", ModeFS); err != nil {
		return err
	}
	if _, err := d.execute(OpSetFs); err != nil {
		return err
	}
	d.sm.commit(ModeFS, false)
	return nil
}

// StartTransmit writes payload and starts a transmission. It returns without
// waiting; poll CheckTransmit for the result.
func (d *Device) StartTransmit(payload []byte) error {
	return d.startTransmit(payload)
}

// CheckTransmit polls once. It returns true when the packet is sent (for
// Ranging, when the master result is in), ErrTxTimeout or ErrRangingTimeout
// when the chip gave up.
func (d *Device) CheckTransmit() (bool, error) {
	return d.checkTransmit()
}

// RangingResult returns the measurement of the last completed ranging
// transmit, or nil.
func (d *Device) RangingResult() *RangingResult {
	return d.ranging
}

// StartReceive starts the receiver with the configured timeout.
func (d *Device) StartReceive() error {
	return d.startReceive()
}

// CheckReceive polls once. A packet is returned with true; a packet failing
// its CRC or header check ends the cycle with ErrCRC or ErrHeader and no
// payload.
func (d *Device) CheckReceive() (*Packet, bool, error) {
	return d.checkReceive()
}

// StartCAD starts channel activity detection. LoRa only.
func (d *Device) StartCAD() error {
	return d.startCAD()
}

func (d *Device) CheckCAD() (detected, done bool, err error) {
	return d.checkCAD()
}

// StartContinuousWave transmits an unmodulated carrier until Standby.
func (d *Device) StartContinuousWave() error {
	if err := d.sm.check("continuous wave", ModeTx); err != nil {
		return err
	}
	if _, err := d.execute(OpSetTxContinuousWave); err != nil {
		return err
	}
	d.sm.commit(ModeTx, false)
	return nil
}

// ChannelInfo reads the chip mode and, while receiving, the instantaneous
// RSSI. A sleeping chip is not woken.
func (d *Device) ChannelInfo() (ChannelInfo, error) {
	if d.sm.mode == ModeSleep {
		return ChannelInfo{Mode: ModeSleep}, nil
	}
	if _, err := d.execute(OpGetStatus); err != nil {
		return ChannelInfo{}, err
	}
	info := ChannelInfo{Mode: d.sm.mode}
	if info.Mode != ModeRx {
		return info, nil
	}
	_, b, err := d.executeRead(OpGetRssiInst, 1)
	if err != nil {
		return ChannelInfo{}, err
	}
	info.RSSI = rssiFromRaw(b[0])
	info.RSSIValid = true
	return info, nil
}

// wait blocks until the irq line rises or the poll interval passes.
func (d *Device) wait(ctx context.Context) error {
	if w, ok := d.t.(irqWaiter); ok && d.useIRQPin {
		w.WaitIRQ(d.pollInterval)
	} else {
		t := time.NewTimer(d.pollInterval)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
		}
	}
	return ctx.Err()
}

// abort stops the running cycle after the caller gave up on it.
func (d *Device) abort(err error) error {
	if serr := d.Standby(ModeStandbyRC); serr != nil {
		d.log.Warn().Err(serr).Msg("standby after poll timeout")
	}
	return fmt.Errorf("%w: %v", ErrPollTimeout, err)
}

// Transmit sends payload and waits for completion or ctx expiry.
func (d *Device) Transmit(ctx context.Context, payload []byte) error {
	if err := d.StartTransmit(payload); err != nil {
		return err
	}
	for {
		done, err := d.CheckTransmit()
		if err != nil || done {
			return err
		}
		if err := d.wait(ctx); err != nil {
			return d.abort(err)
		}
	}
}

// Receive waits for one packet or ctx expiry. In continuous mode the receiver
// stays on afterwards and following calls keep polling it.
func (d *Device) Receive(ctx context.Context) (*Packet, error) {
	if d.cycle != cycleRx {
		if err := d.StartReceive(); err != nil {
			return nil, err
		}
	}
	for {
		p, ok, err := d.CheckReceive()
		if err != nil || ok {
			return p, err
		}
		if err := d.wait(ctx); err != nil {
			return nil, d.abort(err)
		}
	}
}

// DetectActivity runs one CAD and reports whether a LoRa preamble was seen.
func (d *Device) DetectActivity(ctx context.Context) (bool, error) {
	if err := d.StartCAD(); err != nil {
		return false, err
	}
	for {
		detected, done, err := d.CheckCAD()
		if err != nil || done {
			return detected, err
		}
		if err := d.wait(ctx); err != nil {
			return false, d.abort(err)
		}
	}
}
