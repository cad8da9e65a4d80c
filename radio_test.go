package sx128x

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

// The chip has no 500 kHz LoRa bandwidth (see TestLoRa500kHzRejected); the
// nearest offered setting, 406.25 kHz, stands in for it.
func TestScenarioLoRaTransmit406kHz(t *testing.T) {
	c, d := newSimDevice(t)

	bw, err := LoRaBandwidthFromHz(400000)
	if err != nil {
		t.Fatal(err)
	}
	lora := DefaultLoRa()
	lora.Modulation = LoRaModulation{SpreadingFactor: SF7, Bandwidth: bw, CodingRate: CR4_5}
	cfg := DefaultConfig()
	cfg.Modem = lora
	cfg.Frequency = 2400000000
	cfg.Timeout, _ = TimeoutFromDuration(100 * time.Millisecond)
	if err := d.Configure(cfg); err != nil {
		t.Fatal(err)
	}

	payload := []byte("0123456789")
	c.polls = 1
	if err := d.StartTransmit(payload); err != nil {
		t.Fatal(err)
	}
	if d.Mode() != ModeTx {
		t.Errorf("mode after StartTransmit = %s", d.Mode())
	}

	done, err := d.CheckTransmit()
	if err != nil || done {
		t.Fatalf("first poll = %v, %v; want not ready", done, err)
	}
	done, err = d.CheckTransmit()
	if err != nil || !done {
		t.Fatalf("second poll = %v, %v; want ready", done, err)
	}
	if d.Mode() != ModeStandbyRC {
		t.Errorf("mode after TxDone = %s", d.Mode())
	}
	if !bytes.Equal(c.buf[:10], payload) {
		t.Errorf("buffer = %q", c.buf[:10])
	}
	if c.packet[2] != 10 {
		t.Errorf("packet params carry length %d", c.packet[2])
	}
	if c.irq != 0 {
		t.Errorf("flags left set: %s", c.irq)
	}
	if _, err := d.CheckTransmit(); !errors.Is(err, ErrMode) {
		t.Errorf("CheckTransmit without a cycle = %v", err)
	}
}

func TestLoRa500kHzRejected(t *testing.T) {
	c, d := newSimDevice(t)
	if _, err := LoRaBandwidthFromHz(500000); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("500 kHz = %v", err)
	}
	cfg := DefaultConfig()
	cfg.Modem = &LoRa{
		Modulation: LoRaModulation{SpreadingFactor: SF7, Bandwidth: 0x1f, CodingRate: CR4_5},
		Packet:     DefaultLoRa().Packet,
	}
	if err := d.Configure(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Configure = %v", err)
	}
	if ops := c.recorded(); len(ops) != 0 {
		t.Errorf("invalid configuration sent %v", ops)
	}
}

func TestScenarioGFSKCrcError(t *testing.T) {
	c, d := newSimDevice(t)
	configureSim(t, d, DefaultGFSK())

	c.rxEvent = IRQRxDone | IRQCrcError
	if err := d.StartReceive(); err != nil {
		t.Fatal(err)
	}
	c.reset()
	p, ok, err := d.CheckReceive()
	if !errors.Is(err, ErrCRC) || ok || p != nil {
		t.Fatalf("CheckReceive = %v, %v, %v; want ErrCRC", p, ok, err)
	}
	if c.has(OpReadBuffer) || c.has(OpGetRxBufferStatus) {
		t.Error("payload read after crc error")
	}
	if d.Mode() != ModeStandbyRC {
		t.Errorf("mode = %s", d.Mode())
	}
}

func TestScenarioTransmitWhileReceiving(t *testing.T) {
	c, d := newSimDevice(t)
	configureSim(t, d, DefaultLoRa())
	if err := d.StartReceive(); err != nil {
		t.Fatal(err)
	}
	c.reset()

	err := d.StartTransmit([]byte{1, 2, 3})
	var me *ModeError
	if !errors.As(err, &me) || me.Mode != ModeRx {
		t.Fatalf("StartTransmit in Rx = %v", err)
	}
	if ops := c.recorded(); len(ops) != 0 {
		t.Errorf("rejected transmit sent %v", ops)
	}

	if err := d.Standby(ModeStandbyRC); err != nil {
		t.Fatal(err)
	}
	if err := d.StartTransmit([]byte{1, 2, 3}); err != nil {
		t.Errorf("StartTransmit after Standby: %v", err)
	}
}

func TestScenarioStaleAfterPacketType(t *testing.T) {
	c, d := newSimDevice(t)
	configureSim(t, d, DefaultLoRa())
	if err := d.SetPacketType(PacketTypeGFSK); err != nil {
		t.Fatal(err)
	}
	if c.packetType != byte(PacketTypeGFSK) {
		t.Errorf("chip packet type 0x%02x", c.packetType)
	}
	c.reset()
	if err := d.StartTransmit([]byte{1}); !errors.Is(err, ErrStaleConfig) {
		t.Fatalf("StartTransmit = %v; want ErrStaleConfig", err)
	}
	if err := d.StartReceive(); !errors.Is(err, ErrStaleConfig) {
		t.Fatalf("StartReceive = %v; want ErrStaleConfig", err)
	}
	if ops := c.recorded(); len(ops) != 0 {
		t.Errorf("stale transmit sent %v", ops)
	}

	configureSim(t, d, DefaultGFSK())
	if err := d.StartTransmit([]byte{1}); err != nil {
		t.Errorf("after Configure: %v", err)
	}
}

func TestConfigureFailureLeavesStale(t *testing.T) {
	c, d := newSimDevice(t)
	c.failOp = OpSetModulationParams
	cfg := DefaultConfig()
	var ce *CommandError
	if err := d.Configure(cfg); !errors.As(err, &ce) {
		t.Fatalf("Configure = %v", err)
	}
	c.failOp = 0
	if err := d.StartTransmit([]byte{1}); !errors.Is(err, ErrStaleConfig) {
		t.Errorf("StartTransmit after failed Configure = %v", err)
	}
}

func TestConfigureRejectedPacketTypeKeepsConfig(t *testing.T) {
	c, d := newSimDevice(t)
	configureSim(t, d, DefaultLoRa())

	c.failOp = OpSetPacketType
	cfg := DefaultConfig()
	cfg.Modem = DefaultGFSK()
	var ce *CommandError
	if err := d.Configure(cfg); !errors.As(err, &ce) {
		t.Fatalf("Configure = %v", err)
	}
	c.failOp = 0

	if d.PacketType() != PacketTypeLoRa {
		t.Errorf("packet type = %s", d.PacketType())
	}
	if pt, err := d.ChipPacketType(); err != nil || pt != PacketTypeLoRa {
		t.Errorf("chip packet type = %s, %v", pt, err)
	}
	if err := d.StartTransmit([]byte{1}); err != nil {
		t.Errorf("StartTransmit after rejected packet type = %v", err)
	}
}

func TestConfigureValidation(t *testing.T) {
	c, d := newSimDevice(t)
	mutations := map[string]func(*Config){
		"frequency":   func(c *Config) { c.Frequency = 2300000000 },
		"power":       func(c *Config) { c.TxPower = 14 },
		"ramp":        func(c *Config) { c.RampTime = 0x01 },
		"buffer base": func(c *Config) { c.BufferBase = BufferBase{TX: 0x40, RX: 0x40} },
		"ldro":        func(c *Config) { c.Modem = &LoRa{Modulation: LoRaModulation{SF12, BW200, CR4_5}, Packet: DefaultLoRa().Packet} },
		"fallback":    func(c *Config) { c.Fallback = ModeTx },
		"no modem":    func(c *Config) { c.Modem = nil },
		"sync word":   func(c *Config) { c.Modem = &GFSK{Modulation: DefaultGFSK().Modulation, Packet: DefaultGFSK().Packet, SyncWord: []byte{1, 2}} },
		"regulator":   func(c *Config) { c.Regulator = 2 },
		"cad":         func(c *Config) { c.CADSymbols = 0xa0 },
	}
	for name, mutate := range mutations {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := d.Configure(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: Configure = %v", name, err)
		}
	}
	if ops := c.recorded(); len(ops) != 0 {
		t.Errorf("invalid configurations sent %v", ops)
	}
}

func TestConfigureOutsideStandby(t *testing.T) {
	_, d := newSimDevice(t)
	configureSim(t, d, DefaultLoRa())
	if err := d.StartReceive(); err != nil {
		t.Fatal(err)
	}
	if err := d.Configure(DefaultConfig()); !errors.Is(err, ErrMode) {
		t.Errorf("Configure in Rx = %v", err)
	}
}

func TestReceivePacket(t *testing.T) {
	c, d := newSimDevice(t)
	configureSim(t, d, DefaultLoRa())

	copy(c.buf[0x80:], "hello")
	c.rxLength, c.rxStart = 5, 0x80
	c.pktStatus = []byte{0x50, 0x14, 0, 0, 0}
	c.rxEvent = IRQRxDone | IRQHeaderValid
	c.polls = 2

	if err := d.StartReceive(); err != nil {
		t.Fatal(err)
	}
	var p *Packet
	for i := 0; i < 3; i++ {
		var ok bool
		var err error
		if p, ok, err = d.CheckReceive(); err != nil {
			t.Fatal(err)
		}
		if ok != (i == 2) {
			t.Fatalf("poll %d ready = %v", i, ok)
		}
	}
	if string(p.Payload) != "hello" || p.Info.Length != 5 {
		t.Errorf("packet = %q (%d)", p.Payload, p.Info.Length)
	}
	if p.Info.RSSI != -40 || p.Info.SNR != 5 || !p.Info.CRCOK {
		t.Errorf("info = %+v", p.Info)
	}
	if d.Mode() != ModeStandbyRC {
		t.Errorf("mode = %s", d.Mode())
	}
}

func TestReceiveZeroLength(t *testing.T) {
	c, d := newSimDevice(t)
	configureSim(t, d, DefaultGFSK())
	c.rxLength, c.rxStart = 0, 0x80
	c.pktStatus = []byte{0, 0x90, byte(PacketReceived), 0, 1}
	c.rxEvent = IRQRxDone

	if err := d.StartReceive(); err != nil {
		t.Fatal(err)
	}
	c.reset()
	p, ok, err := d.CheckReceive()
	if err != nil || !ok {
		t.Fatalf("CheckReceive = %v, %v", ok, err)
	}
	if p.Payload == nil || len(p.Payload) != 0 || p.Info.Length != 0 {
		t.Errorf("payload = %v, length %d", p.Payload, p.Info.Length)
	}
	if p.Info.RSSI != -72 || !p.Info.CRCOK || p.Info.SyncAddress != 1 {
		t.Errorf("info = %+v", p.Info)
	}
	if c.has(OpReadBuffer) {
		t.Error("zero length packet read from buffer")
	}
}

func TestReceiveImplicitHeaderLength(t *testing.T) {
	c, d := newSimDevice(t)
	lora := DefaultLoRa()
	lora.Packet.ImplicitHeader = true
	lora.Packet.PayloadLength = 4
	configureSim(t, d, lora)

	c.regs[RegPayloadLength] = 4
	c.rxLength, c.rxStart = 0, 0x80
	copy(c.buf[0x80:], []byte{9, 8, 7, 6})
	c.rxEvent = IRQRxDone
	if err := d.StartReceive(); err != nil {
		t.Fatal(err)
	}
	p, ok, err := d.CheckReceive()
	if err != nil || !ok {
		t.Fatalf("CheckReceive = %v, %v", ok, err)
	}
	if !bytes.Equal(p.Payload, []byte{9, 8, 7, 6}) {
		t.Errorf("payload = % x", p.Payload)
	}
}

func TestReceiveBLEIncludesHeader(t *testing.T) {
	c, d := newSimDevice(t)
	configureSim(t, d, DefaultBLE())
	if !bytes.Equal([]byte{c.regs[RegSyncWordBase1+1], c.regs[RegSyncWordBase1+2], c.regs[RegSyncWordBase1+3], c.regs[RegSyncWordBase1+4]}, BLEAdvertisingAddress) {
		t.Error("access address not written")
	}

	c.rxLength, c.rxStart = 3, 0x80
	copy(c.buf[0x80:], []byte{0x02, 0x03, 0xaa, 0xbb, 0xcc})
	c.rxEvent = IRQRxDone
	if err := d.StartReceive(); err != nil {
		t.Fatal(err)
	}
	p, ok, err := d.CheckReceive()
	if err != nil || !ok {
		t.Fatalf("CheckReceive = %v, %v", ok, err)
	}
	if len(p.Payload) != 5 || p.Info.PacketType != PacketTypeBLE {
		t.Errorf("packet = % x, %s", p.Payload, p.Info.PacketType)
	}
}

func TestReceiveContinuous(t *testing.T) {
	c, d := newSimDevice(t)
	cfg := DefaultConfig()
	cfg.Timeout = RxContinuous
	if err := d.Configure(cfg); err != nil {
		t.Fatal(err)
	}
	c.rxLength, c.rxStart = 1, 0x80
	c.rxEvent = IRQRxDone
	if err := d.StartReceive(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, ok, err := d.CheckReceive(); err != nil || !ok {
			t.Fatalf("packet %d: %v, %v", i, ok, err)
		}
		if d.Mode() != ModeRx {
			t.Fatalf("continuous receive left Rx for %s", d.Mode())
		}
		c.schedule(IRQRxDone)
	}
	if err := d.Standby(ModeStandbyRC); err != nil {
		t.Fatal(err)
	}
}

func TestTransmitTimeout(t *testing.T) {
	c, d := newSimDevice(t)
	configureSim(t, d, DefaultLoRa())
	c.txEvent = IRQRxTxTimeout
	if err := d.StartTransmit([]byte{1, 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.CheckTransmit(); !errors.Is(err, ErrTxTimeout) {
		t.Fatalf("CheckTransmit = %v", err)
	}
	if d.Mode() != ModeStandbyRC {
		t.Errorf("mode = %s", d.Mode())
	}
}

func TestReceiveTimeout(t *testing.T) {
	c, d := newSimDevice(t)
	configureSim(t, d, DefaultFLRC())
	c.rxEvent = IRQRxTxTimeout
	if err := d.StartReceive(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := d.CheckReceive(); !errors.Is(err, ErrRxTimeout) {
		t.Fatalf("CheckReceive = %v", err)
	}
}

func TestTransmitPayloadLimits(t *testing.T) {
	_, d := newSimDevice(t)
	cfg := DefaultConfig()
	cfg.BufferBase = BufferBase{TX: 0xf8, RX: 0x02}
	if err := d.Configure(cfg); err != nil {
		t.Fatal(err)
	}
	if err := d.StartTransmit(make([]byte, 11)); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("payload into rx region = %v", err)
	}
	if err := d.StartTransmit(make([]byte, 10)); err != nil {
		t.Errorf("payload up to rx base: %v", err)
	}

	_, d = newSimDevice(t)
	configureSim(t, d, DefaultFLRC())
	if err := d.StartTransmit(make([]byte, 128)); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("128 byte FLRC payload = %v", err)
	}
}

func TestFallbackFS(t *testing.T) {
	c, d := newSimDevice(t)
	cfg := DefaultConfig()
	cfg.Fallback = ModeFS
	if err := d.Configure(cfg); err != nil {
		t.Fatal(err)
	}
	if !c.autoFs {
		t.Fatal("auto fs not enabled")
	}
	if err := d.StartTransmit([]byte{1}); err != nil {
		t.Fatal(err)
	}
	if done, err := d.CheckTransmit(); err != nil || !done {
		t.Fatalf("CheckTransmit = %v, %v", done, err)
	}
	if d.Mode() != ModeFS {
		t.Errorf("mode after tx with FS fallback = %s", d.Mode())
	}
}

func TestIRQIdempotence(t *testing.T) {
	c, d := newSimDevice(t)
	c.irq = IRQPreambleDetected | IRQSyncWordValid
	for i := 0; i < 3; i++ {
		irq, err := d.IRQStatus()
		if err != nil {
			t.Fatal(err)
		}
		if irq != IRQPreambleDetected|IRQSyncWordValid {
			t.Errorf("read %d: %s", i, irq)
		}
	}

	c.reset()
	if err := d.ClearIRQ(IRQNone); err != nil {
		t.Fatal(err)
	}
	if ops := c.recorded(); len(ops) != 0 {
		t.Errorf("empty clear sent %v", ops)
	}
	for i := 0; i < 2; i++ {
		if err := d.ClearIRQ(IRQAll); err != nil {
			t.Fatal(err)
		}
		if c.irq != 0 {
			t.Errorf("clear %d left %s", i, c.irq)
		}
	}
}

func TestChannelInfo(t *testing.T) {
	c, d := newSimDevice(t)
	info, err := d.ChannelInfo()
	if err != nil || info.Mode != ModeStandbyRC || info.RSSIValid {
		t.Errorf("standby ChannelInfo = %+v, %v", info, err)
	}

	configureSim(t, d, DefaultLoRa())
	if err := d.StartReceive(); err != nil {
		t.Fatal(err)
	}
	c.rssi = 0xa0
	if info, err = d.ChannelInfo(); err != nil {
		t.Fatal(err)
	}
	if info.Mode != ModeRx || !info.RSSIValid || info.RSSI != -80 {
		t.Errorf("rx ChannelInfo = %+v", info)
	}
}

func TestBlockingTransmitAndReceive(t *testing.T) {
	c, d := newSimDevice(t)
	configureSim(t, d, DefaultLoRa())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c.polls = 3
	if err := d.Transmit(ctx, []byte("ping")); err != nil {
		t.Fatal(err)
	}

	copy(c.buf[0x80:], "pong")
	c.rxLength, c.rxStart = 4, 0x80
	c.rxEvent = IRQRxDone
	p, err := d.Receive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if string(p.Payload) != "pong" {
		t.Errorf("payload = %q", p.Payload)
	}
}

func TestPollTimeoutAborts(t *testing.T) {
	c, d := newSimDevice(t)
	configureSim(t, d, DefaultLoRa())
	c.txEvent = 0

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Transmit(ctx, []byte{1})
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("Transmit = %v", err)
	}
	if errors.Is(err, ErrTxTimeout) {
		t.Error("driver timeout reported as chip timeout")
	}
	if d.Mode() != ModeStandbyRC {
		t.Errorf("mode after abort = %s", d.Mode())
	}
}

func TestIRQPinPolling(t *testing.T) {
	c := newSimChip()
	opts := testOptions()
	opts.UseIRQPin = true
	d, err := New(&Bus{SPI: c, BusyPin: c.busy, IRQPin: c.irqPin, ResetPin: c.rst}, opts)
	if err != nil {
		t.Fatal(err)
	}
	configureSim(t, d, DefaultLoRa())
	c.txEvent = 0
	if err := d.StartTransmit([]byte{1}); err != nil {
		t.Fatal(err)
	}
	c.reset()
	if done, err := d.CheckTransmit(); err != nil || done {
		t.Fatalf("CheckTransmit = %v, %v", done, err)
	}
	if ops := c.recorded(); len(ops) != 0 {
		t.Errorf("poll with irq line low sent %v", ops)
	}

	c.irq = IRQTxDone
	c.updateIRQPin()
	if done, err := d.CheckTransmit(); err != nil || !done {
		t.Fatalf("CheckTransmit = %v, %v", done, err)
	}
}

func TestCAD(t *testing.T) {
	c, d := newSimDevice(t)
	configureSim(t, d, DefaultLoRa())
	c.rxEvent = IRQCadDone | IRQCadDetected
	detected, err := d.DetectActivity(context.Background())
	if err != nil || !detected {
		t.Fatalf("DetectActivity = %v, %v", detected, err)
	}
	if d.Mode() != ModeStandbyRC {
		t.Errorf("mode = %s", d.Mode())
	}

	configureSim(t, d, DefaultGFSK())
	if err := d.StartCAD(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("CAD with GFSK = %v", err)
	}
}

func TestRangingMaster(t *testing.T) {
	c, d := newSimDevice(t)
	r := DefaultRanging()
	configureSim(t, d, r)
	c.regs[RegRangingResult] = 0x00
	c.regs[RegRangingResult+1] = 0x01
	c.regs[RegRangingResult+2] = 0x00
	c.txEvent = IRQTxDone | IRQRangingMasterResultValid

	if err := d.StartTransmit(nil); err != nil {
		t.Fatal(err)
	}
	if !c.has(OpSetRangingRole) {
		t.Error("ranging role not set")
	}
	if got := []byte{c.regs[RegRangingRequestAddress], c.regs[RegRangingRequestAddress+3]}; !bytes.Equal(got, []byte{0x32, 0x00}) {
		t.Errorf("request address bytes % x", got)
	}
	done, err := d.CheckTransmit()
	if err != nil || !done {
		t.Fatalf("CheckTransmit = %v, %v", done, err)
	}
	res := d.RangingResult()
	if res == nil || res.Raw != 256 || res.Distance <= 0 {
		t.Errorf("ranging result = %+v", res)
	}
}

func TestRangingMasterTimeout(t *testing.T) {
	c, d := newSimDevice(t)
	configureSim(t, d, DefaultRanging())
	c.txEvent = IRQTxDone | IRQRangingMasterTimeout
	if err := d.StartTransmit(nil); err != nil {
		t.Fatal(err)
	}
	if _, err := d.CheckTransmit(); !errors.Is(err, ErrRangingTimeout) {
		t.Errorf("CheckTransmit = %v", err)
	}
}

func TestNewFirmwareCheck(t *testing.T) {
	tests := []struct {
		version uint16
		skip    bool
		want    error
	}{
		{0xa9b5, false, nil},
		{0x0000, false, ErrNoComms},
		{0xffff, true, ErrNoComms},
		{0x1234, false, ErrInvalidDevice},
		{0x1234, true, nil},
	}
	for _, tt := range tests {
		c := newSimChip()
		c.regs[RegFirmwareVersion] = byte(tt.version >> 8)
		c.regs[RegFirmwareVersion+1] = byte(tt.version)
		opts := testOptions()
		opts.SkipVersionCheck = tt.skip
		_, err := New(&Bus{SPI: c, BusyPin: c.busy, ResetPin: c.rst}, opts)
		if !errors.Is(err, tt.want) {
			t.Errorf("version 0x%04x skip %v: %v; want %v", tt.version, tt.skip, err, tt.want)
		}
	}
}

func TestMiscCommands(t *testing.T) {
	c, d := newSimDevice(t)
	configureSim(t, d, DefaultGFSK())

	if pt, err := d.ChipPacketType(); err != nil || pt != PacketTypeGFSK {
		t.Errorf("ChipPacketType = %s, %v", pt, err)
	}
	if err := d.SetSyncWord(2, []byte{1, 2, 3, 4, 5}); err != nil {
		t.Fatal(err)
	}
	if c.regs[RegSyncWordBase2] != 1 || c.regs[RegSyncWordBase2+4] != 5 {
		t.Error("sync word 2 not written")
	}
	if err := d.SetSyncWord(4, []byte{1, 2, 3, 4, 5}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("sync word 4 = %v", err)
	}
	if err := d.Calibrate(CalibrateAll); err != nil {
		t.Errorf("Calibrate: %v", err)
	}
	if err := d.SetAutoTx(20 * time.Microsecond); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("auto tx shorter than the offset = %v", err)
	}
	if err := d.SetAutoTx(time.Millisecond); err != nil {
		t.Errorf("SetAutoTx: %v", err)
	}
	if err := d.SetFrequency(2450000000); err != nil || d.Config().Frequency != 2450000000 {
		t.Errorf("SetFrequency: %v", err)
	}

	if err := d.Standby(ModeStandbyXOSC); err != nil {
		t.Fatal(err)
	}
	if err := d.Calibrate(CalibrateAll); !errors.Is(err, ErrMode) {
		t.Errorf("Calibrate in StandbyXOSC = %v", err)
	}
}

func TestFLRCSyncTolerance(t *testing.T) {
	c, d := newSimDevice(t)
	f := DefaultFLRC()
	f.SyncWord = []byte{0xde, 0xad, 0xbe, 0xef}
	configureSim(t, d, f)
	if c.regs[RegSyncWordBase1+1] != 0xde || c.regs[RegSyncWordBase1+4] != 0xef {
		t.Error("FLRC sync word not written one byte into the slot")
	}
	if c.regs[RegSyncWordTolerance] != 0x30 {
		t.Errorf("tolerance = 0x%02x", c.regs[RegSyncWordTolerance])
	}
}
