package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/NV4RE/sx128x"
)

// Config is the configuration file of the sx128x tool.
type Config struct {
	Device DeviceConfig `yaml:"device"`
	Radio  RadioConfig  `yaml:"radio"`
	NATS   NATSConfig   `yaml:"nats"`
	Log    LogConfig    `yaml:"log"`
}

// DeviceConfig names the SPI port and pins the radio is wired to.
type DeviceConfig struct {
	Name             string        `yaml:"name"`
	SPI              string        `yaml:"spi"`
	Busy             string        `yaml:"busy"`
	IRQ              string        `yaml:"irq"`
	Reset            string        `yaml:"reset"`
	SpeedHz          int64         `yaml:"speed_hz"`
	BusyTimeout      time.Duration `yaml:"busy_timeout"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	UseIRQPin        bool          `yaml:"use_irq_pin"`
	SkipVersionCheck bool          `yaml:"skip_version_check"`
}

type RadioConfig struct {
	PacketType string           `yaml:"packet_type"` // lora, gfsk, flrc, ble, ranging
	Frequency  uint32           `yaml:"frequency"`
	TxPower    int8             `yaml:"tx_power"`
	RampTimeUs int              `yaml:"ramp_time_us"`
	Timeout    time.Duration    `yaml:"timeout"`
	Continuous bool             `yaml:"continuous"`
	Fallback   string           `yaml:"fallback"`  // standby_rc, fs
	Regulator  string           `yaml:"regulator"` // ldo, dcdc
	BufferBase BufferBaseConfig `yaml:"buffer_base"`
	CADSymbols int              `yaml:"cad_symbols"`
	LoRa       LoRaConfig       `yaml:"lora"`
	GFSK       GFSKConfig       `yaml:"gfsk"`
	FLRC       FLRCConfig       `yaml:"flrc"`
	BLE        BLEConfig        `yaml:"ble"`
	Ranging    RangingConfig    `yaml:"ranging"`
}

type BufferBaseConfig struct {
	TX uint8 `yaml:"tx"`
	RX uint8 `yaml:"rx"`
}

type LoRaConfig struct {
	SpreadingFactor int    `yaml:"spreading_factor"`
	Bandwidth       uint32 `yaml:"bandwidth"`   // Hz
	CodingRate      string `yaml:"coding_rate"` // 4/5 to 4/8, 4/5li to 4/7li
	Preamble        uint32 `yaml:"preamble"`
	ImplicitHeader  bool   `yaml:"implicit_header"`
	PayloadLength   uint8  `yaml:"payload_length"`
	CRC             *bool  `yaml:"crc"`
	InvertIQ        bool   `yaml:"invert_iq"`
}

type GFSKConfig struct {
	BitrateKbps     int     `yaml:"bitrate_kbps"`
	BandwidthKHz    int     `yaml:"bandwidth_khz"`
	ModulationIndex float64 `yaml:"modulation_index"`
	Shaping         string  `yaml:"shaping"` // off, bt1.0, bt0.5
	PreambleBits    uint8   `yaml:"preamble_bits"`
	SyncWord        string  `yaml:"sync_word"` // hex, 1 to 5 bytes
	FixedLength     bool    `yaml:"fixed_length"`
	PayloadLength   uint8   `yaml:"payload_length"`
	CRCLength       *uint8  `yaml:"crc_length"`
	Whitening       *bool   `yaml:"whitening"`
}

type FLRCConfig struct {
	BitrateKbps   int    `yaml:"bitrate_kbps"`
	CodingRate    string `yaml:"coding_rate"` // 1/2, 3/4, 1
	Shaping       string `yaml:"shaping"`
	PreambleBits  uint8  `yaml:"preamble_bits"`
	SyncWord      string `yaml:"sync_word"` // hex, 4 bytes
	FixedLength   bool   `yaml:"fixed_length"`
	PayloadLength uint8  `yaml:"payload_length"`
	CRCLength     *uint8 `yaml:"crc_length"`
}

type BLEConfig struct {
	ConnectionState string `yaml:"connection_state"` // 31, 37, 255, test
	CRC             *bool  `yaml:"crc"`
	Whitening       *bool  `yaml:"whitening"`
	AccessAddress   string `yaml:"access_address"` // hex, 4 bytes
}

type RangingConfig struct {
	LoRaConfig `yaml:",inline"`
	Address    uint32 `yaml:"address"`
}

type NATSConfig struct {
	URL               string        `yaml:"url"`
	Subject           string        `yaml:"subject"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads filename, applies environment overrides and defaults, and checks
// that the radio section converts.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.setDefaults()

	if _, err := cfg.Radio.Radio(); err != nil {
		return nil, fmt.Errorf("radio config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if spi := os.Getenv("SX128X_SPI"); spi != "" {
		c.Device.SPI = spi
	}
	if level := os.Getenv("SX128X_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if natsURL := os.Getenv("SX128X_NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}
}

func (c *Config) setDefaults() {
	if c.Device.Name == "" {
		c.Device.Name = "sx128x"
	}
	if c.Device.SpeedHz == 0 {
		c.Device.SpeedHz = int64(sx128x.DefaultSPISpeed / physic.Hertz)
	}
	if c.Radio.PacketType == "" {
		c.Radio.PacketType = "lora"
	}
	if c.Radio.Frequency == 0 {
		c.Radio.Frequency = sx128x.FrequencyMin
	}
	if c.Radio.RampTimeUs == 0 {
		c.Radio.RampTimeUs = 20
	}
	if c.Radio.BufferBase.TX == 0 && c.Radio.BufferBase.RX == 0 {
		c.Radio.BufferBase.RX = 0x80
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = "sx128x"
	}
	if c.NATS.MaxReconnects == 0 {
		c.NATS.MaxReconnects = 10
	}
	if c.NATS.ReconnectInterval == 0 {
		c.NATS.ReconnectInterval = 2 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Options returns the driver options of the device section.
func (d DeviceConfig) Options() sx128x.Options {
	return sx128x.Options{
		BusyTimeout:      d.BusyTimeout,
		PollInterval:     d.PollInterval,
		UseIRQPin:        d.UseIRQPin && d.IRQ != "",
		SkipVersionCheck: d.SkipVersionCheck,
	}
}

// Speed is the SPI clock.
func (d DeviceConfig) Speed() physic.Frequency {
	return physic.Frequency(d.SpeedHz) * physic.Hertz
}

var ramps = map[int]sx128x.RampTime{
	2: sx128x.Ramp02Us, 4: sx128x.Ramp04Us, 6: sx128x.Ramp06Us, 8: sx128x.Ramp08Us,
	10: sx128x.Ramp10Us, 12: sx128x.Ramp12Us, 16: sx128x.Ramp16Us, 20: sx128x.Ramp20Us,
}

var cadSymbols = map[int]sx128x.CADSymbols{
	0: sx128x.CADFourSymbols, 1: sx128x.CADOneSymbol, 2: sx128x.CADTwoSymbols,
	4: sx128x.CADFourSymbols, 8: sx128x.CADEightSymbols, 16: sx128x.CADSixteenSymbols,
}

// Radio converts the radio section into a driver configuration.
func (r RadioConfig) Radio() (sx128x.Config, error) {
	cfg := sx128x.DefaultConfig()
	cfg.Frequency = r.Frequency
	cfg.TxPower = r.TxPower
	cfg.BufferBase = sx128x.BufferBase{TX: r.BufferBase.TX, RX: r.BufferBase.RX}

	var ok bool
	if cfg.RampTime, ok = ramps[r.RampTimeUs]; !ok {
		return cfg, fmt.Errorf("ramp time %d us not supported", r.RampTimeUs)
	}
	if cfg.CADSymbols, ok = cadSymbols[r.CADSymbols]; !ok {
		return cfg, fmt.Errorf("cad over %d symbols not supported", r.CADSymbols)
	}

	switch strings.ToLower(r.Fallback) {
	case "", "standby_rc":
		cfg.Fallback = sx128x.ModeStandbyRC
	case "fs":
		cfg.Fallback = sx128x.ModeFS
	default:
		return cfg, fmt.Errorf("fallback mode %q", r.Fallback)
	}

	switch strings.ToLower(r.Regulator) {
	case "", "ldo":
		cfg.Regulator = sx128x.RegulatorLDO
	case "dcdc":
		cfg.Regulator = sx128x.RegulatorDCDC
	default:
		return cfg, fmt.Errorf("regulator %q", r.Regulator)
	}

	if r.Continuous {
		cfg.Timeout = sx128x.RxContinuous
	} else {
		t, err := sx128x.TimeoutFromDuration(r.Timeout)
		if err != nil {
			return cfg, err
		}
		cfg.Timeout = t
	}

	var err error
	switch strings.ToLower(r.PacketType) {
	case "lora":
		cfg.Modem, err = r.LoRa.modem()
	case "gfsk":
		cfg.Modem, err = r.GFSK.modem()
	case "flrc":
		cfg.Modem, err = r.FLRC.modem()
	case "ble":
		cfg.Modem, err = r.BLE.modem()
	case "ranging":
		cfg.Modem, err = r.Ranging.modem()
	default:
		err = fmt.Errorf("packet type %q", r.PacketType)
	}
	return cfg, err
}

var loraCodingRates = map[string]sx128x.LoRaCodingRate{
	"4/5": sx128x.CR4_5, "4/6": sx128x.CR4_6, "4/7": sx128x.CR4_7, "4/8": sx128x.CR4_8,
	"4/5li": sx128x.CRLI4_5, "4/6li": sx128x.CRLI4_6, "4/7li": sx128x.CRLI4_7,
}

func (l LoRaConfig) settings() (sx128x.LoRaModulation, sx128x.LoRaPacket, error) {
	def := sx128x.DefaultLoRa()
	m, p := def.Modulation, def.Packet

	if l.SpreadingFactor != 0 {
		if l.SpreadingFactor < 5 || l.SpreadingFactor > 12 {
			return m, p, fmt.Errorf("spreading factor %d", l.SpreadingFactor)
		}
		m.SpreadingFactor = sx128x.LoRaSpreadingFactor(l.SpreadingFactor << 4)
	}
	if l.Bandwidth != 0 {
		bw, err := sx128x.LoRaBandwidthFromHz(l.Bandwidth)
		if err != nil {
			return m, p, err
		}
		m.Bandwidth = bw
	}
	if l.CodingRate != "" {
		cr, ok := loraCodingRates[strings.ToLower(l.CodingRate)]
		if !ok {
			return m, p, fmt.Errorf("coding rate %q", l.CodingRate)
		}
		m.CodingRate = cr
	}

	if l.Preamble != 0 {
		p.PreambleLength = l.Preamble
	}
	p.ImplicitHeader = l.ImplicitHeader
	if l.PayloadLength != 0 {
		p.PayloadLength = l.PayloadLength
	}
	if l.CRC != nil {
		p.CRC = *l.CRC
	}
	p.InvertIQ = l.InvertIQ
	return m, p, nil
}

func (l LoRaConfig) modem() (sx128x.Modem, error) {
	m, p, err := l.settings()
	if err != nil {
		return nil, err
	}
	return &sx128x.LoRa{Modulation: m, Packet: p}, nil
}

func (r RangingConfig) modem() (sx128x.Modem, error) {
	def := sx128x.DefaultRanging()
	l := r.LoRaConfig
	if l.SpreadingFactor == 0 {
		l.SpreadingFactor = def.Modulation.SpreadingFactor.Value()
	}
	if l.Bandwidth == 0 {
		l.Bandwidth = def.Modulation.Bandwidth.Hz()
	}
	m, p, err := l.settings()
	if err != nil {
		return nil, err
	}
	if r.LoRaConfig.PayloadLength == 0 {
		p.PayloadLength = def.Packet.PayloadLength
	}
	addr := r.Address
	if addr == 0 {
		addr = def.Address
	}
	return &sx128x.Ranging{Modulation: m, Packet: p, Address: addr}, nil
}

var gfskBitrates = map[[2]int]sx128x.BitrateBandwidth{
	{2000, 2400}: sx128x.BR2000BW2400, {1600, 2400}: sx128x.BR1600BW2400,
	{1000, 2400}: sx128x.BR1000BW2400, {1000, 1200}: sx128x.BR1000BW1200,
	{800, 2400}: sx128x.BR800BW2400, {800, 1200}: sx128x.BR800BW1200,
	{500, 1200}: sx128x.BR500BW1200, {500, 600}: sx128x.BR500BW600,
	{400, 1200}: sx128x.BR400BW1200, {400, 600}: sx128x.BR400BW600,
	{250, 600}: sx128x.BR250BW600, {250, 300}: sx128x.BR250BW300,
	{125, 300}: sx128x.BR125BW300,
}

var shapings = map[string]sx128x.ModulationShaping{
	"":      sx128x.ShapingBT05,
	"off":   sx128x.ShapingOff,
	"bt1.0": sx128x.ShapingBT10,
	"bt0.5": sx128x.ShapingBT05,
}

// modulationIndex maps 0.35 and 0.5 to 4.0 in steps of 0.25.
func modulationIndex(mi float64) (sx128x.ModulationIndex, error) {
	if mi == 0.35 {
		return sx128x.MI035, nil
	}
	steps := mi / 0.25
	if steps < 2 || steps > 16 || steps != float64(int(steps)) {
		return 0, fmt.Errorf("modulation index %g", mi)
	}
	return sx128x.ModulationIndex(int(steps) - 1), nil
}

func syncWord(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("sync word %q: %w", s, err)
	}
	return b, nil
}

func (g GFSKConfig) modem() (sx128x.Modem, error) {
	m := sx128x.DefaultGFSK()
	if g.BitrateKbps != 0 || g.BandwidthKHz != 0 {
		br, ok := gfskBitrates[[2]int{g.BitrateKbps, g.BandwidthKHz}]
		if !ok {
			return nil, fmt.Errorf("GFSK %d kb/s at %d kHz not supported", g.BitrateKbps, g.BandwidthKHz)
		}
		m.Modulation.BitrateBandwidth = br
	}
	if g.ModulationIndex != 0 {
		mi, err := modulationIndex(g.ModulationIndex)
		if err != nil {
			return nil, err
		}
		m.Modulation.ModulationIndex = mi
	}
	sh, ok := shapings[strings.ToLower(g.Shaping)]
	if !ok {
		return nil, fmt.Errorf("shaping %q", g.Shaping)
	}
	m.Modulation.Shaping = sh

	if g.PreambleBits != 0 {
		m.Packet.PreambleBits = g.PreambleBits
	}
	sw, err := syncWord(g.SyncWord)
	if err != nil {
		return nil, err
	}
	if sw != nil {
		// Right aligned in the 5 byte slot.
		m.Packet.SyncWordLength = uint8(len(sw))
		m.SyncWord = make([]byte, 5)
		copy(m.SyncWord[5-len(sw):], sw)
	}
	m.Packet.FixedLength = g.FixedLength
	if g.PayloadLength != 0 {
		m.Packet.PayloadLength = g.PayloadLength
	}
	if g.CRCLength != nil {
		m.Packet.CRCLength = *g.CRCLength
	}
	if g.Whitening != nil {
		m.Packet.Whitening = *g.Whitening
	}
	return m, nil
}

var flrcBitrates = map[int]sx128x.FLRCBitrateBandwidth{
	1300: sx128x.FLRCBR1300BW1200, 1000: sx128x.FLRCBR1000BW1200,
	650: sx128x.FLRCBR650BW600, 520: sx128x.FLRCBR520BW600,
	325: sx128x.FLRCBR325BW300, 260: sx128x.FLRCBR260BW300,
}

var flrcCodingRates = map[string]sx128x.FLRCCodingRate{
	"1/2": sx128x.FLRCCR1_2, "3/4": sx128x.FLRCCR3_4, "1": sx128x.FLRCCR1_1,
}

func (f FLRCConfig) modem() (sx128x.Modem, error) {
	m := sx128x.DefaultFLRC()
	if f.BitrateKbps != 0 {
		br, ok := flrcBitrates[f.BitrateKbps]
		if !ok {
			return nil, fmt.Errorf("FLRC %d kb/s not supported", f.BitrateKbps)
		}
		m.Modulation.BitrateBandwidth = br
	}
	if f.CodingRate != "" {
		cr, ok := flrcCodingRates[f.CodingRate]
		if !ok {
			return nil, fmt.Errorf("FLRC coding rate %q", f.CodingRate)
		}
		m.Modulation.CodingRate = cr
	}
	sh, ok := shapings[strings.ToLower(f.Shaping)]
	if !ok {
		return nil, fmt.Errorf("shaping %q", f.Shaping)
	}
	m.Modulation.Shaping = sh

	if f.PreambleBits != 0 {
		m.Packet.PreambleBits = f.PreambleBits
	}
	sw, err := syncWord(f.SyncWord)
	if err != nil {
		return nil, err
	}
	m.SyncWord = sw
	m.Packet.FixedLength = f.FixedLength
	if f.PayloadLength != 0 {
		m.Packet.PayloadLength = f.PayloadLength
	}
	if f.CRCLength != nil {
		m.Packet.CRCLength = *f.CRCLength
	}
	return m, nil
}

var bleStates = map[string]sx128x.BLEConnectionState{
	"31": sx128x.BLEPayload31, "37": sx128x.BLEPayload37,
	"255": sx128x.BLEPayload255, "test": sx128x.BLETestMode,
}

func (b BLEConfig) modem() (sx128x.Modem, error) {
	m := sx128x.DefaultBLE()
	if b.ConnectionState != "" {
		cs, ok := bleStates[strings.ToLower(b.ConnectionState)]
		if !ok {
			return nil, fmt.Errorf("BLE connection state %q", b.ConnectionState)
		}
		m.Packet.ConnectionState = cs
	}
	if b.CRC != nil {
		m.Packet.CRC = *b.CRC
	}
	if b.Whitening != nil {
		m.Packet.Whitening = *b.Whitening
	}
	aa, err := syncWord(b.AccessAddress)
	if err != nil {
		return nil, err
	}
	if aa != nil {
		m.AccessAddress = aa
	}
	return m, nil
}
