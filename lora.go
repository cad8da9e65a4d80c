package sx128x

import (
	"time"
)

type LoRaSpreadingFactor byte
type LoRaBandwidth byte
type LoRaCodingRate byte

const (
	SF5  LoRaSpreadingFactor = 0x50
	SF6  LoRaSpreadingFactor = 0x60
	SF7  LoRaSpreadingFactor = 0x70
	SF8  LoRaSpreadingFactor = 0x80
	SF9  LoRaSpreadingFactor = 0x90
	SF10 LoRaSpreadingFactor = 0xa0
	SF11 LoRaSpreadingFactor = 0xb0
	SF12 LoRaSpreadingFactor = 0xc0
)

const (
	BW200  LoRaBandwidth = 0x34
	BW400  LoRaBandwidth = 0x26
	BW800  LoRaBandwidth = 0x18
	BW1600 LoRaBandwidth = 0x0a
)

const (
	CR4_5   LoRaCodingRate = 0x01
	CR4_6   LoRaCodingRate = 0x02
	CR4_7   LoRaCodingRate = 0x03
	CR4_8   LoRaCodingRate = 0x04
	CRLI4_5 LoRaCodingRate = 0x05
	CRLI4_6 LoRaCodingRate = 0x06
	CRLI4_7 LoRaCodingRate = 0x07
)

const (
	loraHeaderExplicit byte = 0x00
	loraHeaderImplicit byte = 0x80
	loraCrcOn          byte = 0x20
	loraCrcOff         byte = 0x00
	loraIQNormal       byte = 0x40
	loraIQInverted     byte = 0x00
)

// Value returns the spreading factor as a number between 5 and 12.
func (sf LoRaSpreadingFactor) Value() int {
	return int(sf >> 4)
}

func (sf LoRaSpreadingFactor) valid() bool {
	return sf&0x0f == 0 && sf >= SF5 && sf <= SF12
}

// Hz returns the exact occupied bandwidth.
func (bw LoRaBandwidth) Hz() uint32 {
	switch bw {
	case BW200:
		return 203125
	case BW400:
		return 406250
	case BW800:
		return 812500
	case BW1600:
		return 1625000
	}
	return 0
}

// LoRaBandwidthFromHz maps a nominal (200 kHz) or exact (203.125 kHz)
// bandwidth to its setting. Bandwidths the chip does not offer are rejected.
func LoRaBandwidthFromHz(hz uint32) (LoRaBandwidth, error) {
	switch hz {
	case 200000, 203125:
		return BW200, nil
	case 400000, 406250:
		return BW400, nil
	case 800000, 812500:
		return BW800, nil
	case 1600000, 1625000:
		return BW1600, nil
	}
	return 0, invalidConfig("LoRa bandwidth %d Hz not supported", hz)
}

func (cr LoRaCodingRate) valid() bool {
	return cr >= CR4_5 && cr <= CRLI4_7
}

// LoRaModulation are the LoRa (and Ranging) modulation parameters.
type LoRaModulation struct {
	SpreadingFactor LoRaSpreadingFactor
	Bandwidth       LoRaBandwidth
	CodingRate      LoRaCodingRate
}

// SymbolTime is the duration of one chirp.
func (m LoRaModulation) SymbolTime() time.Duration {
	hz := m.Bandwidth.Hz()
	if hz == 0 || !m.SpreadingFactor.valid() {
		return 0
	}
	return time.Duration(uint64(1<<m.SpreadingFactor.Value()) * uint64(time.Second) / uint64(hz))
}

func (m LoRaModulation) validate() error {
	if !m.SpreadingFactor.valid() {
		return invalidConfig("LoRa spreading factor 0x%02x", byte(m.SpreadingFactor))
	}
	if m.Bandwidth.Hz() == 0 {
		return invalidConfig("LoRa bandwidth 0x%02x", byte(m.Bandwidth))
	}
	if !m.CodingRate.valid() {
		return invalidConfig("LoRa coding rate 0x%02x", byte(m.CodingRate))
	}
	// No low data rate optimisation on this chip.
	if m.SymbolTime() > maxLoRaSymbolTimeNs {
		return invalidConfig("SF%d at %d Hz needs low data rate optimisation", m.SpreadingFactor.Value(), m.Bandwidth.Hz())
	}
	return nil
}

func (m LoRaModulation) Encode() ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	return []byte{byte(m.SpreadingFactor), byte(m.Bandwidth), byte(m.CodingRate)}, nil
}

func DecodeLoRaModulation(b []byte) (LoRaModulation, error) {
	if len(b) != 3 {
		return LoRaModulation{}, invalidConfig("LoRa modulation block is %d bytes", len(b))
	}
	m := LoRaModulation{
		SpreadingFactor: LoRaSpreadingFactor(b[0]),
		Bandwidth:       LoRaBandwidth(b[1]),
		CodingRate:      LoRaCodingRate(b[2]),
	}
	return m, m.validate()
}

// sfRegister is the value the chip needs in RegLoRaSFConfig after the
// modulation is set.
func (m LoRaModulation) sfRegister() byte {
	switch {
	case m.SpreadingFactor <= SF6:
		return 0x1e
	case m.SpreadingFactor <= SF8:
		return 0x37
	}
	return 0x32
}

// LoRaPacket are the LoRa (and Ranging) packet parameters.
type LoRaPacket struct {
	PreambleLength uint32 // symbols, mantissa (1-15) times a power of two
	ImplicitHeader bool
	PayloadLength  uint8
	CRC            bool
	InvertIQ       bool
}

func encodeLoRaPreamble(n uint32) (byte, error) {
	for exp := uint32(0); exp < 16; exp++ {
		if n&(1<<exp-1) != 0 {
			break
		}
		if mant := n >> exp; mant >= 1 && mant <= 15 {
			return byte(exp<<4 | mant), nil
		}
	}
	return 0, invalidConfig("LoRa preamble of %d symbols not representable", n)
}

func (p LoRaPacket) Encode() ([]byte, error) {
	pre, err := encodeLoRaPreamble(p.PreambleLength)
	if err != nil {
		return nil, err
	}
	b := []byte{pre, loraHeaderExplicit, p.PayloadLength, loraCrcOff, loraIQNormal, 0, 0}
	if p.ImplicitHeader {
		b[1] = loraHeaderImplicit
	}
	if p.CRC {
		b[3] = loraCrcOn
	}
	if p.InvertIQ {
		b[4] = loraIQInverted
	}
	return b, nil
}

func DecodeLoRaPacket(b []byte) (LoRaPacket, error) {
	var p LoRaPacket
	if len(b) != 7 {
		return p, invalidConfig("LoRa packet block is %d bytes", len(b))
	}
	mant, exp := uint32(b[0]&0x0f), uint32(b[0]>>4)
	if mant == 0 {
		return p, invalidConfig("LoRa preamble 0x%02x", b[0])
	}
	p.PreambleLength = mant << exp

	switch b[1] {
	case loraHeaderExplicit:
	case loraHeaderImplicit:
		p.ImplicitHeader = true
	default:
		return p, invalidConfig("LoRa header type 0x%02x", b[1])
	}

	p.PayloadLength = b[2]

	switch b[3] {
	case loraCrcOff:
	case loraCrcOn:
		p.CRC = true
	default:
		return p, invalidConfig("LoRa crc mode 0x%02x", b[3])
	}

	switch b[4] {
	case loraIQNormal:
	case loraIQInverted:
		p.InvertIQ = true
	default:
		return p, invalidConfig("LoRa iq mode 0x%02x", b[4])
	}
	return p, nil
}

// LoRa configures the LoRa modem.
type LoRa struct {
	Modulation LoRaModulation
	Packet     LoRaPacket
}

// DefaultLoRa is SF7, 406 kHz, CR 4/5 with a 12 symbol preamble, explicit
// header and CRC.
func DefaultLoRa() *LoRa {
	return &LoRa{
		Modulation: LoRaModulation{SpreadingFactor: SF7, Bandwidth: BW400, CodingRate: CR4_5},
		Packet:     LoRaPacket{PreambleLength: 12, PayloadLength: 255, CRC: true},
	}
}

func (l *LoRa) PacketType() PacketType              { return PacketTypeLoRa }
func (l *LoRa) EncodeModulation() ([]byte, error)   { return l.Modulation.Encode() }
func (l *LoRa) EncodePacketParams() ([]byte, error) { return l.Packet.Encode() }

func (l *LoRa) DecodePacketStatus(raw []byte) PacketInfo {
	return decodeLoRaStatus(PacketTypeLoRa, raw)
}

func (l *LoRa) validate() error { return nil }

func (l *LoRa) maxPayload() int {
	if l.Packet.ImplicitHeader {
		return int(l.Packet.PayloadLength)
	}
	return 255
}

func (l *LoRa) withPayloadLength(n uint8) Modem {
	c := *l
	c.Packet.PayloadLength = n
	return &c
}

func (l *LoRa) setup(d *Device) error {
	return setupLoRaModem(d, l.Modulation)
}

func (l *LoRa) rxLength(d *Device, reported byte) (int, error) {
	return loraRxLength(d, l.Packet.ImplicitHeader, reported)
}

func setupLoRaModem(d *Device, m LoRaModulation) error {
	if err := d.writeRegister(RegLoRaSFConfig, m.sfRegister()); err != nil {
		return err
	}
	fec, err := d.readRegisterByte(RegFreqErrorCorrection)
	if err != nil {
		return err
	}
	return d.writeRegister(RegFreqErrorCorrection, fec|0x01)
}

// loraRxLength returns the received length. In implicit header mode the
// buffer status does not carry it and the payload length register is used.
func loraRxLength(d *Device, implicit bool, reported byte) (int, error) {
	if !implicit {
		return int(reported), nil
	}
	n, err := d.readRegisterByte(RegPayloadLength)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
