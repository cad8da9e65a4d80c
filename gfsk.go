package sx128x

type BitrateBandwidth byte
type ModulationIndex byte
type ModulationShaping byte
type SyncWordMatch byte

// GFSK and BLE bitrate / bandwidth pairs.
const (
	BR2000BW2400 BitrateBandwidth = 0x04
	BR1600BW2400 BitrateBandwidth = 0x28
	BR1000BW2400 BitrateBandwidth = 0x4c
	BR1000BW1200 BitrateBandwidth = 0x45
	BR800BW2400  BitrateBandwidth = 0x70
	BR800BW1200  BitrateBandwidth = 0x69
	BR500BW1200  BitrateBandwidth = 0x8d
	BR500BW600   BitrateBandwidth = 0x86
	BR400BW1200  BitrateBandwidth = 0xb1
	BR400BW600   BitrateBandwidth = 0xaa
	BR250BW600   BitrateBandwidth = 0xce
	BR250BW300   BitrateBandwidth = 0xc7
	BR125BW300   BitrateBandwidth = 0xef
)

var gfskBitrates = map[BitrateBandwidth]bool{
	BR2000BW2400: true, BR1600BW2400: true, BR1000BW2400: true, BR1000BW1200: true,
	BR800BW2400: true, BR800BW1200: true, BR500BW1200: true, BR500BW600: true,
	BR400BW1200: true, BR400BW600: true, BR250BW600: true, BR250BW300: true,
	BR125BW300: true,
}

// Modulation index 0.35 to 4.0 in steps of 0.25 (MI050 onwards).
const (
	MI035 ModulationIndex = iota
	MI050
	MI075
	MI100
	MI125
	MI150
	MI175
	MI200
	MI225
	MI250
	MI275
	MI300
	MI325
	MI350
	MI375
	MI400
)

const (
	ShapingOff  ModulationShaping = 0x00
	ShapingBT10 ModulationShaping = 0x10
	ShapingBT05 ModulationShaping = 0x20
)

// Sync word slots a receiver accepts. Combine with |.
const (
	MatchNone  SyncWordMatch = 0x00
	MatchSync1 SyncWordMatch = 0x10
	MatchSync2 SyncWordMatch = 0x20
	MatchSync3 SyncWordMatch = 0x40
)

const (
	fskFixedLength    byte = 0x00
	fskVariableLength byte = 0x20
	whiteningOn       byte = 0x00
	whiteningOff      byte = 0x08
)

func (s ModulationShaping) valid() bool {
	return s == ShapingOff || s == ShapingBT10 || s == ShapingBT05
}

func (m SyncWordMatch) valid() bool {
	return m&^(MatchSync1|MatchSync2|MatchSync3) == 0
}

func encodeFSKPreamble(bits uint8, min uint8) (byte, error) {
	if bits%4 != 0 || bits < min || bits > 32 {
		return 0, invalidConfig("preamble of %d bits", bits)
	}
	return (bits/4 - 1) << 4, nil
}

func decodeFSKPreamble(b byte) (uint8, error) {
	if b&0x8f != 0 {
		return 0, invalidConfig("preamble 0x%02x", b)
	}
	return (b>>4 + 1) * 4, nil
}

func encodeHeader(fixed bool) byte {
	if fixed {
		return fskFixedLength
	}
	return fskVariableLength
}

func decodeHeader(b byte) (bool, error) {
	switch b {
	case fskFixedLength:
		return true, nil
	case fskVariableLength:
		return false, nil
	}
	return false, invalidConfig("header type 0x%02x", b)
}

func encodeWhitening(on bool) byte {
	if on {
		return whiteningOn
	}
	return whiteningOff
}

func decodeWhitening(b byte) (bool, error) {
	switch b {
	case whiteningOn:
		return true, nil
	case whiteningOff:
		return false, nil
	}
	return false, invalidConfig("whitening 0x%02x", b)
}

// GFSKModulation are the GFSK modulation parameters.
type GFSKModulation struct {
	BitrateBandwidth BitrateBandwidth
	ModulationIndex  ModulationIndex
	Shaping          ModulationShaping
}

func (m GFSKModulation) validate() error {
	if !gfskBitrates[m.BitrateBandwidth] {
		return invalidConfig("GFSK bitrate/bandwidth 0x%02x", byte(m.BitrateBandwidth))
	}
	if m.ModulationIndex > MI400 {
		return invalidConfig("modulation index 0x%02x", byte(m.ModulationIndex))
	}
	if !m.Shaping.valid() {
		return invalidConfig("modulation shaping 0x%02x", byte(m.Shaping))
	}
	return nil
}

func (m GFSKModulation) Encode() ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	return []byte{byte(m.BitrateBandwidth), byte(m.ModulationIndex), byte(m.Shaping)}, nil
}

func DecodeGFSKModulation(b []byte) (GFSKModulation, error) {
	if len(b) != 3 {
		return GFSKModulation{}, invalidConfig("GFSK modulation block is %d bytes", len(b))
	}
	m := GFSKModulation{
		BitrateBandwidth: BitrateBandwidth(b[0]),
		ModulationIndex:  ModulationIndex(b[1]),
		Shaping:          ModulationShaping(b[2]),
	}
	return m, m.validate()
}

// GFSKPacket are the GFSK packet parameters.
type GFSKPacket struct {
	PreambleBits   uint8 // 4 to 32, multiple of 4
	SyncWordLength uint8 // bytes, 1 to 5
	SyncWordMatch  SyncWordMatch
	FixedLength    bool
	PayloadLength  uint8
	CRCLength      uint8 // bytes, 0 to 2
	Whitening      bool
}

func (p GFSKPacket) Encode() ([]byte, error) {
	pre, err := encodeFSKPreamble(p.PreambleBits, 4)
	if err != nil {
		return nil, err
	}
	if p.SyncWordLength < 1 || p.SyncWordLength > 5 {
		return nil, invalidConfig("GFSK sync word length %d", p.SyncWordLength)
	}
	if !p.SyncWordMatch.valid() {
		return nil, invalidConfig("sync word match 0x%02x", byte(p.SyncWordMatch))
	}
	if p.CRCLength > 2 {
		return nil, invalidConfig("GFSK crc length %d", p.CRCLength)
	}
	return []byte{
		pre,
		(p.SyncWordLength - 1) << 1,
		byte(p.SyncWordMatch),
		encodeHeader(p.FixedLength),
		p.PayloadLength,
		p.CRCLength << 4,
		encodeWhitening(p.Whitening),
	}, nil
}

func DecodeGFSKPacket(b []byte) (GFSKPacket, error) {
	var p GFSKPacket
	var err error
	if len(b) != 7 {
		return p, invalidConfig("GFSK packet block is %d bytes", len(b))
	}
	if p.PreambleBits, err = decodeFSKPreamble(b[0]); err != nil {
		return p, err
	}
	if b[1]&0x01 != 0 || b[1] > 0x08 {
		return p, invalidConfig("GFSK sync word length 0x%02x", b[1])
	}
	p.SyncWordLength = b[1]>>1 + 1
	p.SyncWordMatch = SyncWordMatch(b[2])
	if !p.SyncWordMatch.valid() {
		return p, invalidConfig("sync word match 0x%02x", b[2])
	}
	if p.FixedLength, err = decodeHeader(b[3]); err != nil {
		return p, err
	}
	p.PayloadLength = b[4]
	if b[5]&0x0f != 0 || b[5] > 0x20 {
		return p, invalidConfig("GFSK crc 0x%02x", b[5])
	}
	p.CRCLength = b[5] >> 4
	if p.Whitening, err = decodeWhitening(b[6]); err != nil {
		return p, err
	}
	return p, nil
}

// GFSK configures the GFSK modem. SyncWord, when set, is written to sync word
// slot 1 and must be 5 bytes.
type GFSK struct {
	Modulation GFSKModulation
	Packet     GFSKPacket
	SyncWord   []byte
}

func DefaultGFSK() *GFSK {
	return &GFSK{
		Modulation: GFSKModulation{BitrateBandwidth: BR1000BW1200, ModulationIndex: MI100, Shaping: ShapingBT05},
		Packet: GFSKPacket{
			PreambleBits:   32,
			SyncWordLength: 5,
			SyncWordMatch:  MatchSync1,
			PayloadLength:  255,
			CRCLength:      2,
			Whitening:      true,
		},
	}
}

func (g *GFSK) PacketType() PacketType              { return PacketTypeGFSK }
func (g *GFSK) EncodeModulation() ([]byte, error)   { return g.Modulation.Encode() }
func (g *GFSK) EncodePacketParams() ([]byte, error) { return g.Packet.Encode() }

func (g *GFSK) DecodePacketStatus(raw []byte) PacketInfo {
	return decodeFSKStatus(PacketTypeGFSK, raw)
}

func (g *GFSK) validate() error {
	if g.SyncWord != nil && len(g.SyncWord) != 5 {
		return invalidConfig("GFSK sync word is 5 bytes, got %d", len(g.SyncWord))
	}
	return nil
}

func (g *GFSK) maxPayload() int {
	if g.Packet.FixedLength {
		return int(g.Packet.PayloadLength)
	}
	return 255
}

func (g *GFSK) withPayloadLength(n uint8) Modem {
	c := *g
	c.Packet.PayloadLength = n
	return &c
}

func (g *GFSK) setup(d *Device) error {
	if g.SyncWord == nil {
		return nil
	}
	return d.writeSyncWord(PacketTypeGFSK, 1, g.SyncWord)
}

func (g *GFSK) rxLength(d *Device, reported byte) (int, error) {
	return int(reported), nil
}
