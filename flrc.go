package sx128x

type FLRCBitrateBandwidth byte
type FLRCCodingRate byte

const (
	FLRCBR1300BW1200 FLRCBitrateBandwidth = 0x45
	FLRCBR1000BW1200 FLRCBitrateBandwidth = 0x69
	FLRCBR650BW600   FLRCBitrateBandwidth = 0x86
	FLRCBR520BW600   FLRCBitrateBandwidth = 0xaa
	FLRCBR325BW300   FLRCBitrateBandwidth = 0xc7
	FLRCBR260BW300   FLRCBitrateBandwidth = 0xeb
)

const (
	FLRCCR1_2 FLRCCodingRate = 0x00
	FLRCCR3_4 FLRCCodingRate = 0x02
	FLRCCR1_1 FLRCCodingRate = 0x04
)

const (
	flrcNoSyncWord byte = 0x00
	flrcSyncWord32 byte = 0x04
)

func (b FLRCBitrateBandwidth) valid() bool {
	switch b {
	case FLRCBR1300BW1200, FLRCBR1000BW1200, FLRCBR650BW600, FLRCBR520BW600, FLRCBR325BW300, FLRCBR260BW300:
		return true
	}
	return false
}

type FLRCModulation struct {
	BitrateBandwidth FLRCBitrateBandwidth
	CodingRate       FLRCCodingRate
	Shaping          ModulationShaping
}

func (m FLRCModulation) validate() error {
	if !m.BitrateBandwidth.valid() {
		return invalidConfig("FLRC bitrate/bandwidth 0x%02x", byte(m.BitrateBandwidth))
	}
	switch m.CodingRate {
	case FLRCCR1_2, FLRCCR3_4, FLRCCR1_1:
	default:
		return invalidConfig("FLRC coding rate 0x%02x", byte(m.CodingRate))
	}
	if !m.Shaping.valid() {
		return invalidConfig("modulation shaping 0x%02x", byte(m.Shaping))
	}
	return nil
}

func (m FLRCModulation) Encode() ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	return []byte{byte(m.BitrateBandwidth), byte(m.CodingRate), byte(m.Shaping)}, nil
}

func DecodeFLRCModulation(b []byte) (FLRCModulation, error) {
	if len(b) != 3 {
		return FLRCModulation{}, invalidConfig("FLRC modulation block is %d bytes", len(b))
	}
	m := FLRCModulation{
		BitrateBandwidth: FLRCBitrateBandwidth(b[0]),
		CodingRate:       FLRCCodingRate(b[1]),
		Shaping:          ModulationShaping(b[2]),
	}
	return m, m.validate()
}

// FLRCPacket are the FLRC packet parameters. Whitening is not available in
// FLRC mode and is always sent disabled.
type FLRCPacket struct {
	PreambleBits  uint8 // 8 to 32, multiple of 4
	SyncWord      bool  // 32 bit sync word
	SyncWordMatch SyncWordMatch
	FixedLength   bool
	PayloadLength uint8 // 6 to 127
	CRCLength     uint8 // bytes: 0, 2, 3 or 4
}

func (p FLRCPacket) Encode() ([]byte, error) {
	pre, err := encodeFSKPreamble(p.PreambleBits, 8)
	if err != nil {
		return nil, err
	}
	if !p.SyncWordMatch.valid() {
		return nil, invalidConfig("sync word match 0x%02x", byte(p.SyncWordMatch))
	}
	if p.PayloadLength < 6 || p.PayloadLength > 127 {
		return nil, invalidConfig("FLRC payload length %d", p.PayloadLength)
	}
	var crc byte
	switch p.CRCLength {
	case 0:
	case 2, 3, 4:
		crc = (p.CRCLength - 1) << 4
	default:
		return nil, invalidConfig("FLRC crc length %d", p.CRCLength)
	}
	sync := flrcNoSyncWord
	if p.SyncWord {
		sync = flrcSyncWord32
	}
	return []byte{
		pre,
		sync,
		byte(p.SyncWordMatch),
		encodeHeader(p.FixedLength),
		p.PayloadLength,
		crc,
		whiteningOff,
	}, nil
}

func DecodeFLRCPacket(b []byte) (FLRCPacket, error) {
	var p FLRCPacket
	var err error
	if len(b) != 7 {
		return p, invalidConfig("FLRC packet block is %d bytes", len(b))
	}
	if p.PreambleBits, err = decodeFSKPreamble(b[0]); err != nil {
		return p, err
	}
	if p.PreambleBits < 8 {
		return p, invalidConfig("FLRC preamble of %d bits", p.PreambleBits)
	}
	switch b[1] {
	case flrcNoSyncWord:
	case flrcSyncWord32:
		p.SyncWord = true
	default:
		return p, invalidConfig("FLRC sync word length 0x%02x", b[1])
	}
	p.SyncWordMatch = SyncWordMatch(b[2])
	if !p.SyncWordMatch.valid() {
		return p, invalidConfig("sync word match 0x%02x", b[2])
	}
	if p.FixedLength, err = decodeHeader(b[3]); err != nil {
		return p, err
	}
	p.PayloadLength = b[4]
	switch b[5] {
	case 0x00:
	case 0x10, 0x20, 0x30:
		p.CRCLength = b[5]>>4 + 1
	default:
		return p, invalidConfig("FLRC crc 0x%02x", b[5])
	}
	if b[6] != whiteningOff {
		return p, invalidConfig("FLRC whitening 0x%02x", b[6])
	}
	return p, nil
}

// FLRC configures the FLRC modem. SyncWord, when set, is written to sync word
// slot 1 and must be 4 bytes.
type FLRC struct {
	Modulation FLRCModulation
	Packet     FLRCPacket
	SyncWord   []byte
}

func DefaultFLRC() *FLRC {
	return &FLRC{
		Modulation: FLRCModulation{BitrateBandwidth: FLRCBR1300BW1200, CodingRate: FLRCCR3_4, Shaping: ShapingBT05},
		Packet: FLRCPacket{
			PreambleBits:  32,
			SyncWord:      true,
			SyncWordMatch: MatchSync1,
			PayloadLength: 127,
			CRCLength:     2,
		},
	}
}

func (f *FLRC) PacketType() PacketType              { return PacketTypeFLRC }
func (f *FLRC) EncodeModulation() ([]byte, error)   { return f.Modulation.Encode() }
func (f *FLRC) EncodePacketParams() ([]byte, error) { return f.Packet.Encode() }

func (f *FLRC) DecodePacketStatus(raw []byte) PacketInfo {
	return decodeFSKStatus(PacketTypeFLRC, raw)
}

func (f *FLRC) validate() error {
	if f.SyncWord != nil && len(f.SyncWord) != 4 {
		return invalidConfig("FLRC sync word is 4 bytes, got %d", len(f.SyncWord))
	}
	return nil
}

func (f *FLRC) maxPayload() int {
	if f.Packet.FixedLength {
		return int(f.Packet.PayloadLength)
	}
	return 127
}

func (f *FLRC) withPayloadLength(n uint8) Modem {
	c := *f
	c.Packet.PayloadLength = n
	return &c
}

func (f *FLRC) setup(d *Device) error {
	if f.SyncWord == nil {
		return nil
	}
	return d.writeSyncWord(PacketTypeFLRC, 1, f.SyncWord)
}

func (f *FLRC) rxLength(d *Device, reported byte) (int, error) {
	return int(reported), nil
}
