package sx128x

type BLEConnectionState byte
type BLETestPayload byte

// Maximum PDU payload the link layer accepts in each connection state.
const (
	BLEPayload31  BLEConnectionState = 0x00
	BLEPayload37  BLEConnectionState = 0x20
	BLETestMode   BLEConnectionState = 0x40
	BLEPayload255 BLEConnectionState = 0x80
)

const (
	BLETestPRBS9      BLETestPayload = 0x00
	BLETestEyeLong10  BLETestPayload = 0x04
	BLETestEyeShort10 BLETestPayload = 0x08
	BLETestPRBS15     BLETestPayload = 0x0c
	BLETestAllOnes    BLETestPayload = 0x10
	BLETestAllZeros   BLETestPayload = 0x14
	BLETestEyeLong01  BLETestPayload = 0x18
	BLETestEyeShort01 BLETestPayload = 0x1c
)

const (
	bleCrcOff byte = 0x00
	bleCrc3   byte = 0x10

	// PDU header preceding the payload in the buffer.
	bleHeaderLength = 2
)

// BLEAdvertisingAddress is the access address of advertising channel packets.
var BLEAdvertisingAddress = []byte{0x8e, 0x89, 0xbe, 0xd6}

func (s BLEConnectionState) maxPayload() int {
	switch s {
	case BLEPayload31:
		return 31
	case BLEPayload37, BLETestMode:
		return 37
	case BLEPayload255:
		return 255
	}
	return 0
}

// BLEModulation is GFSK restricted to the 1 Mb/s BLE physical layer.
type BLEModulation struct {
	BitrateBandwidth BitrateBandwidth
	ModulationIndex  ModulationIndex
	Shaping          ModulationShaping
}

func (m BLEModulation) validate() error {
	if m.BitrateBandwidth != BR1000BW1200 && m.BitrateBandwidth != BR1000BW2400 {
		return invalidConfig("BLE runs at 1 Mb/s, got bitrate/bandwidth 0x%02x", byte(m.BitrateBandwidth))
	}
	if m.ModulationIndex != MI050 {
		return invalidConfig("BLE modulation index is 0.5, got 0x%02x", byte(m.ModulationIndex))
	}
	if !m.Shaping.valid() {
		return invalidConfig("modulation shaping 0x%02x", byte(m.Shaping))
	}
	return nil
}

func (m BLEModulation) Encode() ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	return []byte{byte(m.BitrateBandwidth), byte(m.ModulationIndex), byte(m.Shaping)}, nil
}

func DecodeBLEModulation(b []byte) (BLEModulation, error) {
	if len(b) != 3 {
		return BLEModulation{}, invalidConfig("BLE modulation block is %d bytes", len(b))
	}
	m := BLEModulation{
		BitrateBandwidth: BitrateBandwidth(b[0]),
		ModulationIndex:  ModulationIndex(b[1]),
		Shaping:          ModulationShaping(b[2]),
	}
	return m, m.validate()
}

type BLEPacket struct {
	ConnectionState BLEConnectionState
	CRC             bool // 3 byte CRC
	TestPayload     BLETestPayload
	Whitening       bool
}

func (p BLEPacket) Encode() ([]byte, error) {
	if p.ConnectionState.maxPayload() == 0 {
		return nil, invalidConfig("BLE connection state 0x%02x", byte(p.ConnectionState))
	}
	if p.TestPayload&0x03 != 0 || p.TestPayload > BLETestEyeShort01 {
		return nil, invalidConfig("BLE test payload 0x%02x", byte(p.TestPayload))
	}
	crc := bleCrcOff
	if p.CRC {
		crc = bleCrc3
	}
	return []byte{
		byte(p.ConnectionState),
		crc,
		byte(p.TestPayload),
		encodeWhitening(p.Whitening),
		0, 0, 0,
	}, nil
}

func DecodeBLEPacket(b []byte) (BLEPacket, error) {
	var p BLEPacket
	var err error
	if len(b) != 7 {
		return p, invalidConfig("BLE packet block is %d bytes", len(b))
	}
	p.ConnectionState = BLEConnectionState(b[0])
	if p.ConnectionState.maxPayload() == 0 {
		return p, invalidConfig("BLE connection state 0x%02x", b[0])
	}
	switch b[1] {
	case bleCrcOff:
	case bleCrc3:
		p.CRC = true
	default:
		return p, invalidConfig("BLE crc 0x%02x", b[1])
	}
	p.TestPayload = BLETestPayload(b[2])
	if p.TestPayload&0x03 != 0 || p.TestPayload > BLETestEyeShort01 {
		return p, invalidConfig("BLE test payload 0x%02x", b[2])
	}
	if p.Whitening, err = decodeWhitening(b[3]); err != nil {
		return p, err
	}
	return p, nil
}

// BLE configures the BLE modem. AccessAddress, when set, must be 4 bytes.
// Payloads include the 2 byte PDU header.
type BLE struct {
	Modulation    BLEModulation
	Packet        BLEPacket
	AccessAddress []byte
}

func DefaultBLE() *BLE {
	return &BLE{
		Modulation:    BLEModulation{BitrateBandwidth: BR1000BW1200, ModulationIndex: MI050, Shaping: ShapingBT05},
		Packet:        BLEPacket{ConnectionState: BLEPayload37, CRC: true, Whitening: true},
		AccessAddress: BLEAdvertisingAddress,
	}
}

func (b *BLE) PacketType() PacketType              { return PacketTypeBLE }
func (b *BLE) EncodeModulation() ([]byte, error)   { return b.Modulation.Encode() }
func (b *BLE) EncodePacketParams() ([]byte, error) { return b.Packet.Encode() }

func (b *BLE) DecodePacketStatus(raw []byte) PacketInfo {
	return decodeFSKStatus(PacketTypeBLE, raw)
}

func (b *BLE) validate() error {
	if b.AccessAddress != nil && len(b.AccessAddress) != 4 {
		return invalidConfig("BLE access address is 4 bytes, got %d", len(b.AccessAddress))
	}
	return nil
}

func (b *BLE) maxPayload() int {
	return b.Packet.ConnectionState.maxPayload() + bleHeaderLength
}

// The PDU header carries the length, there is no length field to update.
func (b *BLE) withPayloadLength(n uint8) Modem {
	return b
}

func (b *BLE) setup(d *Device) error {
	if b.AccessAddress == nil {
		return nil
	}
	return d.writeSyncWord(PacketTypeBLE, 1, b.AccessAddress)
}

func (b *BLE) rxLength(d *Device, reported byte) (int, error) {
	return int(reported) + bleHeaderLength, nil
}
