package sx128x

import "encoding/binary"

// RangingResult is the round trip measurement of a ranging exchange.
type RangingResult struct {
	Raw      int32   // 24 bit two's complement
	Distance float64 // metres
}

func decodeRangingResult(b []byte, bw LoRaBandwidth) *RangingResult {
	raw := int32(uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]))
	if raw&0x800000 != 0 {
		raw -= 1 << 24
	}
	mhz := float64(bw.Hz()) / 1e6
	if mhz == 0 {
		return &RangingResult{Raw: raw}
	}
	return &RangingResult{Raw: raw, Distance: float64(raw) * 150 / (4096 * mhz)}
}

// Ranging configures the ranging engine. It uses the LoRa encodings with
// spreading factors up to SF10 and bandwidths from 406 kHz. Address is sent as
// the request address when transmitting (master) and matched as the device
// address when receiving (slave).
type Ranging struct {
	Modulation LoRaModulation
	Packet     LoRaPacket
	Address    uint32
}

func DefaultRanging() *Ranging {
	return &Ranging{
		Modulation: LoRaModulation{SpreadingFactor: SF8, Bandwidth: BW1600, CodingRate: CR4_5},
		Packet:     LoRaPacket{PreambleLength: 12, PayloadLength: 0, CRC: true},
		Address:    0x32100000,
	}
}

func (r *Ranging) PacketType() PacketType { return PacketTypeRanging }

func (r *Ranging) EncodeModulation() ([]byte, error) {
	if err := r.validateModulation(); err != nil {
		return nil, err
	}
	return r.Modulation.Encode()
}

func (r *Ranging) EncodePacketParams() ([]byte, error) { return r.Packet.Encode() }

func (r *Ranging) validateModulation() error {
	if r.Modulation.SpreadingFactor > SF10 {
		return invalidConfig("ranging supports SF5 to SF10, got SF%d", r.Modulation.SpreadingFactor.Value())
	}
	if r.Modulation.Bandwidth == BW200 {
		return invalidConfig("ranging needs at least 406 kHz bandwidth")
	}
	return nil
}

// DecodePacketStatus decodes the LoRa status bytes. When the three bytes of
// the ranging result register follow the five status bytes the measurement is
// decoded as well.
func (r *Ranging) DecodePacketStatus(raw []byte) PacketInfo {
	info := decodeLoRaStatus(PacketTypeRanging, raw)
	if len(raw) >= 8 {
		info.Ranging = decodeRangingResult(raw[5:8], r.Modulation.Bandwidth)
	}
	return info
}

func (r *Ranging) validate() error { return r.validateModulation() }

func (r *Ranging) maxPayload() int {
	if r.Packet.ImplicitHeader {
		return int(r.Packet.PayloadLength)
	}
	return 255
}

func (r *Ranging) withPayloadLength(n uint8) Modem {
	c := *r
	c.Packet.PayloadLength = n
	return &c
}

func (r *Ranging) setup(d *Device) error {
	return setupLoRaModem(d, r.Modulation)
}

func (r *Ranging) rxLength(d *Device, reported byte) (int, error) {
	return loraRxLength(d, r.Packet.ImplicitHeader, reported)
}

// setRole selects master or slave and writes the matching address register.
func (r *Ranging) setRole(d *Device, master bool) error {
	role, reg := rangingRoleSlave, RegRangingDeviceAddress
	if master {
		role, reg = rangingRoleMaster, RegRangingRequestAddress
	}
	if _, err := d.execute(OpSetRangingRole, role); err != nil {
		return err
	}
	var addr [4]byte
	binary.BigEndian.PutUint32(addr[:], r.Address)
	return d.writeRegister(reg, addr[:]...)
}
