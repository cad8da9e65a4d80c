package sx128x

// Modem is one packet layer personality of the chip. Each variant validates
// its settings and produces the SetModulationParams and SetPacketParams
// blocks, and decodes the GetPacketStatus reply.
type Modem interface {
	PacketType() PacketType
	EncodeModulation() ([]byte, error)
	EncodePacketParams() ([]byte, error)
	DecodePacketStatus(raw []byte) PacketInfo

	// validate checks settings beyond the two parameter blocks.
	validate() error
	// maxPayload is the largest payload the current packet settings carry.
	maxPayload() int
	// withPayloadLength returns a copy with the packet length field set.
	withPayloadLength(n uint8) Modem
	// setup writes the registers that complement the parameter blocks.
	setup(d *Device) error
	// rxLength adjusts the length reported by GetRxBufferStatus.
	rxLength(d *Device, reported byte) (int, error)
}

// PacketErrors is the error byte of the GFSK, FLRC and BLE packet status.
type PacketErrors byte

const (
	PacketCtrlBusy       PacketErrors = 0x01
	PacketReceived       PacketErrors = 0x02
	PacketHeaderReceived PacketErrors = 0x04
	PacketAbortError     PacketErrors = 0x08
	PacketCrcError       PacketErrors = 0x10
	PacketLengthError    PacketErrors = 0x20
	PacketSyncError      PacketErrors = 0x40
)

// PacketInfo describes a received packet.
type PacketInfo struct {
	PacketType  PacketType
	Length      int
	RSSI        float64 // dBm
	SNR         float64 // dB, LoRa and Ranging only
	HasSNR      bool
	CRCOK       bool
	Errors      PacketErrors
	TxRxStatus  byte
	SyncAddress uint8
	Ranging     *RangingResult
}

// Packet is a received payload with its metadata.
type Packet struct {
	Payload []byte
	Info    PacketInfo
}

func rssiFromRaw(b byte) float64 {
	return -float64(b) / 2
}

func decodeLoRaStatus(pt PacketType, raw []byte) PacketInfo {
	info := PacketInfo{PacketType: pt, CRCOK: true}
	if len(raw) < 2 {
		return info
	}
	info.RSSI = rssiFromRaw(raw[0])
	info.SNR = float64(int8(raw[1])) / 4
	info.HasSNR = true
	return info
}

func decodeFSKStatus(pt PacketType, raw []byte) PacketInfo {
	info := PacketInfo{PacketType: pt}
	if len(raw) < 5 {
		return info
	}
	info.RSSI = rssiFromRaw(raw[1])
	info.Errors = PacketErrors(raw[2])
	info.TxRxStatus = raw[3]
	info.SyncAddress = raw[4] & 0x07
	info.CRCOK = info.Errors&PacketCrcError == 0
	return info
}

// writeSyncWord writes value to sync word slot index (1 to 3). GFSK slots are
// five bytes, FLRC and BLE four bytes starting one byte into the slot.
func (d *Device) writeSyncWord(pt PacketType, index int, value []byte) error {
	var base Register
	switch index {
	case 1:
		base = RegSyncWordBase1
	case 2:
		base = RegSyncWordBase2
	case 3:
		base = RegSyncWordBase3
	default:
		return invalidConfig("sync word index %d", index)
	}

	want := 5
	switch pt {
	case PacketTypeGFSK:
	case PacketTypeFLRC:
		base++
		want = 4
	case PacketTypeBLE:
		if index != 1 {
			return invalidConfig("BLE access address only uses sync word 1")
		}
		base++
		want = 4
	default:
		return invalidConfig("%s has no sync word", pt)
	}

	if len(value) != want {
		return invalidConfig("%s sync word is %d bytes, got %d", pt, want, len(value))
	}

	if err := d.writeRegister(base, value...); err != nil {
		return err
	}

	// FLRC tolerates 4 bit errors by default, too loose for 32 bit words.
	if pt == PacketTypeFLRC {
		tol, err := d.readRegisterByte(RegSyncWordTolerance)
		if err != nil {
			return err
		}
		return d.writeRegister(RegSyncWordTolerance, tol&0xf0)
	}
	return nil
}
