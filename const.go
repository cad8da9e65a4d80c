package sx128x

import (
	"fmt"
	"strings"
)

type Opcode byte
type Register uint16
type PacketType byte
type RampTime byte
type RegulatorMode byte
type CalibrationParams byte
type SleepConfig byte
type CADSymbols byte

const (
	OpGetStatus               Opcode = 0xc0
	OpWriteRegister           Opcode = 0x18
	OpReadRegister            Opcode = 0x19
	OpWriteBuffer             Opcode = 0x1a
	OpReadBuffer              Opcode = 0x1b
	OpSetSleep                Opcode = 0x84
	OpSetStandby              Opcode = 0x80
	OpSetFs                   Opcode = 0xc1
	OpSetTx                   Opcode = 0x83
	OpSetRx                   Opcode = 0x82
	OpSetRxDutyCycle          Opcode = 0x94
	OpSetCad                  Opcode = 0xc5
	OpSetTxContinuousWave     Opcode = 0xd1
	OpSetTxContinuousPreamble Opcode = 0xd2
	OpSetPacketType           Opcode = 0x8a
	OpGetPacketType           Opcode = 0x03
	OpSetRfFrequency          Opcode = 0x86
	OpSetTxParams             Opcode = 0x8e
	OpSetCadParams            Opcode = 0x88
	OpSetBufferBaseAddress    Opcode = 0x8f
	OpSetModulationParams     Opcode = 0x8b
	OpSetPacketParams         Opcode = 0x8c
	OpGetRxBufferStatus       Opcode = 0x17
	OpGetPacketStatus         Opcode = 0x1d
	OpGetRssiInst             Opcode = 0x1f
	OpSetDioIrqParams         Opcode = 0x8d
	OpGetIrqStatus            Opcode = 0x15
	OpClrIrqStatus            Opcode = 0x97
	OpCalibrate               Opcode = 0x89
	OpSetRegulatorMode        Opcode = 0x96
	OpSetSaveContext          Opcode = 0xd5
	OpSetAutoFs               Opcode = 0x9e
	OpSetAutoTx               Opcode = 0x98
	OpSetLongPreamble         Opcode = 0x9b
	OpSetRangingRole          Opcode = 0xa3
)

var opcodeNames = map[Opcode]string{
	OpGetStatus:               "GetStatus",
	OpWriteRegister:           "WriteRegister",
	OpReadRegister:            "ReadRegister",
	OpWriteBuffer:             "WriteBuffer",
	OpReadBuffer:              "ReadBuffer",
	OpSetSleep:                "SetSleep",
	OpSetStandby:              "SetStandby",
	OpSetFs:                   "SetFs",
	OpSetTx:                   "SetTx",
	OpSetRx:                   "SetRx",
	OpSetRxDutyCycle:          "SetRxDutyCycle",
	OpSetCad:                  "SetCad",
	OpSetTxContinuousWave:     "SetTxContinuousWave",
	OpSetTxContinuousPreamble: "SetTxContinuousPreamble",
	OpSetPacketType:           "SetPacketType",
	OpGetPacketType:           "GetPacketType",
	OpSetRfFrequency:          "SetRfFrequency",
	OpSetTxParams:             "SetTxParams",
	OpSetCadParams:            "SetCadParams",
	OpSetBufferBaseAddress:    "SetBufferBaseAddress",
	OpSetModulationParams:     "SetModulationParams",
	OpSetPacketParams:         "SetPacketParams",
	OpGetRxBufferStatus:       "GetRxBufferStatus",
	OpGetPacketStatus:         "GetPacketStatus",
	OpGetRssiInst:             "GetRssiInst",
	OpSetDioIrqParams:         "SetDioIrqParams",
	OpGetIrqStatus:            "GetIrqStatus",
	OpClrIrqStatus:            "ClrIrqStatus",
	OpCalibrate:               "Calibrate",
	OpSetRegulatorMode:        "SetRegulatorMode",
	OpSetSaveContext:          "SetSaveContext",
	OpSetAutoFs:               "SetAutoFs",
	OpSetAutoTx:               "SetAutoTx",
	OpSetLongPreamble:         "SetLongPreamble",
	OpSetRangingRole:          "SetRangingRole",
}

func (o Opcode) String() string {
	if n, ok := opcodeNames[o]; ok {
		return n
	}
	return fmt.Sprintf("Opcode(0x%02x)", byte(o))
}

const (
	RegFirmwareVersion       Register = 0x0153
	RegPayloadLength         Register = 0x0901
	RegRangingRequestAddress Register = 0x0912
	RegRangingDeviceAddress  Register = 0x0916
	RegLoRaSFConfig          Register = 0x0925
	RegFreqErrorCorrection   Register = 0x093c
	RegRangingResult         Register = 0x0961
	RegSyncWordTolerance     Register = 0x09cd
	RegSyncWordBase1         Register = 0x09ce
	RegSyncWordBase2         Register = 0x09d3
	RegSyncWordBase3         Register = 0x09d8
)

const (
	PacketTypeGFSK    PacketType = 0x00
	PacketTypeLoRa    PacketType = 0x01
	PacketTypeRanging PacketType = 0x02
	PacketTypeFLRC    PacketType = 0x03
	PacketTypeBLE     PacketType = 0x04
)

func (p PacketType) String() string {
	switch p {
	case PacketTypeGFSK:
		return "GFSK"
	case PacketTypeLoRa:
		return "LoRa"
	case PacketTypeRanging:
		return "Ranging"
	case PacketTypeFLRC:
		return "FLRC"
	case PacketTypeBLE:
		return "BLE"
	}
	return fmt.Sprintf("PacketType(0x%02x)", byte(p))
}

const (
	Ramp02Us RampTime = 0x00
	Ramp04Us RampTime = 0x20
	Ramp06Us RampTime = 0x40
	Ramp08Us RampTime = 0x60
	Ramp10Us RampTime = 0x80
	Ramp12Us RampTime = 0xa0
	Ramp16Us RampTime = 0xc0
	Ramp20Us RampTime = 0xe0
)

const (
	RegulatorLDO  RegulatorMode = 0x00
	RegulatorDCDC RegulatorMode = 0x01
)

const (
	CalibrateRC64k    CalibrationParams = 0x01
	CalibrateRC13M    CalibrationParams = 0x02
	CalibratePLL      CalibrationParams = 0x04
	CalibrateADCPulse CalibrationParams = 0x08
	CalibrateADCBulkN CalibrationParams = 0x10
	CalibrateADCBulkP CalibrationParams = 0x20
	CalibrateAll      CalibrationParams = 0x3f
)

const (
	SleepRetainNone     SleepConfig = 0x00
	SleepRetainDataRAM  SleepConfig = 0x01
	SleepRetainDataBuff SleepConfig = 0x02
)

const (
	CADOneSymbol      CADSymbols = 0x00
	CADTwoSymbols     CADSymbols = 0x20
	CADFourSymbols    CADSymbols = 0x40
	CADEightSymbols   CADSymbols = 0x60
	CADSixteenSymbols CADSymbols = 0x80
)

const (
	rangingRoleSlave  byte = 0x00
	rangingRoleMaster byte = 0x01
)

// IRQ is the 16-bit interrupt status and mask register.
type IRQ uint16

const (
	IRQTxDone                     IRQ = 1 << 0
	IRQRxDone                     IRQ = 1 << 1
	IRQSyncWordValid              IRQ = 1 << 2
	IRQSyncWordError              IRQ = 1 << 3
	IRQHeaderValid                IRQ = 1 << 4
	IRQHeaderError                IRQ = 1 << 5
	IRQCrcError                   IRQ = 1 << 6
	IRQRangingSlaveResponseDone   IRQ = 1 << 7
	IRQRangingSlaveRequestDiscard IRQ = 1 << 8
	IRQRangingMasterResultValid   IRQ = 1 << 9
	IRQRangingMasterTimeout       IRQ = 1 << 10
	IRQRangingSlaveRequestValid   IRQ = 1 << 11
	IRQCadDone                    IRQ = 1 << 12
	IRQCadDetected                IRQ = 1 << 13
	IRQRxTxTimeout                IRQ = 1 << 14
	IRQPreambleDetected           IRQ = 1 << 15

	IRQAll  IRQ = 0xffff
	IRQNone IRQ = 0
)

var irqNames = [16]string{
	"TxDone", "RxDone", "SyncWordValid", "SyncWordError",
	"HeaderValid", "HeaderError", "CrcError", "RangingSlaveResponseDone",
	"RangingSlaveRequestDiscard", "RangingMasterResultValid", "RangingMasterTimeout", "RangingSlaveRequestValid",
	"CadDone", "CadDetected", "RxTxTimeout", "PreambleDetected",
}

func (i IRQ) Has(f IRQ) bool {
	return i&f != 0
}

func (i IRQ) String() string {
	if i == 0 {
		return "none"
	}
	var s []string
	for b := 0; b < 16; b++ {
		if i&(1<<b) != 0 {
			s = append(s, irqNames[b])
		}
	}
	return strings.Join(s, "|")
}

const (
	FrequencyMin uint32 = 2400000000
	FrequencyMax uint32 = 2500000000

	xtalFrequency        uint64 = 52000000
	firmwareVersion      uint16 = 0xa9b5
	bufferSize                  = 256
	autoTxOffsetUs              = 33
	txPowerMin                  = -18
	txPowerMax                  = 13
	rxContinuousCount    uint16 = 0xffff
	maxLoRaSymbolTimeNs         = 16000000
)
