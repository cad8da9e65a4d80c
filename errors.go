package sx128x

import (
	"errors"
	"fmt"
)

var (
	ErrBusyTimeout    = errors.New("sx128x: busy line timeout")
	ErrChipCommand    = errors.New("sx128x: command failed")
	ErrMode           = errors.New("sx128x: operation not allowed in current mode")
	ErrInvalidConfig  = errors.New("sx128x: invalid configuration")
	ErrStaleConfig    = errors.New("sx128x: modem parameters are stale")
	ErrRxTimeout      = errors.New("sx128x: receive timeout")
	ErrTxTimeout      = errors.New("sx128x: transmit timeout")
	ErrRangingTimeout = errors.New("sx128x: ranging timeout")
	ErrCRC            = errors.New("sx128x: crc not matched")
	ErrHeader         = errors.New("sx128x: invalid header")
	ErrTransport      = errors.New("sx128x: transport error")
	ErrPollTimeout    = errors.New("sx128x: poll timeout")
	ErrNoComms        = errors.New("sx128x: no response from device")
	ErrInvalidDevice  = errors.New("sx128x: firmware version not matched")
)

// ModeError is returned when an operation is not legal in the cached mode.
type ModeError struct {
	Op   string
	Mode Mode
}

func (e *ModeError) Error() string {
	return fmt.Sprintf("sx128x: %s not allowed in %s mode", e.Op, e.Mode)
}

func (e *ModeError) Unwrap() error {
	return ErrMode
}

// CommandError carries the status byte of a transaction the chip reported as
// failed.
type CommandError struct {
	Op     Opcode
	Status Status
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("sx128x: %s failed: %s", e.Op, e.Status.Command())
}

func (e *CommandError) Unwrap() error {
	return ErrChipCommand
}

// TransportError wraps a failure of the underlying bus or pins.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("sx128x: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

func invalidConfig(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, a...))
}
