package sx128x

import "fmt"

// Mode is the operating mode of the chip as tracked by the driver.
type Mode byte

const (
	ModeSleep Mode = iota
	ModeStandbyRC
	ModeStandbyXOSC
	ModeFS
	ModeTx
	ModeRx
	ModeCAD
)

var modeNames = [...]string{"Sleep", "StandbyRC", "StandbyXOSC", "FS", "Tx", "Rx", "CAD"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", byte(m))
}

// Standby reports whether m is one of the two standby modes.
func (m Mode) Standby() bool {
	return m == ModeStandbyRC || m == ModeStandbyXOSC
}

// Active reports whether a transmit, receive or CAD cycle runs in m.
func (m Mode) Active() bool {
	return m == ModeTx || m == ModeRx || m == ModeCAD
}

var transitions = map[Mode][]Mode{
	ModeSleep:       {ModeStandbyRC, ModeStandbyXOSC},
	ModeStandbyRC:   {ModeSleep, ModeStandbyRC, ModeStandbyXOSC, ModeFS, ModeTx, ModeRx, ModeCAD},
	ModeStandbyXOSC: {ModeSleep, ModeStandbyRC, ModeStandbyXOSC, ModeFS, ModeTx, ModeRx, ModeCAD},
	ModeFS:          {ModeStandbyRC, ModeStandbyXOSC, ModeFS, ModeTx, ModeRx, ModeCAD},
	ModeTx:          {ModeStandbyRC, ModeStandbyXOSC},
	ModeRx:          {ModeStandbyRC, ModeStandbyXOSC},
	ModeCAD:         {ModeStandbyRC, ModeStandbyXOSC},
}

// CanTransition reports whether the chip accepts a request to move from one
// mode to another.
func CanTransition(from, to Mode) bool {
	for _, m := range transitions[from] {
		if m == to {
			return true
		}
	}
	return false
}

// stateMachine owns the cached mode. It is only changed by commit (after a
// confirmed mode command), observe (status byte of a successful transaction)
// and complete (end of a cycle reported through the irq status).
type stateMachine struct {
	mode       Mode
	fallback   Mode
	continuous bool
}

func newStateMachine() *stateMachine {
	return &stateMachine{mode: ModeSleep, fallback: ModeStandbyRC}
}

func (s *stateMachine) check(op string, target Mode) error {
	if !CanTransition(s.mode, target) {
		return &ModeError{Op: op, Mode: s.mode}
	}
	return nil
}

// awake rejects bus access while the chip sleeps.
func (s *stateMachine) awake(op string) error {
	if s.mode == ModeSleep {
		return &ModeError{Op: op, Mode: s.mode}
	}
	return nil
}

func (s *stateMachine) commit(target Mode, continuous bool) {
	s.mode = target
	s.continuous = continuous && target == ModeRx
}

func (s *stateMachine) observe(m Mode) {
	if s.mode == ModeSleep || (s.mode == ModeCAD && m == ModeRx) {
		return
	}
	if m != ModeRx {
		s.continuous = false
	}
	s.mode = m
}

// complete records the autonomous return to the fallback mode at the end of a
// cycle.
func (s *stateMachine) complete() {
	if s.mode == ModeRx && s.continuous {
		return
	}
	if s.mode.Active() {
		s.mode = s.fallback
	}
}
