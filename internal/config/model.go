package config

import "fmt"

const (
	MaxBanks    = 100
	NumButtons  = 8
	MaxActions  = 20
	NameLen     = 16 // includes the terminator of the on-disk form, so 15 usable bytes
	PortCount   = 2
	LongPressMs = 400
	ADCMax      = 4095
)

// ActionType is the kind of MIDI message an action emits
type ActionType uint8

const (
	ActionNone ActionType = 0
	ActionCC   ActionType = 1
	ActionPC   ActionType = 2

	// legacy codes, coerced to ActionNone on load
	actionNote   ActionType = 3
	actionDelay  ActionType = 4
	actionBankPC ActionType = 5
)

func (t ActionType) String() string {
	switch t {
	case ActionNone:
		return "none"
	case ActionCC:
		return "cc"
	case ActionPC:
		return "pc"
	case actionNote:
		return "note"
	case actionDelay:
		return "delay"
	case actionBankPC:
		return "bank_pc"
	}
	return fmt.Sprintf("ActionType(%d)", uint8(t))
}

// Action is one MIDI command in an action list.
// CC uses A as controller and B as value, PC uses A as program.
// In the expression port context B and C (CC) or A and B (PC) describe the output range.
type Action struct {
	Type    ActionType
	Channel uint8 // 1..16
	A       uint8
	B       uint8
	C       uint8
}

// ActionList is the fixed-capacity list fired by a button
type ActionList [MaxActions]Action

// PressMode selects how a footswitch turns edges into triggers
type PressMode uint8

const (
	PressShort         PressMode = 0
	PressShortLong     PressMode = 1
	PressToggle        PressMode = 2
	PressShortGroupLED PressMode = 3

	pressTapTempo PressMode = 4 // legacy, migrates to PressShort
)

func (m PressMode) String() string {
	switch m {
	case PressShort:
		return "short"
	case PressShortLong:
		return "short_long"
	case PressToggle:
		return "toggle"
	case PressShortGroupLED:
		return "group_led"
	}
	return fmt.Sprintf("PressMode(%d)", uint8(m))
}

// CCBehavior selects the value policy for CC actions
type CCBehavior uint8

const (
	CCNormal    CCBehavior = 0
	CCToggle    CCBehavior = 1
	CCMomentary CCBehavior = 2
)

func (b CCBehavior) String() string {
	switch b {
	case CCNormal:
		return "normal"
	case CCToggle:
		return "toggle"
	case CCMomentary:
		return "momentary"
	}
	return fmt.Sprintf("CCBehavior(%d)", uint8(b))
}

// ButtonMapping is the full behaviour of one footswitch contact
type ButtonMapping struct {
	PressMode  PressMode
	CCBehavior CCBehavior
	Short      ActionList
	Long       ActionList
}

// Bank groups the eight footswitch mappings that are active together
type Bank struct {
	Name        string
	SwitchNames [NumButtons]string
	Buttons     [NumButtons]ButtonMapping
}

// Config is the canonical mapping data shared by both engines
type Config struct {
	BankCount int
	Banks     [MaxBanks]Bank
}

// PortKind is the personality of an expression/footswitch jack
type PortKind uint8

const (
	PortExp          PortKind = 0
	PortSingleSwitch PortKind = 1
	PortDualSwitch   PortKind = 2
)

func (k PortKind) String() string {
	switch k {
	case PortExp:
		return "exp"
	case PortSingleSwitch:
		return "single"
	case PortDualSwitch:
		return "dual"
	}
	return fmt.Sprintf("PortKind(%d)", uint8(k))
}

// ParsePortKind maps the wire name of a port kind. Unknown names mean a single switch.
func ParsePortKind(s string) PortKind {
	switch s {
	case "exp":
		return PortExp
	case "dual":
		return PortDualSwitch
	}
	return PortSingleSwitch
}

// ExpFsPort is the configuration of one expression/footswitch jack
type ExpFsPort struct {
	Kind      PortKind
	ExpAction Action
	CalMin    uint16
	CalMax    uint16
	Tip       ButtonMapping
	Ring      ButtonMapping // active only for PortDualSwitch
}

// CalPoint selects which calibration end a captured value is stored into
type CalPoint int

const (
	CalMin CalPoint = 0
	CalMax CalPoint = 1
)

// ParseCalPoint accepts "min", "max", "0" and "1"
func ParseCalPoint(s string) (CalPoint, error) {
	switch s {
	case "min", "0":
		return CalMin, nil
	case "max", "1":
		return CalMax, nil
	}
	return CalMin, fmt.Errorf("%w: unknown calibration point %q", ErrValidation, s)
}
