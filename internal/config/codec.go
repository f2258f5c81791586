package config

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	cfgMagic   uint32 = 0x46435346 // 'FSCF'
	cfgVersion uint16 = 4

	legacyVersion   uint16 = 3
	legacyMaxBanks         = 20
	legacyMaxPages         = 4
	legacyNumButton        = 8
)

var errBadBlob = errors.New("config: blob does not match schema")

type diskHeader struct {
	Magic    uint32
	Version  uint16
	Reserved uint16
	Size     uint32
}

type diskAction struct {
	Type, Channel, A, B, C uint8
}

type diskMapping struct {
	PressMode  uint8
	CCBehavior uint8
	Short      [MaxActions]diskAction
	Long       [MaxActions]diskAction
}

type diskConfig struct {
	BankCount  uint8
	BankName   [MaxBanks][NameLen]byte
	SwitchName [MaxBanks][NumButtons][NameLen]byte
	Map        [MaxBanks][NumButtons]diskMapping
}

type diskConfigV3 struct {
	BankCount  uint8
	PageCount  [legacyMaxBanks]uint8
	BankName   [legacyMaxBanks][NameLen]byte
	PageName   [legacyMaxBanks][legacyMaxPages][NameLen]byte
	SwitchName [legacyMaxBanks][legacyMaxPages][legacyNumButton][NameLen]byte
	Map        [legacyMaxBanks][legacyMaxPages][legacyNumButton]diskMapping
}

type diskPort struct {
	Kind      uint8
	ExpAction diskAction
	CalMin    uint16
	CalMax    uint16
	Tip       diskMapping
	Ring      diskMapping
}

var (
	configSize   = binary.Size(diskConfig{})
	legacySize   = binary.Size(diskConfigV3{})
	abLedSize    = MaxBanks * NumButtons
	legacyABSize = legacyMaxBanks * legacyMaxPages * legacyNumButton
)

func encode(v any) []byte {
	var buf bytes.Buffer
	// fixed-size values never fail to encode into a buffer
	_ = binary.Write(&buf, binary.LittleEndian, v)
	return buf.Bytes()
}

func decode(data []byte, v any) error {
	if len(data) != binary.Size(v) {
		return fmt.Errorf("%w: size %d, want %d", errBadBlob, len(data), binary.Size(v))
	}
	return binary.Read(bytes.NewReader(data), binary.LittleEndian, v)
}

func nameBytes(s string) (out [NameLen]byte) {
	copy(out[:NameLen-1], truncateName(s))
	return out
}

func nameString(b [NameLen]byte) string {
	if i := bytes.IndexByte(b[:], 0); i >= 0 {
		return string(b[:i])
	}
	return string(b[:NameLen-1])
}

func toDiskAction(a Action) diskAction {
	return diskAction{Type: uint8(a.Type), Channel: a.Channel, A: a.A, B: a.B, C: a.C}
}

func fromDiskAction(d diskAction) Action {
	return Action{Type: ActionType(d.Type), Channel: d.Channel, A: d.A, B: d.B, C: d.C}
}

func toDiskMapping(m ButtonMapping) diskMapping {
	d := diskMapping{PressMode: uint8(m.PressMode), CCBehavior: uint8(m.CCBehavior)}
	for i := 0; i < MaxActions; i++ {
		d.Short[i] = toDiskAction(m.Short[i])
		d.Long[i] = toDiskAction(m.Long[i])
	}
	return d
}

func fromDiskMapping(d diskMapping) ButtonMapping {
	m := ButtonMapping{PressMode: PressMode(d.PressMode), CCBehavior: CCBehavior(d.CCBehavior)}
	for i := 0; i < MaxActions; i++ {
		m.Short[i] = fromDiskAction(d.Short[i])
		m.Long[i] = fromDiskAction(d.Long[i])
	}
	return m
}

// encodeConfig returns the header and payload blobs of the current schema
func encodeConfig(cfg *Config) (hdr, data []byte) {
	d := &diskConfig{BankCount: uint8(Clamp(cfg.BankCount, 1, MaxBanks))}
	for b := range cfg.Banks {
		bank := &cfg.Banks[b]
		d.BankName[b] = nameBytes(bank.Name)
		for k := range bank.Buttons {
			d.SwitchName[b][k] = nameBytes(bank.SwitchNames[k])
			d.Map[b][k] = toDiskMapping(bank.Buttons[k])
		}
	}
	h := diskHeader{Magic: cfgMagic, Version: cfgVersion, Size: uint32(configSize)}
	return encode(h), encode(d)
}

func decodeHeader(hdr []byte) (diskHeader, error) {
	var h diskHeader
	if err := decode(hdr, &h); err != nil {
		return h, err
	}
	if h.Magic != cfgMagic {
		return h, fmt.Errorf("%w: magic 0x%08X", errBadBlob, h.Magic)
	}
	return h, nil
}

// decodeConfig reads a current-schema blob pair. The result is not sanitized.
func decodeConfig(hdr, data []byte) (*Config, error) {
	h, err := decodeHeader(hdr)
	if err != nil {
		return nil, err
	}
	if h.Version != cfgVersion || int(h.Size) != configSize {
		return nil, fmt.Errorf("%w: version %d size %d", errBadBlob, h.Version, h.Size)
	}
	var d diskConfig
	if err := decode(data, &d); err != nil {
		return nil, err
	}
	cfg := &Config{BankCount: int(d.BankCount)}
	for b := range cfg.Banks {
		bank := &cfg.Banks[b]
		bank.Name = nameString(d.BankName[b])
		for k := range bank.Buttons {
			bank.SwitchNames[k] = nameString(d.SwitchName[b][k])
			bank.Buttons[k] = fromDiskMapping(d.Map[b][k])
		}
	}
	return cfg, nil
}

// migrateLegacy converts a paged v3 blob pair into the current model.
// Only page 0 of each legacy bank survives. The result is not sanitized.
func migrateLegacy(hdr, data []byte) (*Config, error) {
	h, err := decodeHeader(hdr)
	if err != nil {
		return nil, err
	}
	if h.Version != legacyVersion || int(h.Size) != legacySize {
		return nil, fmt.Errorf("%w: not a legacy v3 blob (version %d size %d)", errBadBlob, h.Version, h.Size)
	}
	var old diskConfigV3
	if err := decode(data, &old); err != nil {
		return nil, err
	}

	cfg := Defaults()
	banks := Clamp(int(old.BankCount), 1, legacyMaxBanks)
	cfg.BankCount = banks
	for b := 0; b < banks; b++ {
		bank := &cfg.Banks[b]
		bank.Name = setName(nameString(old.BankName[b]), bank.Name)
		for k := 0; k < NumButtons; k++ {
			bank.SwitchNames[k] = setName(nameString(old.SwitchName[b][0][k]), bank.SwitchNames[k])
			m := fromDiskMapping(old.Map[b][0][k])
			for i := 0; i < MaxActions; i++ {
				m.Short[i].C = 0
				m.Long[i].C = 0
			}
			bank.Buttons[k] = m
		}
	}
	return cfg, nil
}

func encodeABLed(sel *[MaxBanks][NumButtons]uint8) []byte {
	return encode(sel)
}

// decodeABLed accepts the current table or a legacy paged table, taking page 0
func decodeABLed(data []byte) (*[MaxBanks][NumButtons]uint8, error) {
	sel := defaultABLed()
	switch len(data) {
	case abLedSize:
		for b := 0; b < MaxBanks; b++ {
			for k := 0; k < NumButtons; k++ {
				sel[b][k] = bit(data[b*NumButtons+k])
			}
		}
	case legacyABSize:
		for b := 0; b < legacyMaxBanks; b++ {
			for k := 0; k < legacyNumButton; k++ {
				sel[b][k] = bit(data[(b*legacyMaxPages+0)*legacyNumButton+k])
			}
		}
	default:
		return nil, fmt.Errorf("%w: ab_led size %d", errBadBlob, len(data))
	}
	return sel, nil
}

func defaultABLed() *[MaxBanks][NumButtons]uint8 {
	sel := new([MaxBanks][NumButtons]uint8)
	for b := range sel {
		for k := range sel[b] {
			sel[b][k] = 1
		}
	}
	return sel
}

func bit(v uint8) uint8 {
	if v != 0 {
		return 1
	}
	return 0
}

func encodeExpFs(ports *[PortCount]ExpFsPort) []byte {
	var d [PortCount]diskPort
	for i, p := range ports {
		d[i] = diskPort{
			Kind:      uint8(p.Kind),
			ExpAction: toDiskAction(p.ExpAction),
			CalMin:    p.CalMin,
			CalMax:    p.CalMax,
			Tip:       toDiskMapping(p.Tip),
			Ring:      toDiskMapping(p.Ring),
		}
	}
	return encode(&d)
}

func decodeExpFs(data []byte) (*[PortCount]ExpFsPort, error) {
	var d [PortCount]diskPort
	if err := decode(data, &d); err != nil {
		return nil, err
	}
	ports := new([PortCount]ExpFsPort)
	for i, p := range d {
		ports[i] = ExpFsPort{
			Kind:      PortKind(p.Kind),
			ExpAction: fromDiskAction(p.ExpAction),
			CalMin:    p.CalMin,
			CalMax:    p.CalMax,
			Tip:       fromDiskMapping(p.Tip),
			Ring:      fromDiskMapping(p.Ring),
		}
	}
	return ports, nil
}
