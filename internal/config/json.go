package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// ErrValidation marks a malformed or incomplete JSON document. Nothing is changed when it is returned.
var ErrValidation = errors.New("invalid config document")

var validate = validator.New()

// ActionDoc is the wire form of one action
type ActionDoc struct {
	Type string `json:"type"`
	Ch   int    `json:"ch"`
	A    int    `json:"a"`
	B    int    `json:"b"`
	C    int    `json:"c"`
}

// ButtonDoc is the wire form of a button mapping. ABLed is only present for main footswitches.
type ButtonDoc struct {
	PressMode  int         `json:"pressMode"`
	CCBehavior int         `json:"ccBehavior"`
	ABLed      *int        `json:"abLed,omitempty"`
	Short      []ActionDoc `json:"short"`
	Long       []ActionDoc `json:"long"`
}

type BankRef struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

type LayoutDoc struct {
	MaxBanks  int       `json:"maxBanks"`
	BankCount int       `json:"bankCount"`
	Banks     []BankRef `json:"banks"`
}

type BankDoc struct {
	Index       int      `json:"index"`
	Name        string   `json:"name"`
	SwitchNames []string `json:"switchNames"`
}

type ExpDoc struct {
	Cmd []ActionDoc `json:"cmd"`
}

type ExpFsDoc struct {
	Port   int       `json:"port"`
	Kind   string    `json:"kind"`
	CalMin int       `json:"calMin"`
	CalMax int       `json:"calMax"`
	Exp    ExpDoc    `json:"exp"`
	Tip    ButtonDoc `json:"tip"`
	Ring   ButtonDoc `json:"ring"`
}

type MetaDoc struct {
	MaxBanks   int    `json:"maxBanks"`
	Buttons    int    `json:"buttons"`
	BankCount  int    `json:"bankCount"`
	MaxActions int    `json:"maxActions"`
	LongMs     int    `json:"longMs"`
	ExpFsPorts int    `json:"expfsPorts"`
	DeviceID   string `json:"deviceId"`
}

// incoming documents; pointer fields make missing and null distinguishable from zero

type wireAction struct {
	Type *string        `json:"type" validate:"required"`
	Ch   *float64       `json:"ch" validate:"required"`
	A    *float64       `json:"a" validate:"required"`
	B    *float64       `json:"b" validate:"required"`
	C    json.RawMessage `json:"c"`
}

type wireButton struct {
	PressMode  *float64          `json:"pressMode" validate:"required"`
	CCBehavior *float64          `json:"ccBehavior" validate:"required"`
	ABLed      json.RawMessage   `json:"abLed"`
	Short      []json.RawMessage `json:"short" validate:"required"`
	Long       []json.RawMessage `json:"long" validate:"required"`
}

type wireLayout struct {
	BankCount *float64          `json:"bankCount" validate:"required"`
	Banks     []json.RawMessage `json:"banks" validate:"required"`
}

type wireBank struct {
	SwitchNames []json.RawMessage `json:"switchNames" validate:"required"`
}

type wireExpFs struct {
	Kind   *string         `json:"kind" validate:"required"`
	CalMin json.RawMessage `json:"calMin"`
	CalMax json.RawMessage `json:"calMax"`
	Exp    json.RawMessage `json:"exp"`
	Tip    json.RawMessage `json:"tip"`
	Ring   json.RawMessage `json:"ring"`
}

func decodeDoc(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// toInt truncates toward zero like a C integer view of a JSON number
func toInt(f float64) int {
	if math.IsNaN(f) {
		return 0
	}
	f = math.Max(-1e9, math.Min(1e9, f))
	return int(f)
}

func optNumber(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f *float64
	if err := json.Unmarshal(raw, &f); err != nil || f == nil {
		return 0, false
	}
	return toInt(*f), true
}

func optString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil || s == nil {
		return "", false
	}
	return *s, true
}

func asObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	return m, true
}

func parseAction(raw json.RawMessage) (Action, error) {
	if _, ok := asObject(raw); !ok {
		return Action{}, fmt.Errorf("%w: action is not an object", ErrValidation)
	}
	var w wireAction
	if err := decodeDoc(raw, &w); err != nil {
		return Action{}, err
	}

	a := Action{
		Channel: uint8(Clamp(toInt(*w.Ch), 1, 16)),
		A:       uint8(Clamp(toInt(*w.A), 0, 127)),
		B:       uint8(Clamp(toInt(*w.B), 0, 127)),
	}
	switch *w.Type {
	case "cc":
		a.Type = ActionCC
		c, _ := optNumber(w.C)
		a.C = uint8(Clamp(c, 0, 127))
	case "pc":
		a.Type = ActionPC
	default:
		return Action{}, fmt.Errorf("%w: unknown action type %q", ErrValidation, *w.Type)
	}
	return a, nil
}

func parseActionList(raws []json.RawMessage) (ActionList, error) {
	var list ActionList
	for i := range list {
		list[i] = DefaultAction()
	}
	for i, raw := range raws {
		if i >= MaxActions {
			break
		}
		a, err := parseAction(raw)
		if err != nil {
			return list, fmt.Errorf("action %d: %w", i, err)
		}
		list[i] = a
	}
	return list, nil
}

// parseButton decodes a button document. maxMode bounds the press mode, abLed is the optional selector.
func parseButton(data []byte, maxMode PressMode) (ButtonMapping, int, bool, error) {
	var w wireButton
	if err := decodeDoc(data, &w); err != nil {
		return ButtonMapping{}, 0, false, err
	}
	m := ButtonMapping{
		PressMode:  PressMode(Clamp(toInt(*w.PressMode), 0, int(maxMode))),
		CCBehavior: CCBehavior(Clamp(toInt(*w.CCBehavior), 0, int(CCMomentary))),
	}
	var err error
	if m.Short, err = parseActionList(w.Short); err != nil {
		return ButtonMapping{}, 0, false, fmt.Errorf("short: %w", err)
	}
	if m.Long, err = parseActionList(w.Long); err != nil {
		return ButtonMapping{}, 0, false, fmt.Errorf("long: %w", err)
	}
	ab, hasAB := optNumber(w.ABLed)
	return m, Clamp(ab, 0, 1), hasAB, nil
}

func actionDocs(list *ActionList) []ActionDoc {
	docs := make([]ActionDoc, 0, MaxActions)
	for _, a := range list {
		if a.Type != ActionCC && a.Type != ActionPC {
			continue
		}
		docs = append(docs, actionDoc(a))
	}
	return docs
}

func actionDoc(a Action) ActionDoc {
	return ActionDoc{Type: a.Type.String(), Ch: int(a.Channel), A: int(a.A), B: int(a.B), C: int(a.C)}
}

func buttonDoc(m *ButtonMapping) ButtonDoc {
	return ButtonDoc{
		PressMode:  int(m.PressMode),
		CCBehavior: int(m.CCBehavior),
		Short:      actionDocs(&m.Short),
		Long:       actionDocs(&m.Long),
	}
}

// parseExpFs builds a port from defaults and overlays the document
func parseExpFs(data []byte) (ExpFsPort, error) {
	var w wireExpFs
	if err := decodeDoc(data, &w); err != nil {
		return ExpFsPort{}, err
	}

	p := DefaultExpFsPort()
	p.Kind = ParsePortKind(*w.Kind)
	if v, ok := optNumber(w.CalMin); ok {
		p.CalMin = uint16(Clamp(v, 0, ADCMax))
	}
	if v, ok := optNumber(w.CalMax); ok {
		p.CalMax = uint16(Clamp(v, 0, ADCMax))
	}

	if exp, ok := asObject(w.Exp); ok {
		var cmd []json.RawMessage
		if json.Unmarshal(exp["cmd"], &cmd) == nil && len(cmd) > 0 {
			// a bad command keeps the default output
			if a, err := parseAction(cmd[0]); err == nil {
				if a.Type == ActionPC {
					a.C = 0
				}
				p.ExpAction = a
			}
		}
	}

	if _, ok := asObject(w.Tip); ok {
		m, _, _, err := parseButton(w.Tip, PressToggle)
		if err != nil {
			return ExpFsPort{}, fmt.Errorf("tip: %w", err)
		}
		p.Tip = m
	}
	if _, ok := asObject(w.Ring); ok {
		m, _, _, err := parseButton(w.Ring, PressToggle)
		if err != nil {
			return ExpFsPort{}, fmt.Errorf("ring: %w", err)
		}
		p.Ring = m
	}
	return p, nil
}

func expFsDoc(port int, p *ExpFsPort) ExpFsDoc {
	doc := ExpFsDoc{
		Port:   port,
		Kind:   p.Kind.String(),
		CalMin: int(p.CalMin),
		CalMax: int(p.CalMax),
		Exp:    ExpDoc{Cmd: []ActionDoc{}},
		Tip:    buttonDoc(&p.Tip),
		Ring:   buttonDoc(&p.Ring),
	}
	if p.ExpAction.Type == ActionCC || p.ExpAction.Type == ActionPC {
		doc.Exp.Cmd = append(doc.Exp.Cmd, actionDoc(p.ExpAction))
	}
	return doc
}
