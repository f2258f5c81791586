package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// persisted keys
const (
	keyHeader     = "cfg_hdr"
	keyData       = "cfg_data"
	keyBrightness = "led_bri"
	keyCurBank    = "cur_bank"
	keyABLed      = "ab_led"
	keyExpFs      = "expfs"
	keyDeviceID   = "dev_id"
)

// BlobStore is the raw persistence primitive the store writes through
type BlobStore interface {
	GetBlob(key string) ([]byte, error)
	SetBlob(key string, data []byte) error
	Commit() error
}

// Change identifies what a successful mutation touched
type Change int

const (
	ChangeLayout Change = iota
	ChangeBank
	ChangeButton
	ChangeLED
	ChangeState
	ChangeExpFs
)

func (c Change) String() string {
	switch c {
	case ChangeLayout:
		return "layout"
	case ChangeBank:
		return "bank"
	case ChangeButton:
		return "button"
	case ChangeLED:
		return "led"
	case ChangeState:
		return "state"
	case ChangeExpFs:
		return "expfs"
	}
	return fmt.Sprintf("Change(%d)", int(c))
}

// Store owns the mapping configuration and its persistence.
// Every mutation replaces whole records under the lock, then persists synchronously.
// A failed write is logged and the in-memory state stays authoritative.
type Store struct {
	mu         sync.RWMutex
	blobs      BlobStore
	log        zerolog.Logger
	cfg        *Config
	brightness uint8
	curBank    int
	abLed      *[MaxBanks][NumButtons]uint8
	expfs      [PortCount]ExpFsPort
	deviceID   string
	durable    bool

	obsMu     sync.Mutex
	observers []func(Change)
}

// Open loads the configuration from blobs, migrating or generating defaults as needed.
// A nil blobs runs the store in memory only.
func Open(blobs BlobStore) *Store {
	s := &Store{
		blobs:      blobs,
		log:        log.With().Str("component", "cfg").Logger(),
		cfg:        Defaults(),
		brightness: 100,
		abLed:      defaultABLed(),
		deviceID:   uuid.NewString(),
		durable:    blobs != nil,
	}
	for i := range s.expfs {
		s.expfs[i] = DefaultExpFsPort()
	}

	if blobs == nil {
		s.log.Error().Msg("no backing store, running with defaults and no persistence")
		Sanitize(s.cfg)
		return s
	}

	s.loadConfig()
	s.loadBrightness()
	s.loadABLed()
	s.loadCurrentBank()
	s.loadExpFs()
	s.loadDeviceID()
	return s
}

func (s *Store) loadConfig() {
	hdr, herr := s.blobs.GetBlob(keyHeader)
	data, derr := s.blobs.GetBlob(keyData)
	switch {
	case herr != nil || derr != nil:
		s.log.Warn().Msg("no saved config, using defaults")
	default:
		if cfg, err := decodeConfig(hdr, data); err == nil {
			s.cfg = cfg
			s.log.Info().Msg("loaded config v4")
		} else if cfg, lerr := migrateLegacy(hdr, data); lerr == nil {
			s.cfg = cfg
			s.log.Warn().Msg("migrated legacy v3 config, kept page 0")
		} else {
			s.log.Warn().Err(err).Msg("saved config unreadable, using defaults")
		}
	}
	Sanitize(s.cfg)
	s.saveConfig()
}

func (s *Store) loadBrightness() {
	data, err := s.blobs.GetBlob(keyBrightness)
	if err == nil && len(data) == 1 {
		s.brightness = uint8(Clamp(int(data[0]), 0, 100))
		s.log.Info().Uint8("brightness", s.brightness).Msg("loaded led brightness")
		return
	}
	s.brightness = 100
	s.log.Warn().Msg("no led brightness saved, default=100")
	s.persist(kv{keyBrightness, []byte{s.brightness}})
}

func (s *Store) loadABLed() {
	data, err := s.blobs.GetBlob(keyABLed)
	if err == nil {
		if sel, derr := decodeABLed(data); derr == nil {
			s.abLed = sel
			s.log.Info().Int("size", len(data)).Msg("loaded a/b led select")
			if len(data) != abLedSize {
				s.persist(kv{keyABLed, encodeABLed(s.abLed)})
			}
			return
		}
	}
	s.abLed = defaultABLed()
	s.log.Warn().Msg("no a/b led select saved, default=B")
	s.persist(kv{keyABLed, encodeABLed(s.abLed)})
}

func (s *Store) loadCurrentBank() {
	data, err := s.blobs.GetBlob(keyCurBank)
	if err == nil && len(data) == 1 {
		s.curBank = Wrap(int(data[0]), s.cfg.BankCount)
		s.log.Info().Int("bank", s.curBank).Msg("loaded current bank")
		return
	}
	s.curBank = 0
	s.log.Warn().Msg("no current bank saved, default=0")
	s.persist(kv{keyCurBank, []byte{0}})
}

func (s *Store) loadExpFs() {
	data, err := s.blobs.GetBlob(keyExpFs)
	if err == nil {
		if ports, derr := decodeExpFs(data); derr == nil {
			s.expfs = *ports
			for i := range s.expfs {
				SanitizeExpFsPort(&s.expfs[i])
			}
			s.log.Info().Msg("loaded exp/fs ports")
			return
		}
	}
	for i := range s.expfs {
		s.expfs[i] = DefaultExpFsPort()
	}
	s.log.Warn().Msg("no exp/fs saved, default=single switch")
	s.persist(kv{keyExpFs, encodeExpFs(&s.expfs)})
}

func (s *Store) loadDeviceID() {
	data, err := s.blobs.GetBlob(keyDeviceID)
	if err == nil {
		if id, perr := uuid.ParseBytes(data); perr == nil {
			s.deviceID = id.String()
			return
		}
	}
	s.log.Info().Str("id", s.deviceID).Msg("generated device id")
	s.persist(kv{keyDeviceID, []byte(s.deviceID)})
}

type kv struct {
	key  string
	data []byte
}

// persist writes and commits the given keys. Callers hold s.mu or run before the store is shared.
func (s *Store) persist(items ...kv) {
	if s.blobs == nil {
		s.durable = false
		return
	}
	var errs []error
	for _, it := range items {
		if err := s.blobs.SetBlob(it.key, it.data); err != nil {
			errs = append(errs, fmt.Errorf("set %s: %w", it.key, err))
		}
	}
	if err := s.blobs.Commit(); err != nil {
		errs = append(errs, fmt.Errorf("commit: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		s.durable = false
		s.log.Error().Err(err).Msg("persist failed, keeping in-memory state")
		return
	}
	s.durable = true
}

func (s *Store) saveConfig() {
	hdr, data := encodeConfig(s.cfg)
	s.persist(kv{keyHeader, hdr}, kv{keyData, data})
}

// Subscribe registers fn to be called after every successful mutation
func (s *Store) Subscribe(fn func(Change)) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Store) notify(c Change) {
	s.obsMu.Lock()
	obs := slices.Clone(s.observers)
	s.obsMu.Unlock()
	for _, fn := range obs {
		fn(c)
	}
}

// Durable reports whether the last write reached the backing store
func (s *Store) Durable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.durable
}

// Snapshot returns a deep copy of the mapping configuration
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.cfg
}

func (s *Store) BankCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.BankCount
}

// Button returns a copy of one mapping. Indices are wrapped.
func (s *Store) Button(bank, btn int) ButtonMapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bank = Wrap(bank, s.cfg.BankCount)
	return s.cfg.Banks[bank].Buttons[Wrap(btn, NumButtons)]
}

// BankNames returns the name of bank and its switch names
func (s *Store) BankNames(bank int) (string, [NumButtons]string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := &s.cfg.Banks[Wrap(bank, s.cfg.BankCount)]
	return b.Name, b.SwitchNames
}

func (s *Store) LEDBrightness() uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.brightness
}

// ABLedSelect returns which A/B state lights a toggle button: 1 means B lights
func (s *Store) ABLedSelect(bank, btn int) uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.abLed[Wrap(bank, MaxBanks)][Wrap(btn, NumButtons)]
}

func (s *Store) CurrentBank() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.curBank
}

func (s *Store) DeviceID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deviceID
}

// ExpFs returns a copy of one jack configuration. The port index is clamped.
func (s *Store) ExpFs(port int) ExpFsPort {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expfs[Clamp(port, 0, PortCount-1)]
}

func (s *Store) Meta() MetaDoc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return MetaDoc{
		MaxBanks:   MaxBanks,
		Buttons:    NumButtons,
		BankCount:  s.cfg.BankCount,
		MaxActions: MaxActions,
		LongMs:     LongPressMs,
		ExpFsPorts: PortCount,
		DeviceID:   s.deviceID,
	}
}

func (s *Store) Layout() LayoutDoc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := LayoutDoc{MaxBanks: MaxBanks, BankCount: s.cfg.BankCount, Banks: make([]BankRef, 0, s.cfg.BankCount)}
	for b := 0; b < s.cfg.BankCount; b++ {
		doc.Banks = append(doc.Banks, BankRef{Index: b, Name: s.cfg.Banks[b].Name})
	}
	return doc
}

// SetLayout replaces the bank count and bank names. The current bank is re-wrapped.
func (s *Store) SetLayout(data []byte) error {
	var w wireLayout
	if err := decodeDoc(data, &w); err != nil {
		return err
	}
	count := Clamp(toInt(*w.BankCount), 1, MaxBanks)

	s.mu.Lock()
	names := make([]string, count)
	for b := 0; b < count; b++ {
		if b >= len(w.Banks) {
			s.mu.Unlock()
			return fmt.Errorf("%w: banks has %d entries, bankCount is %d", ErrValidation, len(w.Banks), count)
		}
		obj, ok := asObject(w.Banks[b])
		if !ok {
			s.mu.Unlock()
			return fmt.Errorf("%w: bank %d is not an object", ErrValidation, b)
		}
		name, _ := optString(obj["name"])
		names[b] = setName(name, s.cfg.Banks[b].Name)
	}

	s.cfg.BankCount = count
	for b, name := range names {
		s.cfg.Banks[b].Name = name
	}
	Sanitize(s.cfg)
	s.curBank = Wrap(s.curBank, s.cfg.BankCount)
	s.persist(kv{keyCurBank, []byte{uint8(s.curBank)}})
	s.saveConfig()
	s.mu.Unlock()

	s.notify(ChangeLayout)
	return nil
}

func (s *Store) Bank(bank int) BankDoc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bank = Wrap(bank, s.cfg.BankCount)
	b := &s.cfg.Banks[bank]
	return BankDoc{Index: bank, Name: b.Name, SwitchNames: append([]string(nil), b.SwitchNames[:]...)}
}

// SetBank updates the switch names of a bank. Entries that are not strings keep the old name.
func (s *Store) SetBank(bank int, data []byte) error {
	var w wireBank
	if err := decodeDoc(data, &w); err != nil {
		return err
	}

	s.mu.Lock()
	bank = Wrap(bank, s.cfg.BankCount)
	b := &s.cfg.Banks[bank]
	for k, raw := range w.SwitchNames {
		if k >= NumButtons {
			break
		}
		if name, ok := optString(raw); ok {
			b.SwitchNames[k] = setName(name, b.SwitchNames[k])
		}
	}
	Sanitize(s.cfg)
	s.saveConfig()
	s.mu.Unlock()

	s.notify(ChangeBank)
	return nil
}

func (s *Store) ButtonDoc(bank, btn int) ButtonDoc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bank = Wrap(bank, s.cfg.BankCount)
	btn = Wrap(btn, NumButtons)
	doc := buttonDoc(&s.cfg.Banks[bank].Buttons[btn])
	ab := int(s.abLed[bank][btn])
	doc.ABLed = &ab
	return doc
}

// SetButton replaces one button mapping. abLed is optional in the document.
func (s *Store) SetButton(bank, btn int, data []byte) error {
	m, ab, hasAB, err := parseButton(data, PressShortGroupLED)
	if err != nil {
		return err
	}

	s.mu.Lock()
	bank = Wrap(bank, s.cfg.BankCount)
	btn = Wrap(btn, NumButtons)
	s.cfg.Banks[bank].Buttons[btn] = m
	if hasAB {
		s.abLed[bank][btn] = uint8(ab)
	}
	Sanitize(s.cfg)
	s.saveConfig()
	s.persist(kv{keyABLed, encodeABLed(s.abLed)})
	s.mu.Unlock()

	s.notify(ChangeButton)
	return nil
}

// SetLEDBrightness stores a brightness percentage, clamped to 100
func (s *Store) SetLEDBrightness(percent int) {
	s.mu.Lock()
	s.brightness = uint8(Clamp(percent, 0, 100))
	s.persist(kv{keyBrightness, []byte{s.brightness}})
	s.mu.Unlock()

	s.notify(ChangeLED)
}

// SetABLedSelect stores which A/B state lights a toggle button
func (s *Store) SetABLedSelect(bank, btn int, sel int) {
	s.mu.Lock()
	s.abLed[Wrap(bank, MaxBanks)][Wrap(btn, NumButtons)] = uint8(Clamp(sel, 0, 1))
	s.persist(kv{keyABLed, encodeABLed(s.abLed)})
	s.mu.Unlock()

	s.notify(ChangeButton)
}

// SetCurrentBank wraps n into the bank range and persists it. It returns the stored bank.
func (s *Store) SetCurrentBank(n int) int {
	s.mu.Lock()
	s.curBank = Wrap(n, s.cfg.BankCount)
	bank := s.curBank
	s.persist(kv{keyCurBank, []byte{uint8(bank)}})
	s.mu.Unlock()

	s.notify(ChangeState)
	return bank
}

func (s *Store) ExpFsDoc(port int) ExpFsDoc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	port = Clamp(port, 0, PortCount-1)
	return expFsDoc(port, &s.expfs[port])
}

// SetExpFs replaces a jack configuration built from defaults plus the document
func (s *Store) SetExpFs(port int, data []byte) error {
	p, err := parseExpFs(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	port = Clamp(port, 0, PortCount-1)
	SanitizeExpFsPort(&p)
	s.expfs[port] = p
	s.persist(kv{keyExpFs, encodeExpFs(&s.expfs)})
	s.mu.Unlock()

	s.notify(ChangeExpFs)
	return nil
}

// SetExpFsCalibration stores raw as one calibration end of a jack and returns the port state
func (s *Store) SetExpFsCalibration(port int, which CalPoint, raw int) ExpFsPort {
	s.mu.Lock()
	port = Clamp(port, 0, PortCount-1)
	p := &s.expfs[port]
	v := uint16(Clamp(raw, 0, ADCMax))
	if which == CalMax {
		p.CalMax = v
	} else {
		p.CalMin = v
	}
	SanitizeExpFsPort(p)
	out := *p
	s.persist(kv{keyExpFs, encodeExpFs(&s.expfs)})
	s.mu.Unlock()

	s.notify(ChangeExpFs)
	return out
}
