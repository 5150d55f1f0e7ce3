package infra

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

// DefaultEvdevDir holds the kernel's input event devices.
const DefaultEvdevDir = "/dev/input"

// struct input_event on 64-bit Linux: timeval (16) + type (2) + code (2) + value (4).
const evdevEventSize = 24

// Event types and codes from linux/input-event-codes.h.
const (
	evKey = 0x01
	evRel = 0x02
	evAbs = 0x03

	relX           = 0x00
	relY           = 0x01
	relHWheel      = 0x06
	relWheel       = 0x08
	relWheelHiRes  = 0x0b
	relHWheelHiRes = 0x0c

	absX = 0x00
	absY = 0x01

	btnMouseFirst = 0x110 // BTN_LEFT
	btnMouseLast  = 0x117 // BTN_TASK
	btnTouch      = 0x14a
)

type evdevEvent struct {
	Type  uint16
	Code  uint16
	Value int32
}

func decodeEvdev(buf []byte) evdevEvent {
	return evdevEvent{
		Type:  binary.LittleEndian.Uint16(buf[16:18]),
		Code:  binary.LittleEndian.Uint16(buf[18:20]),
		Value: int32(binary.LittleEndian.Uint32(buf[20:24])),
	}
}

// evdevTranslator turns raw kernel events into InputEvents. Relative motion
// is integrated into a virtual cursor so the tracker sees absolute positions.
type evdevTranslator struct {
	source string
	x, y   float64
}

func (t *evdevTranslator) translate(ev evdevEvent) (domain.InputEvent, bool) {
	switch ev.Type {
	case evKey:
		kind := domain.InputKey
		if (ev.Code >= btnMouseFirst && ev.Code <= btnMouseLast) || ev.Code == btnTouch {
			kind = domain.InputPointerButton
		}
		// value: 0 release, 1 press, 2 autorepeat
		return domain.InputEvent{Kind: kind, Pressed: ev.Value != 0, Source: t.source}, true

	case evRel:
		switch ev.Code {
		case relX:
			t.x += float64(ev.Value)
		case relY:
			t.y += float64(ev.Value)
		case relWheel, relHWheel, relWheelHiRes, relHWheelHiRes:
			return domain.InputEvent{Kind: domain.InputScroll, Source: t.source}, true
		default:
			return domain.InputEvent{}, false
		}
		return t.move(), true

	case evAbs:
		switch ev.Code {
		case absX:
			t.x = float64(ev.Value)
		case absY:
			t.y = float64(ev.Value)
		default:
			return domain.InputEvent{}, false
		}
		return t.move(), true
	}
	return domain.InputEvent{}, false
}

func (t *evdevTranslator) move() domain.InputEvent {
	return domain.InputEvent{Kind: domain.InputPointerMove, X: t.x, Y: t.y, Source: t.source}
}

// readEvdev decodes events from r until it fails (closed device or EOF).
func readEvdev(r io.Reader, source string, events chan<- domain.InputEvent) error {
	tr := &evdevTranslator{source: source}
	buf := make([]byte, evdevEventSize)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		if ev, ok := tr.translate(decodeEvdev(buf)); ok {
			emit(events, ev)
		}
	}
}

// EvdevSource reads keyboard and pointer events from /dev/input/event*.
// Reading the devices needs root or membership of the input group.
type EvdevSource struct {
	dir    string
	logger *zap.Logger

	mu    sync.Mutex
	files []*os.File
	wg    sync.WaitGroup
}

// NewEvdevSource creates an evdev source over the devices in dir.
func NewEvdevSource(dir string, logger *zap.Logger) *EvdevSource {
	return &EvdevSource{dir: dir, logger: logger}
}

// Name identifies the source.
func (s *EvdevSource) Name() string { return "evdev" }

// Start opens every readable event device and reads each on its own goroutine.
func (s *EvdevSource) Start(events chan<- domain.InputEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(s.dir, "event*"))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no input devices under %s: %w", s.dir, domain.ErrUnsupported)
	}

	var firstErr error
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			s.logger.Debug("skipping input device", zap.String("device", p), zap.Error(err))
			continue
		}
		s.files = append(s.files, f)
		s.wg.Add(1)
		go func(f *os.File, name string) {
			defer s.wg.Done()
			if err := readEvdev(f, name, events); err != nil && !errors.Is(err, os.ErrClosed) {
				s.logger.Debug("input device closed", zap.String("device", name), zap.Error(err))
			}
		}(f, filepath.Base(p))
	}

	if len(s.files) == 0 {
		if errors.Is(firstErr, fs.ErrPermission) {
			return fmt.Errorf("cannot read input devices under %s: %w", s.dir, domain.ErrPrivilegeRequired)
		}
		return fmt.Errorf("cannot read input devices under %s: %w", s.dir, firstErr)
	}

	s.logger.Info("reading input devices", zap.Int("devices", len(s.files)))
	return nil
}

// Stop closes the devices, which unblocks and ends every reader.
func (s *EvdevSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr error
	for _, f := range s.files {
		if err := f.Close(); err != nil {
			lastErr = err
		}
	}
	s.wg.Wait()
	s.files = nil
	return lastErr
}

// Ensure EvdevSource implements domain.InputSource.
var _ domain.InputSource = (*EvdevSource)(nil)
