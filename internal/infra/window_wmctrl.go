package infra

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

const (
	wmctrlBinary  = "wmctrl"
	wmctrlTimeout = 2 * time.Second
)

// ParseWmctrl parses `wmctrl -lpG` output. Each line is
// "<id> <desktop> <pid> <x> <y> <w> <h> <host> <title...>".
// wmctrl only lists managed windows, so every entry is visible.
// Malformed lines are skipped and returned separately.
func ParseWmctrl(output string) (windows []domain.Window, malformed []string, err error) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		w, ok := parseWmctrlLine(line)
		if !ok {
			malformed = append(malformed, line)
			continue
		}
		windows = append(windows, w)
	}
	return windows, malformed, scanner.Err()
}

func parseWmctrlLine(line string) (domain.Window, bool) {
	fields := strings.Fields(line)
	if len(fields) < 8 {
		return domain.Window{}, false
	}

	nums := make([]int, 5)
	for i, f := range fields[2:7] {
		n, err := strconv.Atoi(f)
		if err != nil {
			return domain.Window{}, false
		}
		nums[i] = n
	}

	return domain.Window{
		PID:          nums[0],
		Title:        strings.Join(fields[8:], " "),
		Visible:      true,
		StyleVisible: true,
		Width:        nums[3],
		Height:       nums[4],
	}, true
}

// WmctrlWindowLister enumerates X11 top-level windows through wmctrl.
type WmctrlWindowLister struct {
	runner CommandRunner
	logger *zap.Logger
}

// NewWmctrlWindowLister creates a wmctrl-backed window lister.
func NewWmctrlWindowLister(runner CommandRunner, logger *zap.Logger) *WmctrlWindowLister {
	return &WmctrlWindowLister{runner: runner, logger: logger}
}

// Windows returns all managed windows.
func (l *WmctrlWindowLister) Windows() ([]domain.Window, error) {
	ctx, cancel := context.WithTimeout(context.Background(), wmctrlTimeout)
	defer cancel()

	out, err := l.runner.Output(ctx, wmctrlBinary, "-lpG")
	if err != nil {
		return nil, fmt.Errorf("failed to list windows: %w", err)
	}

	windows, malformed, err := ParseWmctrl(string(out))
	if err != nil {
		return nil, fmt.Errorf("failed to read wmctrl output: %w", err)
	}
	for _, line := range malformed {
		l.logger.Debug("skipping malformed wmctrl line", zap.String("line", line))
	}
	return windows, nil
}

// Ensure WmctrlWindowLister implements domain.WindowLister.
var _ domain.WindowLister = (*WmctrlWindowLister)(nil)
