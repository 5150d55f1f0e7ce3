package infra

import (
	"context"
	"strings"
	"sync"
)

type cmdCall struct {
	name string
	args []string
}

func (c cmdCall) String() string {
	return c.name + " " + strings.Join(c.args, " ")
}

// mockCommandRunner records calls and answers them with respond.
type mockCommandRunner struct {
	mu      sync.Mutex
	calls   []cmdCall
	respond func(name string, args []string) ([]byte, error)
}

func (m *mockCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, cmdCall{name: name, args: args})
	respond := m.respond
	m.mu.Unlock()

	if respond == nil {
		return nil, nil
	}
	return respond(name, args)
}

// callsWith counts calls whose first argument is arg.
func (m *mockCommandRunner) callsWith(arg string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if len(c.args) > 0 && c.args[0] == arg {
			n++
		}
	}
	return n
}

// fakePowercfg emulates powercfg's active scheme.
type fakePowercfg struct {
	mu        sync.Mutex
	active    string
	setErr    error
	ignoreSet bool // Accept /setactive without changing the scheme
}

func (f *fakePowercfg) respond(name string, args []string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch args[0] {
	case "/getactivescheme":
		return []byte("Power Scheme GUID: " + f.active + "  (Some Plan)\r\n"), nil
	case "/setactive":
		if f.setErr != nil {
			return nil, f.setErr
		}
		if !f.ignoreSet {
			f.active = args[1]
		}
		return nil, nil
	}
	return nil, nil
}
