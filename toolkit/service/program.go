// toolkit/service/program.go
package service

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/dalemusser/mild/app"
	"github.com/kardianos/service"
)

// Actions are the service-manager commands Control accepts.
var Actions = service.ControlAction[:]

// Program adapts app.Run to the OS service manager (systemd, launchd,
// Windows SCM). C and D are the app's config and backend types.
type Program[C any, D any] struct {
	Hooks app.Hooks[C, D]

	// StopTimeout bounds how long Stop waits for Run to return.
	StopTimeout time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error

	// exit ends the process when Run fails without being stopped. nil means os.Exit.
	exit func(code int)
}

// Start launches app.Run in the background and returns immediately, as the
// service manager requires. If Run fails before Stop is called, the error is
// logged to the service logger and the process exits with status 1 so the
// manager sees the failure and applies its restart policy.
func (p *Program[C, D]) Start(s service.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go func(done chan struct{}) {
		err := app.Run(ctx, p.Hooks)
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		close(done)

		if err != nil && ctx.Err() == nil {
			p.fail(s, err)
		}
	}(p.done)
	return nil
}

func (p *Program[C, D]) fail(s service.Service, err error) {
	if s != nil {
		if l, lerr := s.Logger(nil); lerr == nil {
			_ = l.Error(fmt.Sprintf("%s: startup failed: %v", p.Hooks.Name, err))
		}
	}
	exit := p.exit
	if exit == nil {
		exit = os.Exit
	}
	exit(1)
}

// Stop cancels the run and waits for graceful shutdown.
func (p *Program[C, D]) Stop(service.Service) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	timeout := p.StopTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	select {
	case <-done:
		return p.Err()
	case <-time.After(timeout):
		return fmt.Errorf("service: did not stop within %s", timeout)
	}
}

// Err returns the error app.Run finished with, if it has finished.
func (p *Program[C, D]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// New wraps p for the service manager. args are passed to the service
// process when the manager starts it.
func New[C any, D any](p *Program[C, D], name, description string, args []string) (service.Service, error) {
	return service.New(p, &service.Config{
		Name:        name,
		DisplayName: name,
		Description: description,
		Arguments:   args,
	})
}

// Control runs install, uninstall, start, stop or restart against s.
func Control(s service.Service, action string) error {
	if !slices.Contains(Actions, action) {
		return fmt.Errorf("service: unknown action %q (want one of %v)", action, Actions)
	}
	return service.Control(s, action)
}

// Interactive reports whether the process was started from a terminal
// rather than by the service manager.
func Interactive() bool {
	return service.Interactive()
}
