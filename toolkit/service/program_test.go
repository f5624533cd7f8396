package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/mild/app"
	"github.com/dalemusser/mild/config"
	"go.uber.org/zap"
)

func failingHooks() app.Hooks[struct{}, struct{}] {
	return app.Hooks[struct{}, struct{}]{
		Name: "test",
		LoadConfig: func(*zap.Logger) (*config.CoreConfig, struct{}, error) {
			return nil, struct{}{}, errors.New("no config")
		},
		ConnectDB: func(context.Context, *config.CoreConfig, struct{}, *zap.Logger) (struct{}, error) {
			return struct{}{}, nil
		},
		BuildHandler: func(*config.CoreConfig, struct{}, struct{}, *zap.Logger) (http.Handler, error) {
			return http.NotFoundHandler(), nil
		},
	}
}

func TestProgram_StartStop(t *testing.T) {
	p := &Program[struct{}, struct{}]{Hooks: failingHooks(), StopTimeout: 5 * time.Second}
	p.exit = func(int) {}
	if err := p.Start(nil); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	err := p.Stop(nil)
	if err == nil || !strings.Contains(err.Error(), "no config") {
		t.Errorf("Stop() = %v, want the run error", err)
	}
}

func TestProgram_StartupFailureExits(t *testing.T) {
	hooks := failingHooks()
	hooks.LoadConfig = func(*zap.Logger) (*config.CoreConfig, struct{}, error) {
		return &config.CoreConfig{Env: "dev", LogLevel: "error"}, struct{}{}, nil
	}
	hooks.ConnectDB = func(context.Context, *config.CoreConfig, struct{}, *zap.Logger) (struct{}, error) {
		return struct{}{}, errors.New("registry: store unavailable")
	}

	codes := make(chan int, 1)
	p := &Program[struct{}, struct{}]{Hooks: hooks}
	p.exit = func(code int) { codes <- code }

	if err := p.Start(nil); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	select {
	case code := <-codes:
		if code != 1 {
			t.Errorf("exit code = %d, want 1", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("failed startup did not exit")
	}
	if err := p.Err(); err == nil || !strings.Contains(err.Error(), "store unavailable") {
		t.Errorf("Err() = %v", err)
	}
}

func TestProgram_StopBeforeStart(t *testing.T) {
	p := &Program[struct{}, struct{}]{}
	if err := p.Stop(nil); err != nil {
		t.Errorf("Stop() = %v", err)
	}
}

func TestControl_UnknownAction(t *testing.T) {
	if err := Control(nil, "explode"); err == nil {
		t.Error("expected error for unknown action")
	}
}
