package app

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/dalemusser/mild/config"
	"go.uber.org/zap"
)

type fakeDB struct{ name string }

func testCore() *config.CoreConfig {
	return &config.CoreConfig{
		Env:              "dev",
		LogLevel:         "error",
		DBConnectTimeout: time.Second,
		IndexBootTimeout: time.Second,
		HTTP:             config.HTTPConfig{HTTPPort: 0, ShutdownTimeout: time.Second},
	}
}

// recordingHooks returns hooks that append each step to *calls. failAt names
// the step that returns an error.
func recordingHooks(calls *[]string, failAt string) Hooks[string, *fakeDB] {
	step := func(name string) error {
		*calls = append(*calls, name)
		if name == failAt {
			return errors.New(name + " failed")
		}
		return nil
	}
	return Hooks[string, *fakeDB]{
		Name: "test",
		LoadConfig: func(*zap.Logger) (*config.CoreConfig, string, error) {
			return testCore(), "app", step("load")
		},
		ConnectDB: func(ctx context.Context, _ *config.CoreConfig, _ string, _ *zap.Logger) (*fakeDB, error) {
			if _, ok := ctx.Deadline(); !ok {
				return nil, errors.New("connect ctx has no deadline")
			}
			return &fakeDB{name: "db"}, step("connect")
		},
		EnsureSchema: func(context.Context, *config.CoreConfig, string, *fakeDB, *zap.Logger) error {
			return step("ensure")
		},
		BuildHandler: func(*config.CoreConfig, string, *fakeDB, *zap.Logger) (http.Handler, error) {
			return http.NotFoundHandler(), step("handler")
		},
		Shutdown: func(_ context.Context, db *fakeDB, _ *zap.Logger) error {
			if db == nil {
				return errors.New("nil db")
			}
			return step("shutdown")
		},
	}
}

func TestRun_Order(t *testing.T) {
	var calls []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Run(ctx, recordingHooks(&calls, "")); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{"load", "connect", "ensure", "handler", "shutdown"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestRun_FailuresStillShutdown(t *testing.T) {
	tests := []struct {
		failAt string
		want   []string
	}{
		{"load", []string{"load"}},
		{"ensure", []string{"load", "connect", "ensure", "shutdown"}},
		{"handler", []string{"load", "connect", "ensure", "handler", "shutdown"}},
	}
	for _, tt := range tests {
		t.Run(tt.failAt, func(t *testing.T) {
			var calls []string
			err := Run(context.Background(), recordingHooks(&calls, tt.failAt))
			if err == nil {
				t.Fatal("expected error")
			}
			if !reflect.DeepEqual(calls, tt.want) {
				t.Errorf("calls = %v, want %v", calls, tt.want)
			}
		})
	}
}

func TestRun_MissingHooks(t *testing.T) {
	if err := Run(context.Background(), Hooks[string, *fakeDB]{}); err == nil {
		t.Error("expected error for empty hooks")
	}
}
