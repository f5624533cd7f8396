package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dalemusser/mild/config"
	"github.com/dalemusser/mild/internal/app/catalog"
	"github.com/dalemusser/mild/internal/app/registry"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func TestParseClusterMap(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    map[catalog.DatabaseID]string
		wantErr string
	}{
		{
			name: "two databases",
			yaml: "clusters:\n  production: cluster0.example.net\n  Test: cluster1.example.net\n",
			want: map[catalog.DatabaseID]string{
				catalog.Production: "cluster0.example.net",
				catalog.Test:       "cluster1.example.net",
			},
		},
		{name: "empty file", yaml: "", want: map[catalog.DatabaseID]string{}},
		{name: "unknown database", yaml: "clusters:\n  staging: c\n", wantErr: `unknown database "staging"`},
		{name: "blank host", yaml: "clusters:\n  test: \"  \"\n", wantErr: "blank cluster"},
		{name: "unknown field", yaml: "cluster:\n  test: c\n", wantErr: "parse cluster map"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseClusterMap([]byte(tt.yaml), "clusters.yaml")
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for id, host := range tt.want {
				if got[id] != host {
					t.Errorf("%s = %q, want %q", id, got[id], host)
				}
			}
		})
	}
}

func TestLoadClusterMap_MissingFile(t *testing.T) {
	got, err := loadClusterMap(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil || len(got) != 0 {
		t.Errorf("got %v, %v; want empty map", got, err)
	}
}

func TestNewAppConfig(t *testing.T) {
	dir := t.TempDir()
	clusters := filepath.Join(dir, "clusters.yaml")
	if err := os.WriteFile(clusters, []byte("clusters:\n  test: cluster-test\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := newAppConfig(config.AppConfigValues{
		"mongo_username":      "alice",
		"mongo_password":      "s3cret",
		"mongo_cluster":       "cluster0",
		"mongo_databases":     []string{"production", "TEST", "production"},
		"mongo_clusters_file": clusters,
	})
	if err != nil {
		t.Fatalf("newAppConfig() error = %v", err)
	}

	if len(cfg.MongoDatabases) != 2 || cfg.MongoDatabases[0] != catalog.Production || cfg.MongoDatabases[1] != catalog.Test {
		t.Errorf("MongoDatabases = %v", cfg.MongoDatabases)
	}
	if got := cfg.ClusterFor(catalog.Production); got != "cluster0" {
		t.Errorf("production cluster = %q", got)
	}
	if got := cfg.ClusterFor(catalog.Test); got != "cluster-test" {
		t.Errorf("test cluster = %q", got)
	}
}

func TestNewAppConfig_Errors(t *testing.T) {
	base := func() config.AppConfigValues {
		return config.AppConfigValues{
			"mongo_username":  "alice",
			"mongo_password":  "s3cret",
			"mongo_cluster":   "cluster0",
			"mongo_databases": []string{"production"},
		}
	}
	tests := []struct {
		name   string
		mutate func(config.AppConfigValues)
		want   string
	}{
		{"unknown database", func(v config.AppConfigValues) { v["mongo_databases"] = []string{"staging"} }, `unknown database "staging"`},
		{"no databases", func(v config.AppConfigValues) { v["mongo_databases"] = []string{} }, "at least one"},
		{"no password", func(v config.AppConfigValues) { v["mongo_password"] = "" }, "MILD_MONGO_PASSWORD"},
		{"no cluster", func(v config.AppConfigValues) { v["mongo_cluster"] = " " }, "cluster for production"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := base()
			tt.mutate(v)
			_, err := newAppConfig(v)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MILD_MONGO_PASSWORD", "s3cret")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	core, appCfg, err := LoadConfig(nil, fs, []string{
		"--mongo_username=alice",
		"--mongo_cluster=cluster0",
		`--mongo_databases=["development","test"]`,
	})
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if core.HTTP.HTTPPort != 8080 {
		t.Errorf("http_port = %d", core.HTTP.HTTPPort)
	}
	if appCfg.MongoUsername != "alice" || appCfg.MongoPassword != "s3cret" {
		t.Errorf("credentials = %q/%q", appCfg.MongoUsername, appCfg.MongoPassword)
	}
	if len(appCfg.MongoDatabases) != 2 || appCfg.MongoDatabases[0] != catalog.Development {
		t.Errorf("MongoDatabases = %v", appCfg.MongoDatabases)
	}
	if appCfg.ServiceName != "mild" {
		t.Errorf("ServiceName = %q", appCfg.ServiceName)
	}
}

func TestBuildHandler(t *testing.T) {
	core := &config.CoreConfig{Env: "dev"}
	deps := DBDeps{Registry: registry.New(registry.Credentials{}, zap.NewNop())}

	h, err := BuildHandler(core, AppConfig{}, deps, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusOK},
		{"/ready", http.StatusOK},
		{"/version", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/mild/params/abc", http.StatusOK},
		{"/mild/params/", http.StatusBadRequest},
		{"/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mild/params/abc", nil))
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["id"] != "abc" {
		t.Errorf("body = %s (%v)", rec.Body.String(), err)
	}
}

func TestShutdown(t *testing.T) {
	if err := Shutdown(context.Background(), DBDeps{}, zap.NewNop()); err != nil {
		t.Errorf("Shutdown with no registry = %v", err)
	}
	deps := DBDeps{Registry: registry.New(registry.Credentials{}, nil)}
	if err := Shutdown(context.Background(), deps, zap.NewNop()); err != nil {
		t.Errorf("Shutdown = %v", err)
	}
	if _, err := deps.Registry.Register(context.Background(), catalog.Test, "c"); err == nil {
		t.Error("Register after Shutdown should fail")
	}
}

func TestBuildHandler_EnvRoutes(t *testing.T) {
	deps := DBDeps{Registry: registry.New(registry.Credentials{}, zap.NewNop())}

	dev, err := BuildHandler(&config.CoreConfig{Env: "dev"}, AppConfig{}, deps, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	prod, err := BuildHandler(&config.CoreConfig{Env: "prod"}, AppConfig{}, deps, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	noRegistry, err := BuildHandler(&config.CoreConfig{Env: "dev"}, AppConfig{}, DBDeps{}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		handler http.Handler
		path    string
		want    int
	}{
		{"databases listed", prod, "/databases", http.StatusOK},
		{"unregistered database", prod, "/databases/test", http.StatusNotFound},
		{"unknown database", prod, "/databases/staging", http.StatusNotFound},
		{"no registry", noRegistry, "/databases", http.StatusNotFound},
		{"pprof in dev", dev, "/debug/pprof/", http.StatusOK},
		{"no pprof in prod", prod, "/debug/pprof/", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
			}
		})
	}
}
