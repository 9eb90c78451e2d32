package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/smartsearch"
	"github.com/kailas-cloud/smartsearch/internal/config"
)

const mockConfig = `
client:
  transport: mock
  admin: true
  page_size: 2
telemetry:
  store: memory
mock:
  latency_ms: 0
  stream_delay_ms: 0
logging:
  level: error
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smartsearch.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// run executes the CLI with fresh flag state and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	jsonOutput = false
	configPath = ""
	envName = ""
	searchImage = ""
	searchInstead = false
	productsFilter = ""
	productsPage = 1
	productInput = smartsearch.ProductInput{}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion_JSON(t *testing.T) {
	out, err := run(t, "version", "--json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got["version"] == "" || got["commit"] == "" {
		t.Errorf("unexpected version output: %v", got)
	}
}

func TestSearch_CorrectedThenInstead(t *testing.T) {
	cfg := writeConfig(t, mockConfig)

	out, err := run(t, "search", "lether jacket", "--json", "--config", cfg, "--env", "local")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var snap snapshotView
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if snap.Phase != "ready" || snap.CorrectedText != "leather jacket" || len(snap.Products) == 0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	out, err = run(t, "search", "lether jacket", "--instead", "--json", "--config", cfg, "--env", "local")
	if err != nil {
		t.Fatalf("search --instead: %v", err)
	}
	snap = snapshotView{}
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if snap.RawText != "lether jacket" || snap.CorrectedText == "leather jacket" {
		t.Errorf("expected an uncorrected search, got %+v", snap)
	}
}

func TestSearch_PlainOutput(t *testing.T) {
	cfg := writeConfig(t, mockConfig)

	out, err := run(t, "search", "lether jacket", "--config", cfg, "--env", "local")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "Vintage Leather Jacket") || !strings.Contains(out, "--instead") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestSearch_ValidationError(t *testing.T) {
	cfg := writeConfig(t, mockConfig)

	_, err := run(t, "search", "   ", "--config", cfg, "--env", "local")
	if err == nil || !strings.Contains(err.Error(), "Please enter a search query") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVote_RejectsUnknownValue(t *testing.T) {
	_, err := run(t, "vote", "s1", "p1", "meh")
	if err == nil || !strings.Contains(err.Error(), "like or dislike") {
		t.Fatalf("expected vote value error, got %v", err)
	}
}

func TestProductsList_Paged(t *testing.T) {
	cfg := writeConfig(t, mockConfig)

	out, err := run(t, "products", "list", "--page", "2", "--json", "--config", cfg, "--env", "local")
	if err != nil {
		t.Fatalf("products list: %v", err)
	}
	var page smartsearch.ProductPage
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if page.Page != 2 || page.TotalPages != 2 || len(page.Items) != 2 {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestProductsCreate_Validation(t *testing.T) {
	cfg := writeConfig(t, mockConfig)

	_, err := run(t, "products", "create", "--brand", "Acme", "--category", "1", "--config", cfg, "--env", "local")
	if err == nil || !strings.Contains(err.Error(), "name") {
		t.Fatalf("expected name validation error, got %v", err)
	}
}

func TestProductsCreate_GuestDenied(t *testing.T) {
	cfg := writeConfig(t, strings.Replace(mockConfig, "admin: true", "admin: false", 1))

	_, err := run(t, "products", "create", "--name", "Lamp", "--brand", "Acme", "--category", "2",
		"--config", cfg, "--env", "local")
	if err == nil {
		t.Fatal("expected admin access error")
	}
}

func TestHealth_JSON(t *testing.T) {
	cfg := writeConfig(t, mockConfig)

	out, err := run(t, "health", "--json", "--config", cfg, "--env", "local")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	var got struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Status != "ok" || got.Checks["backend"] != "ok" {
		t.Errorf("unexpected health: %+v", got)
	}
}

func TestGallery_StreamsAllImages(t *testing.T) {
	cfg := writeConfig(t, mockConfig)

	out, err := run(t, "gallery", "--config", cfg, "--env", "local")
	if err != nil {
		t.Fatalf("gallery: %v", err)
	}
	if !strings.Contains(out, "4 images") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestClientOptions(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{name: "http", mutate: func(c *config.Config) {
			c.Client.Transport = "http"
			c.Client.BaseURL = "http://localhost:8080"
		}},
		{name: "mock with openai corrector", mutate: func(c *config.Config) {
			c.Correction.Provider = "openai"
			c.Correction.APIKey = "sk-test"
		}},
		{name: "file markers", mutate: func(c *config.Config) {
			c.Telemetry.Store = "file"
			c.Telemetry.Path = filepath.Join(t.TempDir(), "markers.yaml")
		}},
		{name: "redis markers without addrs", mutate: func(c *config.Config) {
			c.Telemetry.Store = "redis"
		}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Config{Client: config.ClientConfig{Transport: "mock"}}
			cfg.ApplyDefaults()
			tt.mutate(&cfg)

			opts, err := clientOptions(cfg, zap.NewNop())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("clientOptions: %v", err)
			}
			c, err := smartsearch.New(t.Context(), opts...)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			c.Close()
		})
	}
}

func TestMockCorrector_None(t *testing.T) {
	corr := mockCorrector(config.CorrectionConfig{Provider: "none"}, zap.NewNop())
	got, err := corr.Correct(t.Context(), "lether")
	if err != nil || got.Text != "lether" {
		t.Fatalf("expected passthrough, got %+v, %v", got, err)
	}
	if mockCorrector(config.CorrectionConfig{Provider: "vocabulary"}, zap.NewNop()) != nil {
		t.Error("vocabulary must use the demo backend's own corrector")
	}
}
