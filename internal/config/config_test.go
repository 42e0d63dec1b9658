package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "effortui.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("base-url", "", "")
	fs.Int("page-size", 0, "")
	fs.Duration("http-timeout", 0, "")
	fs.String("addr", "", "")
	fs.Bool("pretty", false, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != DefaultBaseURL || cfg.PageSize != DefaultPageSize || cfg.HTTPTimeout != DefaultHTTPTimeout || cfg.SessionTTL != DefaultSessionTTL {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.File != "" {
		t.Fatalf("no config file expected, got %q", cfg.File)
	}
}

func TestLoad_Precedence(t *testing.T) {
	p := writeFile(t, strings.Join([]string{
		"base_url: http://file.example:8000",
		"page_size: 25",
		"http_timeout: 5s",
		"addr: 127.0.0.1:9000",
	}, "\n"))
	t.Setenv("EFFORTUI_PAGE_SIZE", "50")
	t.Setenv("EFFORTUI_ADDR", "127.0.0.1:9100")

	fs := testFlags()
	if err := fs.Parse([]string{"--addr", "127.0.0.1:9200", "--pretty"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(p, fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "http://file.example:8000" {
		t.Fatalf("base_url from file: %q", cfg.BaseURL)
	}
	if cfg.PageSize != 50 {
		t.Fatalf("page_size from env: %d", cfg.PageSize)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Fatalf("http_timeout from file: %v", cfg.HTTPTimeout)
	}
	if cfg.Addr != "127.0.0.1:9200" {
		t.Fatalf("addr from flag: %q", cfg.Addr)
	}
	if cfg.File != p {
		t.Fatalf("file = %q", cfg.File)
	}
}

func TestLoad_UnsetFlagsDoNotOverride(t *testing.T) {
	p := writeFile(t, "page_size: 30\n")
	fs := testFlags()
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := Load(p, fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PageSize != 30 {
		t.Fatalf("page_size = %d, want 30", cfg.PageSize)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bad base url", body: "base_url: ftp://x\n"},
		{name: "zero page size", body: "page_size: 0\n"},
		{name: "bad log format", body: "log_format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tt.body), nil); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}
