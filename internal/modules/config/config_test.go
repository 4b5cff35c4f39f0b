package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "configs"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "configs", "values_test.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("CONFIG_FILE", "values_test.yaml")
}

// Длительности доставки конфигурируются из yaml целыми секундами.
func TestDurationsFromYAMLSeconds(t *testing.T) {
	writeConfig(t, "cooldown_seconds: 45\nsub_recheck_seconds: 7200\nsend_timeout_seconds: 3\n")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.CooldownWindow != 45*time.Second {
		t.Fatalf("cooldown %v, want 45s", cfg.CooldownWindow)
	}
	if cfg.SubRecheck != 2*time.Hour {
		t.Fatalf("sub recheck %v, want 2h", cfg.SubRecheck)
	}
	if cfg.SendTimeout != 3*time.Second {
		t.Fatalf("send timeout %v, want 3s", cfg.SendTimeout)
	}
}

// Без yaml-ключей работает env-канал с duration-форматом.
func TestDurationsEnvFallback(t *testing.T) {
	writeConfig(t, "pairs:\n  - EUR/USD\n")
	t.Setenv("COOLDOWN_WINDOW", "90s")
	t.Setenv("SUB_RECHECK", "30m")
	t.Setenv("SEND_TIMEOUT", "5s")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.CooldownWindow != 90*time.Second {
		t.Fatalf("cooldown %v, want 90s", cfg.CooldownWindow)
	}
	if cfg.SubRecheck != 30*time.Minute {
		t.Fatalf("sub recheck %v, want 30m", cfg.SubRecheck)
	}
	if cfg.SendTimeout != 5*time.Second {
		t.Fatalf("send timeout %v, want 5s", cfg.SendTimeout)
	}
}

// yaml-секунды приоритетнее env-значений.
func TestYAMLSecondsWinOverEnv(t *testing.T) {
	writeConfig(t, "cooldown_seconds: 120\n")
	t.Setenv("COOLDOWN_WINDOW", "15s")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.CooldownWindow != 2*time.Minute {
		t.Fatalf("cooldown %v, want 2m", cfg.CooldownWindow)
	}
}

func TestAnalysisModeEffective(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want string
	}{
		{"strict", "strict"},
		{"majority", "majority"},
		{"foo", "strict"},
		{"", "strict"},
	} {
		c := &Config{AnalysisMode: tc.raw}
		if got := c.AnalysisModeEffective(); got != tc.want {
			t.Fatalf("mode %q normalized to %q, want %q", tc.raw, got, tc.want)
		}
	}
}
