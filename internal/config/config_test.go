package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(raw), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/tmp/xdg-runtime")
	t.Setenv("SHELL", "/bin/zsh")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if !cfg.AllowRemoteControl {
		t.Fatal("AllowRemoteControl = false, want true")
	}
	if want := "unix:/tmp/xdg-runtime/kittyrc/kittyrc.sock"; cfg.ListenOn != want {
		t.Fatalf("ListenOn = %q, want %q", cfg.ListenOn, want)
	}
	if !reflect.DeepEqual(cfg.Shell, []string{"/bin/zsh"}) {
		t.Fatalf("Shell = %v, want [/bin/zsh]", cfg.Shell)
	}
	if cfg.PeerTimeout().Minutes() != 5 {
		t.Fatalf("PeerTimeout() = %s, want 5m", cfg.PeerTimeout())
	}
}

func TestLoadFromKeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeConfig(t, `
allow_remote_control = false
log_level = "debug"
`)
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.AllowRemoteControl {
		t.Fatal("AllowRemoteControl = true, want false")
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.AsyncPeerTimeout != "5m" {
		t.Fatalf("AsyncPeerTimeout = %q, want default 5m", cfg.AsyncPeerTimeout)
	}
}

func TestLoadFromExpandsEnvValuesAfterParsing(t *testing.T) {
	t.Setenv("KITTYRC_SOCK_DIR", "/run/user/1000")

	path := writeConfig(t, `
listen_on = "unix:${KITTYRC_SOCK_DIR}/rc.sock"
shell = ["${KITTYRC_UNSET_VAR}", "-l"]
`)
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if want := "unix:/run/user/1000/rc.sock"; cfg.ListenOn != want {
		t.Fatalf("ListenOn = %q, want %q", cfg.ListenOn, want)
	}
	if cfg.Shell[0] != "${KITTYRC_UNSET_VAR}" {
		t.Fatalf("Shell[0] = %q, want the placeholder kept", cfg.Shell[0])
	}
}

func TestLoadFromRejectsInvalidTOML(t *testing.T) {
	path := writeConfig(t, `listen_on = [`)
	if _, err := LoadFrom(path); err == nil || !strings.Contains(err.Error(), "parsing config") {
		t.Fatalf("LoadFrom() error = %v, want parse error", err)
	}
}

func TestParseClientEnv(t *testing.T) {
	c, err := ParseClientEnv(map[string]string{ListenOnEnvVar: "unix:@kitty"})
	if err != nil {
		t.Fatalf("ParseClientEnv() error = %v", err)
	}
	if c.ListenOn != "unix:@kitty" {
		t.Fatalf("ListenOn = %q, want unix:@kitty", c.ListenOn)
	}

	c, err = ParseClientEnv(map[string]string{})
	if err != nil || c.ListenOn != "" {
		t.Fatalf("ParseClientEnv(empty) = %+v, %v", c, err)
	}
}

func TestParseClientEnvFallsBackToProcessEnv(t *testing.T) {
	t.Setenv(ListenOnEnvVar, "tcp:localhost:9000")
	c, err := ParseClientEnv(nil)
	if err != nil {
		t.Fatalf("ParseClientEnv() error = %v", err)
	}
	if c.ListenOn != "tcp:localhost:9000" {
		t.Fatalf("ListenOn = %q", c.ListenOn)
	}
}
