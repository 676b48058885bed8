package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDir(t *testing.T) {
	home, _ := os.UserHomeDir()
	got := Dir("main")
	want := filepath.Join(home, ".courier", "sessions", "main")
	if got != want {
		t.Errorf("Dir(main) = %q, want %q", got, want)
	}
}

func TestDBPath(t *testing.T) {
	got := DBPath("test")
	if !strings.HasSuffix(got, filepath.Join("sessions", "test", "courier.db")) {
		t.Errorf("DBPath(test) = %q, want suffix sessions/test/courier.db", got)
	}
}

func TestLockPath(t *testing.T) {
	got := LockPath("test")
	if !strings.HasSuffix(got, filepath.Join("sessions", "test", "LOCK")) {
		t.Errorf("LockPath(test) = %q, want suffix sessions/test/LOCK", got)
	}
}

func TestMediaDir(t *testing.T) {
	got := MediaDir("test")
	if !strings.HasSuffix(got, filepath.Join("sessions", "test", "media")) {
		t.Errorf("MediaDir(test) = %q, want suffix sessions/test/media", got)
	}
}

func TestLogPath(t *testing.T) {
	got := LogPath("test")
	if !strings.HasSuffix(got, filepath.Join("sessions", "test", "logs", "courierd.log")) {
		t.Errorf("LogPath(test) = %q, want suffix sessions/test/logs/courierd.log", got)
	}
}

func TestConfigPath(t *testing.T) {
	got := ConfigPath()
	if !strings.HasSuffix(got, filepath.Join(".courier", "config.toml")) {
		t.Errorf("ConfigPath() = %q, want suffix .courier/config.toml", got)
	}
}
