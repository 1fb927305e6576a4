package logger

import (
	"os"
	"testing"
)

func TestNewReturnsLogger(t *testing.T) {
	if l := New("test"); l == nil {
		t.Fatal("nil logger")
	}
}

func TestConsoleModeInDev(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatal("nil logger")
	}
	l.Infof("console mode %s", os.Getenv("APP_ENV"))
	l.Debugw("fields", map[string]any{"k": "v"})
}
