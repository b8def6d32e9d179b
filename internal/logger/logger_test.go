package logger

import "testing"

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", "PRODUCTION", ""} {
		t.Run(mode, func(t *testing.T) {
			l, err := New(mode)
			if err != nil {
				t.Fatalf("New(%q): %v", mode, err)
			}
			l.With("component", "test").Debug("hello", "n", 1)
		})
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	l := NewNop()
	if OrNop(l) != l {
		t.Error("OrNop should return the given logger")
	}
}
