package sysutil

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLogLevel(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"  DeBuG  ", zerolog.DebugLevel},
		{"trace", zerolog.TraceLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"chatty", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		got := SetLogLevel(tc.in)
		if got != tc.want || zerolog.GlobalLevel() != tc.want {
			t.Fatalf("SetLogLevel(%q) = %v (global %v); want %v", tc.in, got, zerolog.GlobalLevel(), tc.want)
		}
	}
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "t", " yes ", "Y", "on"} {
		if !IsTruthy(v) {
			t.Fatalf("IsTruthy(%q) = false", v)
		}
	}
	for _, v := range []string{"", "0", "false", "no", "off", "n", "  ", "random"} {
		if IsTruthy(v) {
			t.Fatalf("IsTruthy(%q) = true", v)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty(); got != "" {
		t.Fatalf("no args = %q", got)
	}
	if got := FirstNonEmpty(" ", "\t"); got != "" {
		t.Fatalf("blanks = %q", got)
	}
	if got := FirstNonEmpty("   ", "  v1.4.0  ", "v2"); got != "v1.4.0" {
		t.Fatalf("got %q; want v1.4.0", got)
	}
}

func TestVersion(t *testing.T) {
	t.Setenv("APP_VERSION", "2025.06.1")
	if got := Version("v1.0.0"); got != "2025.06.1" {
		t.Fatalf("env must win, got %q", got)
	}
	t.Setenv("APP_VERSION", "")
	if got := Version("v1.0.0"); got != "v1.0.0" {
		t.Fatalf("linked version ignored, got %q", got)
	}
	// Test binaries may or may not carry VCS info; either way the result
	// is never the empty string.
	if got := Version("dev"); got == "" {
		t.Fatalf("Version(dev) empty")
	}
}
