package e2e

import (
	"os"
	"os/exec"
	"testing"
)

var fluidbcBin string

func TestMain(m *testing.M) {
	fluidbcBin = envOrLookPath("FLUIDBC_BIN", "fluidbc")
	os.Exit(m.Run())
}

func envOrLookPath(envVar, name string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return ""
}

func requireFluidbc(t *testing.T) {
	t.Helper()
	if fluidbcBin == "" {
		t.Skip("fluidbc binary not available (set FLUIDBC_BIN or add to PATH)")
	}
}
