package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "plots"), 0o755))

	assert.NoError(t, ValidatePathWithinDirectory(filepath.Join(dir, "plots", "strength.png"), dir))
	assert.NoError(t, ValidatePathWithinDirectory(filepath.Join(dir, "new", "deeper", "strength.png"), dir))
	assert.Error(t, ValidatePathWithinDirectory(filepath.Join(dir, "..", "strength.png"), dir))
	assert.Error(t, ValidatePathWithinDirectory("/etc/passwd", dir))
}

func TestValidatePathWithinDirectory_Symlink(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(dir, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	assert.Error(t, ValidatePathWithinDirectory(filepath.Join(link, "strength.png"), dir))
}

func TestValidateExportPath(t *testing.T) {
	assert.NoError(t, ValidateExportPath("strength.png"))
	assert.NoError(t, ValidateExportPath(filepath.Join(os.TempDir(), "strength.png")))
	assert.Error(t, ValidateExportPath("/proc/strength.png"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"AA:BB:CC:DD:EE:FF": "AA_BB_CC_DD_EE_FF",
		"../../etc/passwd":  "etc_passwd",
		"lab ssid!!":        "lab_ssid",
		"":                  "unknown",
		"...":               "unknown",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}
