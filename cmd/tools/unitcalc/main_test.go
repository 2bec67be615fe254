package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunPrice(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-base-qty", "1", "-base-unit", "kg", "-base-price", "42", "-value", "50", "-unit", "g"}, &stdout, &stderr)
	require.Equal(t, exitOK, code)
	require.Equal(t, "50 g ka daam: ₹ 2.1\nBase: 1 kg = ₹ 42. (₹ 0.042 per g)\n", stdout.String())
}

func TestRunPreset(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-preset", "example2", "-format", "html"}, &stdout, &stderr)
	require.Equal(t, exitOK, code)
	require.Equal(t, "<strong>₹ 20 mein aapko:</strong> <br> 48 piece (4 dozen)\n", stdout.String())
}

func TestRunCalculationError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-base-qty", "500", "-base-unit", "g", "-base-price", "30", "-value", "3", "-unit", "pcs"}, &stdout, &stderr)
	require.Equal(t, exitCalc, code)
	require.Contains(t, stdout.String(), "(weight vs count)")

	stdout.Reset()
	code = run([]string{"-base-qty", "abc", "-base-price", "30", "-value", "3"}, &stdout, &stderr)
	require.Equal(t, exitCalc, code)
	require.Equal(t, "Base quantity aur price sahi daalein.\n", stdout.String())
}

func TestRunUsageErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitUsage, run([]string{"-format", "pdf"}, &stdout, &stderr))
	require.Equal(t, exitUsage, run([]string{"-preset", "nope"}, &stdout, &stderr))
	require.Equal(t, exitUsage, run([]string{"-bogus"}, &stdout, &stderr))
}

func TestRunListPresets(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitOK, run([]string{"-list-presets"}, &stdout, &stderr))
	require.Contains(t, stdout.String(), "example1\t")
	require.Contains(t, stdout.String(), "example2\t")
}

func TestRunPresetsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	doc := "presets:\n  - id: rice\n    baseQuantity: 5\n    baseUnit: kg\n    basePrice: 320\n    desiredValue: 750\n    desiredUnit: g\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	var stdout, stderr bytes.Buffer
	require.Equal(t, exitOK, run([]string{"-presets-file", path, "-preset", "rice"}, &stdout, &stderr))
	require.Equal(t, "750 g ka daam: ₹ 48\nBase: 5 kg = ₹ 320. (₹ 0.064 per g)\n", stdout.String())

	stdout.Reset()
	require.Equal(t, exitOK, run([]string{"-presets-file", path, "-list-presets"}, &stdout, &stderr))
	require.Contains(t, stdout.String(), "rice\trice\n")

	require.Equal(t, exitUsage, run([]string{"-presets-file", filepath.Join(t.TempDir(), "missing.yaml")}, &stdout, &stderr))
}
