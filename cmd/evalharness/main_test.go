package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avatarctic/requirements-evaluator/internal/application/harness"
)

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	rep := &harness.Report{Model: "mock", Total: 1, Successful: 1}

	require.NoError(t, writeReport(path, rep))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "mock", decoded["model"])
	require.Equal(t, float64(1), decoded["total_samples"])
}

func TestWriteReport_UnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "results.json")

	err := writeReport(path, &harness.Report{})
	require.ErrorContains(t, err, "create report")
}
