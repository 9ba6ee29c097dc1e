package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const abTranscript = `[
  {"role": "user", "text": "don't use approach A, use approach B instead"},
  {"role": "assistant", "text": "ok, switching to B"}
]`

// testEnv isolates HOME so no real configuration is read.
func testEnv(t *testing.T) (dir, store string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir = t.TempDir()
	return dir, filepath.Join(dir, "learnings.md")
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTranscript(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "session.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRun_AppendsAndIsIdempotent(t *testing.T) {
	dir, store := testEnv(t)
	transcript := writeTranscript(t, dir, abTranscript)

	out, err := execute(t, "", "run", transcript, "--store", store, "--format", "json")
	require.NoError(t, err)

	var summary struct {
		NewCount int    `json:"new_count"`
		Message  string `json:"message"`
		Entries  []struct {
			Title      string `json:"title"`
			Confidence string `json:"confidence"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 1, summary.NewCount)
	require.Len(t, summary.Entries, 1)
	assert.Equal(t, "Use approach B instead of approach A", summary.Entries[0].Title)
	assert.Equal(t, "HIGH", summary.Entries[0].Confidence)

	data, err := os.ReadFile(store)
	require.NoError(t, err)
	assert.Contains(t, string(data), "## Correction: Use approach B instead of approach A")
	assert.Contains(t, string(data), "**Confidence:** HIGH")

	out, err = execute(t, "", "run", transcript, "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing new found")

	after, err := os.ReadFile(store)
	require.NoError(t, err)
	assert.Equal(t, data, after)
}

func TestRun_Stdin(t *testing.T) {
	_, store := testEnv(t)

	out, err := execute(t, abTranscript, "run", "-", "--store", store, "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# Session Reflection")
	assert.Contains(t, out, "- **HIGH** Correction: Use approach B instead of approach A")

	_, err = execute(t, abTranscript, "run", "-", "--store", store, "--input-format", "jsonl")
	assert.Error(t, err)
}

func TestRun_EmptyTranscript(t *testing.T) {
	dir, store := testEnv(t)
	transcript := writeTranscript(t, dir, "[]")

	out, err := execute(t, "", "run", transcript, "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing new found")

	_, err = os.Stat(store)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_CorruptStore(t *testing.T) {
	dir, store := testEnv(t)
	transcript := writeTranscript(t, dir, abTranscript)
	require.NoError(t, os.WriteFile(store, []byte("## Correction: Half written\n**Date:** 2026-10-16\n"), 0600))

	_, err := execute(t, "", "run", transcript, "--store", store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inspect the file manually")
}

func TestRun_MetricsTextfile(t *testing.T) {
	dir, store := testEnv(t)
	transcript := writeTranscript(t, dir, abTranscript)
	prom := filepath.Join(dir, "sessionlearn.prom")

	_, err := execute(t, "", "run", transcript, "--store", store, "--metrics-textfile", prom)
	require.NoError(t, err)

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), `sessionlearn_runs_total{result="completed"} 1`)
	assert.Contains(t, string(data), `sessionlearn_entries_appended_total{confidence="HIGH"} 1`)
}

func TestRun_InvalidArguments(t *testing.T) {
	dir, store := testEnv(t)
	transcript := writeTranscript(t, dir, abTranscript)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown output format", []string{"run", transcript, "--store", store, "--format", "yaml"}},
		{"unknown input format", []string{"run", transcript, "--store", store, "--input-format", "xml"}},
		{"missing transcript", []string{"run", filepath.Join(dir, "nope.json"), "--store", store}},
		{"no arguments", []string{"run"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestList(t *testing.T) {
	dir, store := testEnv(t)
	transcript := writeTranscript(t, dir, abTranscript)

	out, err := execute(t, "", "list", "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "No learnings found")

	_, err = execute(t, "", "run", transcript, "--store", store)
	require.NoError(t, err)

	out, err = execute(t, "", "list", "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "DATE")
	assert.Contains(t, out, "Use approach B instead of approach A")
	assert.Contains(t, out, "1 entry (1 correction)")

	out, err = execute(t, "", "list", "--store", store, "--category", "observation")
	require.NoError(t, err)
	assert.Contains(t, out, "No learnings found")

	out, err = execute(t, "", "list", "--store", store, "--format", "json")
	require.NoError(t, err)
	var listed listOutput
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed.Entries, 1)
	assert.Equal(t, 1, listed.Statistics.TotalEntries)

	_, err = execute(t, "", "list", "--store", store, "--category", "rumor")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"héllo wörld", 8, "héllo..."},
		{"hello", 2, "he"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.input, tt.maxLen), tt.input)
	}
}
