package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"plain error", errors.New("boom"), ExitFailure},
		{"exit error", NewExitError(ExitCommandError, "bad flag"), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("outer: %w", NewExitError(ExitSuccess, "ok")), ExitSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestWrapExitError(t *testing.T) {
	inner := errors.New("disk full")
	err := WrapExitError(ExitFailure, "save failed", inner)
	assert.Equal(t, "save failed: disk full", err.Error())
	assert.ErrorIs(t, err, inner)
}

func TestOutputFormatter_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}
	require.NoError(t, f.Success(DigestOutput{Digest: "sha256:abc", Entries: 2}))

	var resp struct {
		Status string       `json:"status"`
		Data   DigestOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Entries)
}

func TestOutputFormatter_TextUsesRenderer(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}
	require.NoError(t, f.Success(DigestOutput{Digest: "sha256:abc", Entries: 2}))
	assert.Equal(t, "sha256:abc (2 entries)\n", buf.String())
}

func TestOutputFormatter_Error(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}
	require.NoError(t, f.Error(ErrCodeNotFound, "no entry with id x", nil))
	assert.Equal(t, "Error [E002]: no entry with id x\n", buf.String())

	buf.Reset()
	f.Format = "json"
	require.NoError(t, f.Error(ErrCodeTransition, "bad", map[string]string{"status": "recycled"}))
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTransition, resp.Error.Code)
}

func TestEntryList_RenderText(t *testing.T) {
	var buf bytes.Buffer
	EntryList{}.RenderText(&buf)
	assert.Equal(t, "No entries.\n", buf.String())

	buf.Reset()
	EntryList{
		Entries: []EntryView{{ID: "entry-001", Day: "2025-03-14", Item: "Bottle", Material: "PET", Status: "recycled", ScanCount: 2, CarbonSavedKg: 0.1}},
		Total:   3,
	}.RenderText(&buf)
	out := buf.String()
	assert.Contains(t, out, "DAY")
	assert.Contains(t, out, "entry-001")
	assert.Contains(t, out, "(1 of 3 entries)")
}
