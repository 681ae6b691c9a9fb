package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/logger"
	"go.trai.ch/zerr"
)

// newTestLogger returns a logger writing plain text into a buffer.
func newTestLogger(t *testing.T) (*logger.Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	lg := logger.New()
	lg.SetOutput(buf)
	return lg, buf
}

func TestLogger_Levels(t *testing.T) {
	lg, buf := newTestLogger(t)

	lg.Info("serving build on http://localhost:3000")
	lg.Warn("no files matched images/icons/*.svg")

	assert.Equal(t,
		"serving build on http://localhost:3000\n! no files matched images/icons/*.svg\n",
		buf.String())
}

func TestLogger_Quiet(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.SetQuiet(true)

	lg.Info("hidden")
	lg.Warn("shown")

	assert.Equal(t, "! shown\n", buf.String())
}

func TestLogger_ErrorChain(t *testing.T) {
	lg, buf := newTestLogger(t)

	err := zerr.Wrap(errors.New("exit status 65"), "failed to compile stylesheet")
	lg.Error(err)

	want := "✗ Error: failed to compile stylesheet\n" +
		"\n" +
		"  Caused by:\n" +
		"    → exit status 65\n"
	assert.Equal(t, want, buf.String())
}

func TestLogger_ErrorNil(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.Error(nil)
	assert.Empty(t, buf.String())
}

func TestLogger_JSON(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.SetJSON(true)

	lg.Error(errors.New("boom"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "operation failed", record["msg"])
	assert.Equal(t, "boom", record["error"])
}

func TestCollectErrorEntries_Joined(t *testing.T) {
	err := errors.Join(errors.New("styles failed"), errors.New("scripts failed"))
	assert.Equal(t, []string{"styles failed", "scripts failed"}, logger.CollectErrorEntries(err))
}

func TestFormatErrorEntries_Multiline(t *testing.T) {
	got := logger.FormatErrorEntries([]string{"first\nsecond", "cause\nmore"})
	want := "Error: first\n" +
		"       second\n" +
		"\n" +
		"  Caused by:\n" +
		"    → cause\n" +
		"      more"
	assert.Equal(t, want, got)
}
