package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrFmtHandlerAttachesStacktrace(t *testing.T) {
	var buf bytes.Buffer
	handler := WrapByErrFmtHandler(slog.NewJSONHandler(&buf, nil))
	logger := slog.New(handler)

	err := errors.WithStack(errors.New("boom"))
	logger.Error("operation failed", ErrAttr(err))

	out := buf.String()
	assert.Contains(t, out, `"error"`)
	assert.Contains(t, out, `"stacktrace"`)
}

func TestErrFmtHandlerPassesThroughPlainRecords(t *testing.T) {
	var buf bytes.Buffer
	handler := WrapByErrFmtHandler(slog.NewJSONHandler(&buf, nil))
	logger := slog.New(handler)

	logger.Info("no error here", slog.Int("rows", 3))

	out := buf.String()
	require.NotEmpty(t, out)
	assert.NotContains(t, out, StacktraceAttrKey)
}

func TestToLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ToLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ToLogLevel("warn"))
	assert.Panics(t, func() { ToLogLevel("loud") })
}
