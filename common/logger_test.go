package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetupLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpusensorfs.log")

	logger, err := SetupLogger(path, "warn", true)
	require.NoError(t, err)
	logger.Info("dropped")
	logger.Warnw("kept", "device", 3)
	require.NoError(t, logger.Sync())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(contents), "dropped")
	assert.Contains(t, string(contents), `"msg":"kept"`)
	assert.Contains(t, string(contents), `"device":3`)
}

func TestSetupLoggerBadFile(t *testing.T) {
	_, err := SetupLogger(filepath.Join(t.TempDir(), "missing", "x.log"), "info", true)
	assert.Error(t, err)
}

func TestReportError(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	previous := Logger
	Logger = zap.New(core).Sugar()
	defer func() { Logger = previous }()

	message := ReportError("Failed to read %s", os.ErrNotExist, "temperature")
	assert.Equal(t, "Failed to read temperature: file does not exist", message)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, message, logs.All()[0].Message)
}

func TestSetupLoggerLevels(t *testing.T) {
	for _, level := range LogLevels {
		_, err := SetupLogger("", level, true)
		assert.NoError(t, err, level)
	}
	_, err := SetupLogger("", "loud", true)
	assert.Error(t, err)
}
