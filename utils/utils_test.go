package utils

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mdobak/go-xerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("UTILS_TEST_STRING", "  value ")
	t.Setenv("UTILS_TEST_BLANK", "   ")
	t.Setenv("UTILS_TEST_BOOL", "Yes")
	t.Setenv("UTILS_TEST_BAD_BOOL", "maybe")
	t.Setenv("UTILS_TEST_INT", "4096")
	t.Setenv("UTILS_TEST_FLOAT", "0.025")

	assert.Equal(t, "value", GetEnv("UTILS_TEST_STRING", "x"))
	assert.Equal(t, "x", GetEnv("UTILS_TEST_BLANK", "x"))
	assert.Equal(t, "x", GetEnv("UTILS_TEST_UNSET", "x"))

	assert.True(t, GetEnvBool("UTILS_TEST_BOOL", false))
	assert.True(t, GetEnvBool("UTILS_TEST_BAD_BOOL", true))
	assert.False(t, GetEnvBool("UTILS_TEST_UNSET", false))

	assert.Equal(t, int64(4096), GetEnvInt64("UTILS_TEST_INT", 1))
	assert.Equal(t, int64(1), GetEnvInt64("UTILS_TEST_FLOAT", 1))
	assert.InDelta(t, 0.025, GetEnvFloat("UTILS_TEST_FLOAT", 1), 1e-12)
	assert.InDelta(t, 1.5, GetEnvFloat("UTILS_TEST_UNSET", 1.5), 1e-12)
}

func TestCreateFolder(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, CreateFolder(dir))
	require.NoError(t, CreateFolder(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestErrorsCarryStackTrace(t *testing.T) {
	t.Parallel()

	attr := replaceAttr(nil, slog.Any("error", xerrors.New(errors.New("boom"))))
	group := attr.Value.Group()
	require.Len(t, group, 2)
	assert.Equal(t, "msg", group[0].Key)
	assert.Contains(t, group[0].Value.String(), "boom")
	assert.Equal(t, "trace", group[1].Key)

	plain := replaceAttr(nil, slog.Any("error", errors.New("plain")))
	assert.Len(t, plain.Value.Group(), 1)

	untouched := replaceAttr(nil, slog.Int("n", 3))
	assert.Equal(t, int64(3), untouched.Value.Int64())
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("loud"))
}
