package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"case-reasons-training/internal/config"
	"case-reasons-training/internal/infra/memory"
	"case-reasons-training/internal/infra/sqlite"
	"case-reasons-training/internal/narrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/bcrypt"
)

func TestHashSecretCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"hash-secret", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "letmein"})
	require.NoError(t, cmd.Execute())

	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("letmein")))
}

func TestBuildLeaderboardBackends(t *testing.T) {
	ctx := context.Background()

	var cfg config.Config
	cfg.Leaderboard.Backend = "memory"
	board, closeBoard, err := buildLeaderboard(ctx, cfg, nil)
	require.NoError(t, err)
	defer closeBoard()
	assert.IsType(t, &memory.LeaderboardStore{}, board)

	cfg.Leaderboard.Backend = "sqlite"
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "board.db")
	board, closeSQLite, err := buildLeaderboard(ctx, cfg, nil)
	require.NoError(t, err)
	defer closeSQLite()
	assert.IsType(t, &sqlite.LeaderboardStore{}, board)

	cfg.Leaderboard.Backend = "redis"
	_, _, err = buildLeaderboard(ctx, cfg, nil)
	assert.ErrorContains(t, err, "redis.addr")

	cfg.Leaderboard.Backend = "sheets"
	_, _, err = buildLeaderboard(ctx, cfg, nil)
	assert.ErrorContains(t, err, "sheet_id")

	cfg.Leaderboard.Backend = "carrier-pigeon"
	_, _, err = buildLeaderboard(ctx, cfg, nil)
	assert.Error(t, err)
}

func TestBuildNarratorWithoutProvider(t *testing.T) {
	var cfg config.Config
	cfg.LLM.Provider = "none"
	n := buildNarrator(context.Background(), cfg, nil)

	text, err := n.Narrate(context.Background(), "Charged twice")
	require.NoError(t, err)
	assert.Equal(t, narrator.FallbackText("Charged twice"), text)
}

func TestBuildNarratorWithMockProvider(t *testing.T) {
	var cfg config.Config
	cfg.LLM.Provider = "mock"
	n := buildNarrator(context.Background(), cfg, nil)

	// The mock has no canned replies, so the fallback text is served.
	text, err := n.Narrate(context.Background(), "Charged twice")
	require.NoError(t, err)
	assert.Equal(t, narrator.FallbackText("Charged twice"), text)
}

func TestBuildLoggerReadsConfig(t *testing.T) {
	path := writeConfig(t, "log:\n  level: warn\n")

	l, err := buildLogger(path, false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = buildLogger(path, true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = buildLogger(writeConfig(t, "log:\n  level: loud\n"), false)
	assert.Error(t, err)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
