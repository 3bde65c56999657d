package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile_LineFormat(t *testing.T) {
	path := writeTemp(t, "emulator.conf", `
# intervalo de relatório
reportinterval = 30
fakeauthexpiry=10
http409matchms = 250
LogConsole = false
loghttp = true
logfile = "/tmp/psnemu.log"
activities = {"act-team":{"category":"competitive","isteam":true,"scorename":"points"},"act-coop":{"category":"cooperative"}}
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port, "porta padrão mantida")
	assert.Equal(t, 30, cfg.ReportInterval)
	assert.Equal(t, 10, cfg.FakeAuthExpiry)
	assert.Equal(t, 250, cfg.HTTP409MatchMs)
	assert.False(t, cfg.Logging.Console)
	assert.True(t, cfg.Logging.HTTP)
	assert.Equal(t, "/tmp/psnemu.log", cfg.Logging.File)
	require.Len(t, cfg.Activities, 2)
	assert.True(t, cfg.Activities["act-team"].IsTeam)
	assert.Equal(t, "points", cfg.Activities["act-team"].ScoreName)
	assert.Equal(t, "cooperative", cfg.Activities["act-coop"].Category)
	assert.Equal(t, int64(250), cfg.GetMatchConflictWindow().Milliseconds())
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeTemp(t, "emulator.yaml", `
port: 9090
loglevel: debug
statsdaddr: 127.0.0.1:8125
activities:
  act1:
    category: competitive
    isteam: false
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "127.0.0.1:8125", cfg.Metrics.StatsdAddr)
	assert.Equal(t, "competitive", cfg.Activities["act1"].Category)
}

func TestLoadFile_Errors(t *testing.T) {
	t.Run("Arquivo inexistente", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nao-existe.conf"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Chave desconhecida", func(t *testing.T) {
		_, err := LoadFile(writeTemp(t, "a.conf", "bogus=1\n"))
		var le *LineError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, 1, le.Line)
		assert.Equal(t, "bogus", le.Key)
	})

	t.Run("Linha sem igual", func(t *testing.T) {
		_, err := LoadFile(writeTemp(t, "b.conf", "port\n"))
		assert.Error(t, err)
	})

	t.Run("Inteiro inválido", func(t *testing.T) {
		_, err := LoadFile(writeTemp(t, "c.conf", "port=abc\n"))
		assert.Error(t, err)
	})

	t.Run("Falha de validação estrutural", func(t *testing.T) {
		_, err := LoadFile(writeTemp(t, "d.conf", "port=70000\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Port")
	})

	t.Run("Categoria de atividade inválida", func(t *testing.T) {
		_, err := LoadFile(writeTemp(t, "e.conf", `activities={"a":{"category":"versus"}}`+"\n"))
		assert.Error(t, err)
	})

	t.Run("Validação semântica", func(t *testing.T) {
		_, err := LoadFile(writeTemp(t, "f.conf", `activities={"a":{"category":"cooperative","scorename":"x"}}`+"\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "semântica")
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PSNEMU_PORT", "7000")
	t.Setenv("PSNEMU_LOG_HTTP", "TRUE")
	t.Setenv("PSNEMU_STATSD_NAMESPACE", "psnemu.")

	cfg := Defaults()
	require.NoError(t, ApplyEnv(&cfg))
	assert.Equal(t, 7000, cfg.Port)
	assert.True(t, cfg.Logging.HTTP)
	assert.Equal(t, "psnemu.", cfg.Metrics.Namespace)

	t.Setenv("PSNEMU_REPORT_INTERVAL", "x")
	err := ApplyEnv(&cfg)
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "PSNEMU_REPORT_INTERVAL", fe.EnvVar)
}

func TestParseActivities(t *testing.T) {
	acts, err := ParseActivities("")
	require.NoError(t, err)
	assert.Empty(t, acts)

	_, err = ParseActivities("{not json")
	assert.Error(t, err)
}
