package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/raywall/psn-session-emulator/pkg/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure(t *testing.T) {
	t.Run("Default Level Info", func(t *testing.T) {
		_, closer, err := Configure(config.LogConf{Console: true})
		require.NoError(t, err)
		defer closer.Close()

		assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	})

	t.Run("Custom Level Debug", func(t *testing.T) {
		_, closer, err := Configure(config.LogConf{Console: true, Level: "DEBUG"})
		require.NoError(t, err)
		defer closer.Close()

		assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	})

	t.Run("Arquivo de log", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "emu.log")
		logger, closer, err := Configure(config.LogConf{File: path, Level: "info"})
		require.NoError(t, err)

		logger.Info().Str("sessionId", "1").Msg("sessão criada")
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"sessionId":"1"`)
	})

	t.Run("Arquivo inválido", func(t *testing.T) {
		_, _, err := Configure(config.LogConf{File: filepath.Join(t.TempDir(), "nao", "existe", "x.log")})
		assert.Error(t, err)
	})

	t.Run("Disabled Logger", func(t *testing.T) {
		logger, closer, err := Configure(config.LogConf{})
		require.NoError(t, err)
		defer closer.Close()
		// Sem console nem arquivo, a saída vai para io.Discard
		logger.Info().Msg("teste")
	})

	zerolog.SetGlobalLevel(zerolog.TraceLevel)
}
