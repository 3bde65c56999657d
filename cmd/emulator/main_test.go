package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emulator.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// captureServer substitui o starter e devolve o servidor montado por run.
func captureServer(t *testing.T) **http.Server {
	t.Helper()
	var captured *http.Server
	original := serverStarter
	serverStarter = func(ctx context.Context, srv *http.Server, lg zerolog.Logger) error {
		captured = srv
		return nil
	}
	t.Cleanup(func() { serverStarter = original })
	return &captured
}

func TestRun_Bootstrap(t *testing.T) {
	path := writeConfig(t, `
# emulador local
port=9191
logconsole=false
reportinterval=0
http409matchms=0
activities={"duel": {"category": "competitive", "scorename": "points"}}
`)
	srv := captureServer(t)

	require.NoError(t, run(context.Background(), path))
	require.NotNil(t, *srv, "o servidor HTTP não foi iniciado")
	assert.Equal(t, ":9191", (*srv).Addr)

	t.Run("Health responde", func(t *testing.T) {
		rr := httptest.NewRecorder()
		(*srv).Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Atividade configurada cria partida", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/matches", strings.NewReader(`{"activityId":"duel"}`))
		req.Header.Set("Authorization", "Bearer 1")
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		(*srv).Handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Contains(t, rr.Body.String(), "matchId")
	})
}

func TestRun_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PSNEMU_LOG_CONSOLE", "false")
	srv := captureServer(t)

	require.NoError(t, run(context.Background(), filepath.Join(t.TempDir(), "missing.conf")))
	require.NotNil(t, *srv)
	assert.Equal(t, ":8080", (*srv).Addr)
}

func TestRun_Errors(t *testing.T) {
	srv := captureServer(t)

	cases := map[string]string{
		"Chave desconhecida": "nope=1\n",
		"Porta inválida":     "port=0\nlogconsole=false\n",
		"Stubs inexistentes": "logconsole=false\nstubroutes=/nao/existe.json\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, run(context.Background(), writeConfig(t, content)))
		})
	}
	assert.Nil(t, *srv)
}

func TestConfigPath(t *testing.T) {
	t.Setenv("PSNEMU_CONFIG", "")
	assert.Equal(t, defaultConfigPath, configPath(""))

	t.Setenv("PSNEMU_CONFIG", "/etc/psn.conf")
	assert.Equal(t, "/etc/psn.conf", configPath(""))
	assert.Equal(t, "local.yaml", configPath("local.yaml"))
}

func TestStartServer_Shutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	assert.NoError(t, startServer(ctx, srv, zerolog.Nop()))
}
