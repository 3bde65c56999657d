package observability

import (
	"fmt"
	"strings"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/raywall/psn-session-emulator/pkg/config"
	"github.com/raywall/psn-session-emulator/pkg/metrics"
)

const (
	// DefaultNamespace prefixa as métricas quando statsdnamespace não é informado.
	DefaultNamespace = "psnemu."
	// ServiceTag acompanha toda métrica enviada pelo emulador.
	ServiceTag = "service:psn-emulator"
)

// Discard descarta as amostras quando não há statsd configurado.
type Discard struct{}

func (Discard) Count(string, float64, []string) error     { return nil }
func (Discard) Gauge(string, float64, []string) error     { return nil }
func (Discard) Histogram(string, float64, []string) error { return nil }

// Statsd envia os contadores do emulador para um agente DogStatsD.
type Statsd struct {
	client statsd.ClientInterface
}

func (s *Statsd) Count(name string, value float64, tags []string) error {
	return s.client.Count(name, int64(value), tags, 1)
}

func (s *Statsd) Gauge(name string, value float64, tags []string) error {
	return s.client.Gauge(name, value, tags, 1)
}

func (s *Statsd) Histogram(name string, value float64, tags []string) error {
	return s.client.Histogram(name, value, tags, 1)
}

// Close descarrega o buffer e fecha o socket.
func (s *Statsd) Close() error {
	return s.client.Close()
}

// namespace devolve o prefixo das métricas, sempre terminado em ponto.
func namespace(cfg config.MetricsConf) string {
	ns := strings.TrimSpace(cfg.Namespace)
	if ns == "" {
		return DefaultNamespace
	}
	if !strings.HasSuffix(ns, ".") {
		ns += "."
	}
	return ns
}

// SetupMetrics devolve Discard sem statsdaddr; com ele, um cliente statsd com o
// namespace do emulador e a ServiceTag global.
func SetupMetrics(cfg config.MetricsConf) (metrics.Provider, error) {
	if cfg.StatsdAddr == "" {
		return Discard{}, nil
	}

	client, err := statsd.New(cfg.StatsdAddr,
		statsd.WithNamespace(namespace(cfg)),
		statsd.WithTags([]string{ServiceTag}),
	)
	if err != nil {
		return nil, fmt.Errorf("statsd em %s: %w", cfg.StatsdAddr, err)
	}
	return &Statsd{client: client}, nil
}
