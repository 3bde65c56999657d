package metrics

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Reporter publica periodicamente o snapshot dos contadores no log e no Provider.
type Reporter struct {
	counters *Counters
	provider Provider
	interval time.Duration
	log      zerolog.Logger
	tags     []string
}

func NewReporter(counters *Counters, provider Provider, interval time.Duration, log zerolog.Logger, tags ...string) *Reporter {
	return &Reporter{counters: counters, provider: provider, interval: interval, log: log, tags: tags}
}

// Run bloqueia até ctx ser cancelado. Intervalo <= 0 desabilita o relatório.
func (r *Reporter) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.log.Info().Msg("relatório periódico de contadores desabilitado")
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Report()
			return
		case <-ticker.C:
			r.Report()
		}
	}
}

// Report envia um snapshot imediatamente.
func (r *Reporter) Report() {
	snap := r.counters.Snapshot()

	ev := r.log.Info()
	for name, v := range snap {
		ev = ev.Int64(name, v)
		if err := r.provider.Gauge(name, float64(v), r.tags); err != nil {
			r.log.Warn().Err(err).Str("metric", name).Msg("falha ao enviar métrica")
		}
	}
	ev.Msg("contadores do emulador")
}
