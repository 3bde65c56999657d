package config

import "time"

// EmulatorConfig é a configuração do processo. As mesmas chaves valem para o
// arquivo linha-a-linha (key=value), para o YAML e, via tag env, para o ambiente.
type EmulatorConfig struct {
	Port int `yaml:"port" env:"PSNEMU_PORT" validate:"gte=1,lte=65535"`
	// ReportInterval em segundos; 0 desabilita o relatório de contadores.
	ReportInterval int `yaml:"reportinterval" env:"PSNEMU_REPORT_INTERVAL" validate:"gte=0"`
	// FakeAuthExpiry injeta um 401 de token expirado a cada N operações (0 desabilita).
	FakeAuthExpiry int `yaml:"fakeauthexpiry" env:"PSNEMU_FAKE_AUTH_EXPIRY" validate:"gte=0"`
	// FakeRateLimit é lido mas o 429 ainda não é emulado.
	FakeRateLimit int `yaml:"fakeratelimit" env:"PSNEMU_FAKE_RATE_LIMIT" validate:"gte=0"`
	// HTTP409MatchMs é a janela mínima entre chamadas à mesma partida antes do 409 simulado.
	HTTP409MatchMs int `yaml:"http409matchms" env:"PSNEMU_HTTP409_MATCH_MS" validate:"gte=0"`

	CORS       bool   `yaml:"cors" env:"PSNEMU_CORS"`
	StubRoutes string `yaml:"stubroutes" env:"PSNEMU_STUB_ROUTES"`

	Logging LogConf     `yaml:",inline"`
	Metrics MetricsConf `yaml:",inline"`

	Activities map[string]Activity `yaml:"activities" validate:"dive"`
}

type LogConf struct {
	File    string `yaml:"logfile" env:"PSNEMU_LOG_FILE"`
	Console bool   `yaml:"logconsole" env:"PSNEMU_LOG_CONSOLE"`
	// HTTP liga o log dos corpos de requisição/resposta no dispatcher.
	HTTP  bool   `yaml:"loghttp" env:"PSNEMU_LOG_HTTP"`
	Level string `yaml:"loglevel" env:"PSNEMU_LOG_LEVEL" validate:"omitempty,oneof=trace debug info warn error"`
	// Format "console" (legível) ou "json".
	Format string `yaml:"logformat" env:"PSNEMU_LOG_FORMAT" validate:"omitempty,oneof=json console"`
}

type MetricsConf struct {
	StatsdAddr string `yaml:"statsdaddr" env:"PSNEMU_STATSD_ADDR" validate:"omitempty,hostname_port"`
	Namespace  string `yaml:"statsdnamespace" env:"PSNEMU_STATSD_NAMESPACE"`
}

// Activity descreve o template de uma partida configurado pelo operador.
type Activity struct {
	Category  string `json:"category" yaml:"category" validate:"omitempty,oneof=competitive cooperative"`
	IsTeam    bool   `json:"isteam" yaml:"isteam"`
	ScoreName string `json:"scorename" yaml:"scorename"`
}

// Defaults retorna a configuração usada quando nenhuma chave é informada.
func Defaults() EmulatorConfig {
	return EmulatorConfig{
		Port:           8080,
		ReportInterval: 60,
		Logging: LogConf{
			Console: true,
			Level:   "info",
			Format:  "console",
		},
		Activities: map[string]Activity{},
	}
}

func (c EmulatorConfig) GetReportInterval() time.Duration {
	return time.Duration(c.ReportInterval) * time.Second
}

func (c EmulatorConfig) GetMatchConflictWindow() time.Duration {
	return time.Duration(c.HTTP409MatchMs) * time.Millisecond
}
