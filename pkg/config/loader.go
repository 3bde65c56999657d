package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile lê o arquivo de configuração, aplica as variáveis de ambiente e valida.
// Arquivos .yaml/.yml usam YAML; qualquer outra extensão usa o formato key=value.
func LoadFile(path string) (EmulatorConfig, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("erro ao ler arquivo: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("erro ao parsear yaml: %w", err)
		}
	default:
		if err := ParseLines(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := NewValidator().Validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LineError aponta a linha do arquivo key=value que não pôde ser interpretada.
type LineError struct {
	Line int
	Key  string
	Err  error
}

func (e *LineError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("config: linha %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("config: linha %d (%s): %v", e.Line, e.Key, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

type setter func(cfg *EmulatorConfig, value string) error

var lineKeys = map[string]setter{
	"port":            intSetter(func(c *EmulatorConfig) *int { return &c.Port }),
	"reportinterval":  intSetter(func(c *EmulatorConfig) *int { return &c.ReportInterval }),
	"fakeauthexpiry":  intSetter(func(c *EmulatorConfig) *int { return &c.FakeAuthExpiry }),
	"fakeratelimit":   intSetter(func(c *EmulatorConfig) *int { return &c.FakeRateLimit }),
	"http409matchms":  intSetter(func(c *EmulatorConfig) *int { return &c.HTTP409MatchMs }),
	"cors":            boolSetter(func(c *EmulatorConfig) *bool { return &c.CORS }),
	"stubroutes":      stringSetter(func(c *EmulatorConfig) *string { return &c.StubRoutes }),
	"logfile":         stringSetter(func(c *EmulatorConfig) *string { return &c.Logging.File }),
	"logconsole":      boolSetter(func(c *EmulatorConfig) *bool { return &c.Logging.Console }),
	"loghttp":         boolSetter(func(c *EmulatorConfig) *bool { return &c.Logging.HTTP }),
	"loglevel":        stringSetter(func(c *EmulatorConfig) *string { return &c.Logging.Level }),
	"logformat":       stringSetter(func(c *EmulatorConfig) *string { return &c.Logging.Format }),
	"statsdaddr":      stringSetter(func(c *EmulatorConfig) *string { return &c.Metrics.StatsdAddr }),
	"statsdnamespace": stringSetter(func(c *EmulatorConfig) *string { return &c.Metrics.Namespace }),
	"activities":      setActivities,
}

// ParseLines interpreta o formato linha-a-linha: uma chave=valor por linha,
// comentários com '#', chaves sem diferenciar maiúsculas. Chaves desconhecidas são erro.
func ParseLines(data []byte, cfg *EmulatorConfig) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return &LineError{Line: n, Err: fmt.Errorf("esperado key=value")}
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		set, known := lineKeys[key]
		if !known {
			return &LineError{Line: n, Key: key, Err: fmt.Errorf("chave desconhecida")}
		}
		if err := set(cfg, value); err != nil {
			return &LineError{Line: n, Key: key, Err: err}
		}
	}
	return scanner.Err()
}

func intSetter(field func(*EmulatorConfig) *int) setter {
	return func(cfg *EmulatorConfig, value string) error {
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*field(cfg) = v
		return nil
	}
}

func boolSetter(field func(*EmulatorConfig) *bool) setter {
	return func(cfg *EmulatorConfig, value string) error {
		v, err := strconv.ParseBool(strings.ToLower(value))
		if err != nil {
			return err
		}
		*field(cfg) = v
		return nil
	}
}

func stringSetter(field func(*EmulatorConfig) *string) setter {
	return func(cfg *EmulatorConfig, value string) error {
		*field(cfg) = strings.Trim(value, `"`)
		return nil
	}
}

// setActivities lê o blob JSON {"<activityId>": {"category","isteam","scorename"}}.
func setActivities(cfg *EmulatorConfig, value string) error {
	activities, err := ParseActivities(value)
	if err != nil {
		return err
	}
	cfg.Activities = activities
	return nil
}

// ParseActivities decodifica o blob JSON de atividades.
func ParseActivities(blob string) (map[string]Activity, error) {
	out := map[string]Activity{}
	if strings.TrimSpace(blob) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(blob), &out); err != nil {
		return nil, fmt.Errorf("json de atividades inválido: %w", err)
	}
	return out, nil
}
