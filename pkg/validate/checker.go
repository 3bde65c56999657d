package validate

import (
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Checker agrupa os validadores de campo. Toda falha é logada em nível warn
// antes de ser devolvida ao handler.
type Checker struct {
	log    zerolog.Logger
	valid  *validator.Validate
	prefix string
}

// New cria um Checker que loga as falhas no logger informado.
func New(log zerolog.Logger) *Checker {
	return &Checker{log: log, valid: validator.New()}
}

// Within retorna um Checker cujos nomes de campo recebem o prefixo informado,
// usado ao validar objetos aninhados (ex: "member.players[0]").
func (c *Checker) Within(prefix string) *Checker {
	cp := *c
	cp.prefix = c.path(prefix)
	return &cp
}

func (c *Checker) path(key string) string {
	if c.prefix == "" {
		return key
	}
	if strings.HasPrefix(key, "[") {
		return c.prefix + key
	}
	return c.prefix + "." + key
}

func (c *Checker) fail(key, format string, args ...any) error {
	err := Fail(c.path(key), format, args...)
	c.log.Warn().Str("field", err.Field).Msg(err.Reason)
	return err
}

// Failf expõe a mesma trilha de log/erro para regras específicas dos módulos.
func (c *Checker) Failf(key, format string, args ...any) error {
	return c.fail(key, format, args...)
}

// StringLen valida o tamanho de uma string opcional.
func (c *Checker) StringLen(obj map[string]any, key string, min, max int) error {
	v, ok := obj[key]
	if !ok {
		if min > 0 {
			return c.fail(key, "is required")
		}
		return nil
	}
	s, isStr := v.(string)
	if !isStr {
		return c.fail(key, "must be a string")
	}
	n := len([]rune(s))
	if min > 0 && n < min {
		return c.fail(key, "length %d is below minimum %d", n, min)
	}
	if max > 0 && n > max {
		return c.fail(key, "length %d exceeds maximum %d", n, max)
	}
	return nil
}

// ListLen valida o tamanho de uma lista opcional.
func (c *Checker) ListLen(obj map[string]any, key string, min, max int) error {
	v, ok := obj[key]
	if !ok {
		if min > 0 {
			return c.fail(key, "is required")
		}
		return nil
	}
	list, isList := v.([]any)
	if !isList {
		return c.fail(key, "must be an array")
	}
	if min > 0 && len(list) < min {
		return c.fail(key, "must contain at least %d element(s)", min)
	}
	if max > 0 && len(list) > max {
		return c.fail(key, "must contain at most %d element(s)", max)
	}
	return nil
}

// ListOfStrings valida tamanho da lista e que todos os elementos sejam strings não vazias.
func (c *Checker) ListOfStrings(obj map[string]any, key string, min, max int) error {
	if err := c.ListLen(obj, key, min, max); err != nil {
		return err
	}
	list, _ := obj[key].([]any)
	for i, item := range list {
		s, ok := item.(string)
		if !ok || s == "" {
			return c.fail(key, "element %d must be a non-empty string", i)
		}
	}
	return nil
}

// OneOf valida um valor de enum usando a regra oneof do validator.
func (c *Checker) OneOf(key, value string, allowed ...string) error {
	if err := c.valid.Var(value, "required,oneof="+strings.Join(allowed, " ")); err != nil {
		return c.fail(key, "must be one of [%s]", strings.Join(allowed, ", "))
	}
	return nil
}

// String lê uma string opcional.
func (c *Checker) String(obj map[string]any, key string) (string, bool, error) {
	v, ok := obj[key]
	if !ok {
		return "", false, nil
	}
	s, isStr := v.(string)
	if !isStr {
		return "", true, c.fail(key, "must be a string")
	}
	return s, true, nil
}

// Int lê um inteiro opcional dentro de [min, max].
func (c *Checker) Int(obj map[string]any, key string, min, max int) (int, bool, error) {
	v, ok := obj[key]
	if !ok {
		return 0, false, nil
	}
	f, isNum := v.(float64)
	if !isNum || f != math.Trunc(f) {
		return 0, true, c.fail(key, "must be an integer")
	}
	n := int(f)
	if n < min || n > max {
		return n, true, c.fail(key, "must be between %d and %d", min, max)
	}
	return n, true, nil
}

// Number lê um número opcional, inteiro ou não.
func (c *Checker) Number(obj map[string]any, key string) (float64, bool, error) {
	v, ok := obj[key]
	if !ok {
		return 0, false, nil
	}
	f, isNum := v.(float64)
	if !isNum {
		return 0, true, c.fail(key, "must be a number")
	}
	return f, true, nil
}

// Bool lê um booleano opcional.
func (c *Checker) Bool(obj map[string]any, key string) (bool, bool, error) {
	v, ok := obj[key]
	if !ok {
		return false, false, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, true, c.fail(key, "must be a boolean")
	}
	return b, true, nil
}

// Object lê um objeto JSON opcional.
func (c *Checker) Object(obj map[string]any, key string) (map[string]any, bool, error) {
	v, ok := obj[key]
	if !ok {
		return nil, false, nil
	}
	m, isObj := v.(map[string]any)
	if !isObj {
		return nil, true, c.fail(key, "must be an object")
	}
	return m, true, nil
}

// List lê uma lista JSON opcional.
func (c *Checker) List(obj map[string]any, key string) ([]any, bool, error) {
	v, ok := obj[key]
	if !ok {
		return nil, false, nil
	}
	l, isList := v.([]any)
	if !isList {
		return nil, true, c.fail(key, "must be an array")
	}
	return l, true, nil
}

// Objects lê uma lista cujos elementos são todos objetos.
func (c *Checker) Objects(obj map[string]any, key string) ([]map[string]any, bool, error) {
	list, ok, err := c.List(obj, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	out := make([]map[string]any, 0, len(list))
	for i, item := range list {
		m, isObj := item.(map[string]any)
		if !isObj {
			return nil, true, c.fail(key, "element %d must be an object", i)
		}
		out = append(out, m)
	}
	return out, true, nil
}
