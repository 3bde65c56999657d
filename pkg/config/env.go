package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// FieldError é retornado quando uma variável de ambiente não pode ser convertida
// para o tipo do campo correspondente.
type FieldError struct {
	FieldName string
	EnvVar    string
	Value     string
	Err       error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config: erro ao definir campo %s a partir de %s=%s: %v",
		e.FieldName, e.EnvVar, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ApplyEnv sobrescreve os campos com tag "env" cujas variáveis estejam definidas.
// Structs aninhadas são percorridas recursivamente.
func ApplyEnv(cfg *EmulatorConfig) error {
	return applyStruct(reflect.ValueOf(cfg).Elem())
}

func applyStruct(val reflect.Value) error {
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			if err := applyStruct(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}
		envValue, ok := os.LookupEnv(envTag)
		if !ok || envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return &FieldError{FieldName: fieldType.Name, EnvVar: envTag, Value: envValue, Err: err}
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int:
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(v))
	case reflect.Bool:
		v, err := strconv.ParseBool(strings.ToLower(value))
		if err != nil {
			return err
		}
		field.SetBool(v)
	default:
		return fmt.Errorf("tipo não suportado %s", field.Type())
	}
	return nil
}
