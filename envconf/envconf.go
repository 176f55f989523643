// Package envconf fills tagged config structs from environment variables:
//
//	type Config struct {
//		APIBaseURL   string         `env:"VODUTILS_API_URL,required"`
//		AccessToken  Secret         `env:"VODUTILS_ACCESS_TOKEN,required"`
//		Bucket       string         `env:"VODUTILS_BUCKET,required"`
//		PollInterval time.Duration  `env:"VODUTILS_POLL_INTERVAL"`
//		Verbose      bool           `env:"VODUTILS_VERBOSE"`
//	}
//
// Credentials should be typed Secret so log statements print a mask instead
// of the value.
package envconf

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/bitrise-io/go-utils/v2/env"
)

const secretMask = "*****"

// Secret is a string whose value must not appear in logs.
type Secret string

// String returns the redaction mask, so formatting a Secret with %s or %v
// never leaks the value.
func (s Secret) String() string {
	return secretMask
}

// Parser ...
type Parser interface {
	Parse(conf interface{}) error
}

type defaultParser struct {
	envRepo env.Repository
}

// NewParser ...
func NewParser(envRepo env.Repository) Parser {
	return defaultParser{envRepo: envRepo}
}

// Parse fills conf, a pointer to a struct with `env` tags, from the
// environment. Supported field types: string, Secret, bool, int/int64 and
// time.Duration. A field tagged with the "required" option fails the parse
// when its variable is unset or empty.
func (p defaultParser) Parse(conf interface{}) error {
	value := reflect.ValueOf(conf)
	if value.Kind() != reflect.Ptr || value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config must be a pointer to a struct, got %T", conf)
	}

	structValue := value.Elem()
	structType := structValue.Type()
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		key, required := parseTag(field.Tag.Get("env"))
		if key == "" || key == "-" {
			continue
		}

		raw := p.envRepo.Get(key)
		if raw == "" {
			if required {
				return fmt.Errorf("required input '%s' is not set", key)
			}
			continue
		}

		if err := setField(structValue.Field(i), raw); err != nil {
			return fmt.Errorf("set '%s' from %s: %w", field.Name, key, err)
		}
	}
	return nil
}

func parseTag(tag string) (key string, required bool) {
	parts := strings.Split(tag, ",")
	key = parts[0]
	for _, option := range parts[1:] {
		if option == "required" {
			required = true
		}
	}
	return key, required
}

func setField(field reflect.Value, raw string) error {
	if field.Type() == reflect.TypeOf(time.Duration(0)) {
		duration, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(duration))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(parsed)
	case reflect.Int, reflect.Int64:
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(parsed)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
