// Package config resolves kong flags from TOML and YAML configuration files.
//
// Nested tables are flattened into flag names, so
//
//	[oidc]
//	client_id = "linkstash"
//
// sets --oidc-client-id. Environment variables in the file are expanded
// before parsing.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// tableAliases maps legacy table names to their flag prefixes.
var tableAliases = map[string]string{
	"openid": "oidc",
}

// keyAliases maps legacy flattened keys to flag names.
var keyAliases = map[string]string{
	"tracing-level": "log-level",
}

// TOML is a kong.ConfigurationLoader for TOML files.
func TOML(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := decode(r, func(data []byte) error { return toml.Unmarshal(data, &values) }); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return newResolver(values), nil
}

// YAML is a kong.ConfigurationLoader for YAML files.
func YAML(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := decode(r, func(data []byte) error { return yaml.Unmarshal(data, &values) }); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return newResolver(values), nil
}

// Any tries TOML first and falls back to YAML, for config files without a
// recognisable extension.
func Any(r io.Reader) (kong.Resolver, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	resolver, tomlErr := TOML(bytes.NewReader(data))
	if tomlErr == nil {
		return resolver, nil
	}

	resolver, yamlErr := YAML(bytes.NewReader(data))
	if yamlErr == nil {
		return resolver, nil
	}

	return nil, errors.Join(tomlErr, yamlErr)
}

// Loader picks the loader for a config file by its extension.
func Loader(path string) kong.ConfigurationLoader {
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return YAML
	}
	return TOML
}

func decode(r io.Reader, unmarshal func([]byte) error) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return unmarshal([]byte(os.ExpandEnv(string(data))))
}

func newResolver(values map[string]any) kong.Resolver {
	flat := map[string]any{}
	flatten("", values, flat)

	return kong.ResolverFunc(func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
		if v, ok := flat[flag.Name]; ok {
			return v, nil
		}
		return nil, nil
	})
}

func flatten(prefix string, values map[string]any, out map[string]any) {
	for key, value := range values {
		name := flagName(prefix, key)

		switch v := value.(type) {
		case map[string]any:
			flatten(name, v, out)
		default:
			if alias, ok := keyAliases[name]; ok {
				name = alias
			}
			out[name] = v
		}
	}
}

func flagName(prefix, key string) string {
	key = strings.ReplaceAll(strings.ToLower(key), "_", "-")
	if prefix == "" {
		if alias, ok := tableAliases[key]; ok {
			return alias
		}
		return key
	}
	return prefix + "-" + key
}
