// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/kadirpekel/mcpgateway/pkg/config/provider"
)

// Loader turns provider bytes into a Config and follows source changes.
type Loader struct {
	source   provider.Provider
	onChange func(*Config)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

func WithOnChange(fn func(*Config)) LoaderOption {
	return func(l *Loader) { l.onChange = fn }
}

func NewLoader(p provider.Provider, opts ...LoaderOption) *Loader {
	l := &Loader{source: p}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// OnChange sets the reload callback. It must be set before Watch starts.
func (l *Loader) OnChange(fn func(*Config)) { l.onChange = fn }

func (l *Loader) Load(ctx context.Context) (*Config, error) {
	data, err := l.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s config: %w", l.source.Type(), err)
	}
	return Parse(data)
}

// Watch blocks until ctx ends, reloading on each change signal. A reload
// that fails to parse or validate is logged and the previous config stays
// in effect.
func (l *Loader) Watch(ctx context.Context) error {
	changes, err := l.source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch %s config: %w", l.source.Type(), err)
	}
	if changes == nil {
		slog.Info("Config source cannot be watched", "type", l.source.Type())
		<-ctx.Done()
		return nil
	}

	slog.Info("Watching config source", "type", l.source.Type())
	for range changes {
		cfg, err := l.Load(ctx)
		if err != nil {
			slog.Error("Config reload rejected", "error", err)
			continue
		}
		slog.Info("Config reloaded")
		if l.onChange != nil {
			l.onChange(cfg)
		}
	}
	return nil
}

func (l *Loader) Close() error {
	return l.source.Close()
}

// Parse decodes YAML, or JSON as a fallback, expands ${VAR}, ${VAR:-def}
// and $VAR references, then applies environment overrides, defaults and
// validation in that order.
func Parse(data []byte) (*Config, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		if jerr := json.Unmarshal(data, &raw); jerr != nil {
			return nil, fmt.Errorf("failed to parse config as YAML (%v) or JSON: %w", err, jerr)
		}
	}

	cfg := &Config{}
	if err := decode(expand(raw).(map[string]any), cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return finalize(cfg)
}

func finalize(cfg *Config) (*Config, error) {
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func decode(in map[string]any, out *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "yaml",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// expand rewrites every string leaf of a decoded document.
func expand(v any) any {
	switch t := v.(type) {
	case string:
		return os.Expand(t, lookupEnv)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = expand(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = expand(item)
		}
		return out
	}
	return v
}

func lookupEnv(ref string) string {
	name, fallback, hasFallback := strings.Cut(ref, ":-")
	if v := os.Getenv(name); v != "" || !hasFallback {
		return v
	}
	return fallback
}

// Load reads the config named by opts. With no path it returns defaults
// plus environment overrides and a nil Loader.
func Load(ctx context.Context, opts provider.ProviderConfig) (*Config, *Loader, error) {
	if opts.Path == "" {
		cfg, err := finalize(&Config{})
		return cfg, nil, err
	}

	p, err := provider.New(opts)
	if err != nil {
		return nil, nil, err
	}
	loader := NewLoader(p)
	cfg, err := loader.Load(ctx)
	if err != nil {
		_ = p.Close()
		return nil, nil, err
	}
	return cfg, loader, nil
}

func LoadFile(ctx context.Context, path string) (*Config, *Loader, error) {
	return Load(ctx, provider.ProviderConfig{Type: provider.TypeFile, Path: path})
}
