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

// Package provider reads raw gateway configuration from a file, a consul KV
// key, an etcd key or a zookeeper node, and reports when it changes.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Type names a configuration source.
type Type string

const (
	TypeFile      Type = "file"
	TypeConsul    Type = "consul"
	TypeEtcd      Type = "etcd"
	TypeZookeeper Type = "zookeeper"
)

// DefaultDialTimeout bounds the initial connection to remote stores.
const DefaultDialTimeout = 10 * time.Second

var aliases = map[string]Type{
	"":          TypeFile,
	"file":      TypeFile,
	"consul":    TypeConsul,
	"etcd":      TypeEtcd,
	"zk":        TypeZookeeper,
	"zookeeper": TypeZookeeper,
}

// ParseType accepts the CLI spelling of a source, including "zk".
func ParseType(s string) (Type, error) {
	t, ok := aliases[strings.ToLower(s)]
	if !ok {
		return "", fmt.Errorf("unknown config source %q", s)
	}
	return t, nil
}

// Provider is a configuration source. Implementations are safe for
// concurrent use.
type Provider interface {
	Type() Type
	Load(ctx context.Context) ([]byte, error)

	// Watch returns a channel that receives a value after each change and
	// is closed once ctx ends. A nil channel means the source cannot be
	// watched.
	Watch(ctx context.Context) (<-chan struct{}, error)

	Close() error
}

// ProviderConfig selects a source. Path is a file path or a key, and
// Endpoints lists the servers of a remote store.
type ProviderConfig struct {
	Type      Type
	Path      string
	Endpoints []string
}

type constructor func(path string, endpoints []string) (Provider, error)

var constructors = map[Type]constructor{
	TypeFile: func(path string, _ []string) (Provider, error) {
		return NewFileProvider(path)
	},
	TypeConsul: func(path string, endpoints []string) (Provider, error) {
		return NewConsulProvider(path, endpoints)
	},
	TypeEtcd: func(path string, endpoints []string) (Provider, error) {
		return NewEtcdProvider(path, endpoints)
	},
	TypeZookeeper: func(path string, endpoints []string) (Provider, error) {
		return NewZookeeperProvider(path, endpoints)
	},
}

// New builds the provider named by opts.Type, defaulting to a file.
func New(opts ProviderConfig) (Provider, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	t := opts.Type
	if t == "" {
		t = TypeFile
	}
	build, ok := constructors[t]
	if !ok {
		return nil, fmt.Errorf("unknown config source %q", t)
	}
	return build(opts.Path, opts.Endpoints)
}

// notify coalesces change signals on a buffered channel.
func notify(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
