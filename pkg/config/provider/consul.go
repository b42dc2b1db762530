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

package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/consul/api"
)

// consulWaitTime is the blocking query duration used while watching.
const consulWaitTime = 5 * time.Minute

// ConsulProvider loads config from a consul KV key.
type ConsulProvider struct {
	key    string
	client *api.Client
}

// NewConsulProvider creates a provider for key. The first endpoint, if any,
// is the agent address; otherwise CONSUL_HTTP_ADDR or the consul default.
func NewConsulProvider(key string, endpoints []string) (*ConsulProvider, error) {
	cfg := api.DefaultConfig()
	if len(endpoints) > 0 {
		cfg.Address = endpoints[0]
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	return &ConsulProvider{
		key:    strings.TrimPrefix(key, "/"),
		client: client,
	}, nil
}

// Type returns TypeConsul.
func (p *ConsulProvider) Type() Type {
	return TypeConsul
}

// Load reads the key value.
func (p *ConsulProvider) Load(ctx context.Context) ([]byte, error) {
	pair, _, err := p.client.KV().Get(p.key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to read consul key %s: %w", p.key, err)
	}
	if pair == nil {
		return nil, fmt.Errorf("consul key %s not found", p.key)
	}
	return pair.Value, nil
}

// Watch uses consul blocking queries on the key.
func (p *ConsulProvider) Watch(ctx context.Context) (<-chan struct{}, error) {
	_, meta, err := p.client.KV().Get(p.key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to read consul key %s: %w", p.key, err)
	}

	ch := make(chan struct{}, 1)
	go p.watchLoop(ctx, meta.LastIndex, ch)

	slog.Info("Watching consul key", "key", p.key)
	return ch, nil
}

func (p *ConsulProvider) watchLoop(ctx context.Context, lastIndex uint64, ch chan struct{}) {
	defer close(ch)

	for ctx.Err() == nil {
		opts := (&api.QueryOptions{WaitIndex: lastIndex, WaitTime: consulWaitTime}).WithContext(ctx)
		_, meta, err := p.client.KV().Get(p.key, opts)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("Consul watch failed", "key", p.key, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		// A lower index means the KV store was reset; start over.
		if meta.LastIndex < lastIndex {
			lastIndex = 0
			continue
		}
		if meta.LastIndex > lastIndex {
			if lastIndex != 0 {
				notify(ch)
			}
			lastIndex = meta.LastIndex
		}
	}
}

// Close is a no-op; the consul client holds no persistent connection.
func (p *ConsulProvider) Close() error {
	return nil
}

var _ Provider = (*ConsulProvider)(nil)
