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

	"github.com/go-zookeeper/zk"
)

// ZookeeperProvider loads config from a zookeeper node.
type ZookeeperProvider struct {
	path string
	conn *zk.Conn
}

// NewZookeeperProvider connects to the ensemble and reads from path.
func NewZookeeperProvider(path string, endpoints []string) (*ZookeeperProvider, error) {
	if len(endpoints) == 0 {
		endpoints = []string{"localhost:2181"}
	}

	conn, _, err := zk.Connect(endpoints, DefaultDialTimeout, zk.WithLogInfo(false))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}

	return &ZookeeperProvider{
		path: path,
		conn: conn,
	}, nil
}

// Type returns TypeZookeeper.
func (p *ZookeeperProvider) Type() Type {
	return TypeZookeeper
}

// Load reads the node data.
func (p *ZookeeperProvider) Load(ctx context.Context) ([]byte, error) {
	data, _, err := p.conn.Get(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read zookeeper node %s: %w", p.path, err)
	}
	return data, nil
}

// Watch re-arms a data watch on the node after every event, since
// zookeeper watches fire once.
func (p *ZookeeperProvider) Watch(ctx context.Context) (<-chan struct{}, error) {
	_, _, events, err := p.conn.GetW(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to watch zookeeper node %s: %w", p.path, err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				if ev.Err != nil {
					slog.Error("Zookeeper watch failed", "path", p.path, "error", ev.Err)
				}
				if ev.Type == zk.EventNodeDataChanged || ev.Type == zk.EventNodeCreated {
					notify(ch)
				}

				_, _, events, err = p.conn.GetW(p.path)
				if err != nil {
					slog.Error("Failed to re-arm zookeeper watch", "path", p.path, "error", err)
					return
				}
			}
		}
	}()

	slog.Info("Watching zookeeper node", "path", p.path)
	return ch, nil
}

// Close closes the zookeeper session.
func (p *ZookeeperProvider) Close() error {
	p.conn.Close()
	return nil
}

var _ Provider = (*ZookeeperProvider)(nil)
