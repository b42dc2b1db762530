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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 100 * time.Millisecond

var errProviderClosed = errors.New("provider is closed")

// FileProvider reads a YAML file from disk.
type FileProvider struct {
	path string

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

func NewFileProvider(path string) (*FileProvider, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	return &FileProvider{path: abs}, nil
}

func (p *FileProvider) Type() Type { return TypeFile }

func (p *FileProvider) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return data, nil
}

// Watch observes the parent directory so atomic replace-on-save is seen.
// Bursts of events inside debounceDelay produce a single signal.
func (p *FileProvider) Watch(ctx context.Context) (<-chan struct{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errProviderClosed
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(p.path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(p.path), err)
	}
	p.watcher = w

	changes := make(chan struct{}, 1)
	go p.run(ctx, w, changes)
	slog.Info("Watching config file", "path", p.path)
	return changes, nil
}

func (p *FileProvider) run(ctx context.Context, w *fsnotify.Watcher, changes chan struct{}) {
	defer close(changes)
	defer w.Close()

	name := filepath.Base(p.path)
	var settle <-chan time.Time // nil until an event arms it

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				break
			}
			switch {
			case ev.Has(fsnotify.Remove):
				slog.Warn("Config file removed", "path", p.path)
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create), ev.Has(fsnotify.Rename):
				settle = time.After(debounceDelay)
			}
		case <-settle:
			settle = nil
			if _, err := os.Stat(p.path); err == nil {
				notify(changes)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", "path", p.path, "error", err)
		}
	}
}

func (p *FileProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.watcher == nil {
		return nil
	}
	w := p.watcher
	p.watcher = nil
	return w.Close()
}

var _ Provider = (*FileProvider)(nil)
