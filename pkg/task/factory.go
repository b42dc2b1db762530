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

package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kadirpekel/mcpgateway/pkg/config"
)

// NewStoreFromConfig builds the store selected by cfg. SQL stores borrow
// their connection from pool, which stays responsible for closing it.
func NewStoreFromConfig(ctx context.Context, cfg *config.TaskStoreConfig, pool *config.DBPool) (Store, error) {
	if cfg == nil || !cfg.IsSQL() {
		slog.Debug("Using in-memory task store")
		return NewInMemoryStore(), nil
	}
	if cfg.Database == nil {
		return nil, fmt.Errorf("task_store.database is required for the sql backend")
	}
	if pool == nil {
		return nil, fmt.Errorf("database pool is required for the sql backend")
	}

	db, err := pool.Get(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	store, err := NewSQLStore(db, cfg.Database.Dialect())
	if err != nil {
		return nil, err
	}
	slog.Info("Using SQL task store", "driver", cfg.Database.Driver, "database", cfg.Database.Database)
	return store, nil
}
