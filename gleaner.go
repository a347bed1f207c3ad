// Copyright 2025 Poiesic Systems
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

// Package gleaner opens an article index and wires the ingest pipeline and the
// question answering service to it.
package gleaner

import (
	"errors"
	"log/slog"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/ai/openai"
	"github.com/poiesic/gleaner/answer"
	"github.com/poiesic/gleaner/ingestion"
	"github.com/poiesic/gleaner/storage"
	"github.com/poiesic/gleaner/storage/badger"
)

// Database is an open article index: the vector index, the ledger and the AI provider.
type Database struct {
	backend  *badger.Backend
	index    storage.VectorIndex
	ledger   storage.Ledger
	provider ai.AIProvider
	logger   *slog.Logger
}

// DatabaseOption configures NewDatabase.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	inMemory bool
	logger   *slog.Logger
}

// WithAIConfig sets the settings of the OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithProvider uses provider instead of building one from the AI config.
// The database takes ownership and closes it.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithInMemory keeps everything in memory. The path is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// NewDatabase opens or creates the index stored at filePath.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory, badger.WithBackendLogger(options.logger))
	if err != nil {
		return nil, err
	}

	index, ledger, err := badger.NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			ledger.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Database{
		backend:  backend,
		index:    index,
		ledger:   ledger,
		provider: provider,
		logger:   options.logger,
	}, nil
}

// Close flushes the ledger and closes the provider and storage.
func (db *Database) Close() error {
	var errs []error
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}
	if err := db.ledger.Close(); err != nil {
		db.logger.Error("error closing ledger", "err", err)
		errs = append(errs, err)
	}
	if err := db.index.Close(); err != nil {
		db.logger.Error("error closing vector index", "err", err)
		errs = append(errs, err)
	}
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (db *Database) Index() storage.VectorIndex {
	return db.index
}

func (db *Database) Ledger() storage.Ledger {
	return db.ledger
}

func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

// NewIngestionPipeline creates a pipeline writing to this database.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{ingestion.WithLogger(db.logger)}, opts...)
	return ingestion.NewPipeline(db.index, db.ledger, db.provider, opts...)
}

// NewAnswerer creates a question answering service over this database.
func (db *Database) NewAnswerer(opts ...answer.Option) (*answer.Answerer, error) {
	opts = append([]answer.Option{answer.WithLogger(db.logger)}, opts...)
	return answer.NewAnswerer(db.index, db.provider, opts...)
}
