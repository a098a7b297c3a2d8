// Package container provides dependency injection for the check pipeline.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/worq1337/parcer-sub001/internal/config"
	"github.com/worq1337/parcer-sub001/internal/dedup"
	"github.com/worq1337/parcer-sub001/internal/directory"
	"github.com/worq1337/parcer-sub001/internal/eventlog"
	"github.com/worq1337/parcer-sub001/internal/extractor"
	"github.com/worq1337/parcer-sub001/internal/hub"
	"github.com/worq1337/parcer-sub001/internal/logging"
	"github.com/worq1337/parcer-sub001/internal/pipeline"
	"github.com/worq1337/parcer-sub001/internal/server"
	"github.com/worq1337/parcer-sub001/internal/storage"
)

// Container holds all application dependencies. It is immutable after
// creation; components are reached through getters only.
type Container struct {
	logger      logging.Logger
	config      *config.Config
	store       *storage.Storage
	directory   *directory.Directory
	registry    *extractor.Registry
	hub         *hub.Hub
	recorder    *eventlog.Recorder
	detector    *dedup.Detector
	coordinator *pipeline.Coordinator
	server      *server.Server
}

// NewContainer creates and wires all application dependencies.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	// Logger first; everything else logs through it.
	logger := logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)

	store, err := storage.Open(ctx, cfg.Storage.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	operatorStore := directory.NewStore(cfg.Directory.OperatorsFile)
	dir, err := directory.NewFromStore(operatorStore, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load operator directory: %w", err)
	}
	logger.WithField(logging.FieldCount, dir.Len()).Info("Operator directory loaded")

	registry, err := extractor.BuildRegistry(ctx, cfg.Extractor.APIKey, cfg.Extractor.Model, cfg.Extractor.BotAPIKeys, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to build extraction clients: %w", err)
	}

	eventHub := hub.New(cfg.Hub.SubscriberBuffer, logger)
	recorder := eventlog.NewRecorder(store, eventHub, logger)
	detector := dedup.NewDetector(store,
		time.Duration(cfg.Dedup.WindowMinutes)*time.Minute,
		decimal.NewFromFloat(cfg.Dedup.AmountThreshold),
		logger)

	coordinator := pipeline.NewCoordinator(store, recorder, registry, dir, detector, pipeline.Options{
		Concurrency:    cfg.Pipeline.Concurrency,
		ExtractTimeout: time.Duration(cfg.Pipeline.ExtractTimeoutSeconds) * time.Second,
		StorageRetries: cfg.Pipeline.StorageRetries,
		RetryBackoff:   time.Duration(cfg.Pipeline.StorageRetryBackoffMS) * time.Millisecond,
	}, logger)

	srv := server.New(coordinator, recorder, store, eventHub, registry, logger)

	return &Container{
		logger:      logger,
		config:      cfg,
		store:       store,
		directory:   dir,
		registry:    registry,
		hub:         eventHub,
		recorder:    recorder,
		detector:    detector,
		coordinator: coordinator,
		server:      srv,
	}, nil
}

// Close flushes in-flight work and releases resources.
func (c *Container) Close() error {
	c.coordinator.Wait()
	c.registry.Close()
	return c.store.Close()
}

// Logger returns the application logger.
func (c *Container) Logger() logging.Logger { return c.logger }

// Config returns the loaded configuration.
func (c *Container) Config() *config.Config { return c.config }

// Store returns the storage layer.
func (c *Container) Store() *storage.Storage { return c.store }

// Directory returns the operator directory.
func (c *Container) Directory() *directory.Directory { return c.directory }

// Coordinator returns the pipeline coordinator.
func (c *Container) Coordinator() *pipeline.Coordinator { return c.coordinator }

// Recorder returns the event log recorder.
func (c *Container) Recorder() *eventlog.Recorder { return c.recorder }

// Server returns the HTTP API surface.
func (c *Container) Server() *server.Server { return c.server }
