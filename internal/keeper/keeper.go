/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package keeper applies session rollovers on the coordinator's behalf once
// minting windows end.
package keeper

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"mint-sale-go/internal/models"
	"mint-sale-go/internal/sale"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine is the part of the sale engine the keeper drives.
type Engine interface {
	Now() int64
	ListSessions(ctx context.Context) ([]models.Session, error)
	Rollover(ctx context.Context, caller string, sessionId int64) (*models.Session, error)
}

// Config contains configuration for Keeper
type Config struct {
	Engine          Engine
	Coordinator     string
	PollingInterval time.Duration
	Concurrency     int
}

// Keeper polls sessions and rolls over those whose minting window has ended
type Keeper struct {
	engine          Engine
	coordinator     string
	pollingInterval time.Duration
	concurrency     int

	applied atomic.Int64

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
}

func New(cfg Config) (*Keeper, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("keeper requires an engine")
	}
	if cfg.Coordinator == "" {
		return nil, fmt.Errorf("keeper requires a coordinator identity")
	}
	if cfg.PollingInterval <= 0 {
		cfg.PollingInterval = 30 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	return &Keeper{
		engine:          cfg.Engine,
		coordinator:     cfg.Coordinator,
		pollingInterval: cfg.PollingInterval,
		concurrency:     cfg.Concurrency,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}, nil
}

// Start begins polling in the background
func (k *Keeper) Start(ctx context.Context) {
	zap.L().Info("Starting rollover keeper",
		zap.String("coordinator", k.coordinator),
		zap.Duration("polling_interval", k.pollingInterval),
		zap.Int("concurrency", k.concurrency))

	go k.pollLoop(ctx)
}

// Stop gracefully stops the keeper
func (k *Keeper) Stop() {
	zap.L().Info("Stopping rollover keeper")
	close(k.stopChan)
	<-k.doneChan
	zap.L().Info("Rollover keeper stopped", zap.Int64("rollovers_applied", k.applied.Load()))
}

// Applied returns how many rollovers the keeper has applied since it was created.
func (k *Keeper) Applied() int64 {
	return k.applied.Load()
}

func (k *Keeper) pollLoop(ctx context.Context) {
	defer close(k.doneChan)

	ticker := time.NewTicker(k.pollingInterval)
	defer ticker.Stop()

	k.logPoll(ctx)

	for {
		select {
		case <-ticker.C:
			k.logPoll(ctx)
		case <-k.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (k *Keeper) logPoll(ctx context.Context) {
	if _, err := k.Poll(ctx); err != nil {
		zap.L().Error("Keeper poll failed", zap.Error(err))
	}
}

// ANSI color helpers for console output.
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
)

// Poll rolls over every due session once and returns how many were applied.
// A failed rollover does not stop the others; the first failure is returned
// once every due session has been attempted.
func (k *Keeper) Poll(ctx context.Context) (int, error) {
	sessions, err := k.engine.ListSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	now := k.engine.Now()
	var due []models.Session
	for _, s := range sessions {
		if k.isDue(s, now) {
			due = append(due, s)
		}
	}

	fmt.Printf("\n%s[%s] %d sessions, %d due for rollover%s\n",
		colorCyan, time.Now().Format("15:04:05"), len(sessions), len(due), colorReset)
	if len(due) == 0 {
		return 0, nil
	}

	ctx = models.WithOperationContext(ctx, &models.OperationContext{Source: "keeper"})

	var count atomic.Int64
	var g errgroup.Group
	g.SetLimit(k.concurrency)
	for _, s := range due {
		g.Go(func() error {
			session, err := k.engine.Rollover(ctx, k.coordinator, s.Id)
			if err != nil {
				if errors.Is(err, sale.ErrMintingNotOver) || errors.Is(err, sale.ErrInvalidCoordinator) {
					zap.L().Debug("Session not eligible for rollover", zap.Int64("session_id", s.Id), zap.Error(err))
					return nil
				}
				fmt.Printf("  %s✗ session %d (%s): %s%s\n", colorRed, s.Id, s.RolloverOption, err, colorReset)
				zap.L().Error("Failed to roll over session",
					zap.Int64("session_id", s.Id),
					zap.String("option", string(s.RolloverOption)),
					zap.Error(err))
				return fmt.Errorf("session %d: %w", s.Id, err)
			}

			count.Add(1)
			fmt.Printf("  %s✓ session %d %s, epoch %d, minting ends %d%s\n",
				colorGreen, session.Id, session.RolloverOption, session.Epoch, session.MintingEnd, colorReset)
			return nil
		})
	}
	err = g.Wait()

	k.applied.Add(count.Load())
	return int(count.Load()), err
}

// isDue reports whether the keeper should roll over s at now.
func (k *Keeper) isDue(s models.Session, now int64) bool {
	return s.Coordinator == k.coordinator && !s.Closed && now >= s.MintingEnd
}
