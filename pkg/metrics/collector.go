// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package metrics

import (
	"context"
	"runtime"
	"time"
)

// ResourceCollector periodically refreshes the resource gauges and,
// when wired, the session and credential gauges.
type ResourceCollector struct {
	ctx      context.Context
	cancel   context.CancelFunc
	interval time.Duration
	started  time.Time

	sessionCount    func() int
	credentialCount func() int
}

// CollectorOption configures a ResourceCollector.
type CollectorOption func(*ResourceCollector)

// WithSessionCount wires the live session gauge to fn.
func WithSessionCount(fn func() int) CollectorOption {
	return func(rc *ResourceCollector) {
		rc.sessionCount = fn
	}
}

// WithCredentialCount wires the registered credential gauge to fn.
func WithCredentialCount(fn func() int) CollectorOption {
	return func(rc *ResourceCollector) {
		rc.credentialCount = fn
	}
}

// NewResourceCollector creates a collector that updates gauges at the
// given interval (recommended: 10-60 seconds).
func NewResourceCollector(ctx context.Context, interval time.Duration, opts ...CollectorOption) *ResourceCollector {
	collectorCtx, cancel := context.WithCancel(ctx)
	rc := &ResourceCollector{
		ctx:      collectorCtx,
		cancel:   cancel,
		interval: interval,
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// Start begins collecting at the configured interval. It blocks until
// Stop is called or the parent context is cancelled, so it is typically
// run in a goroutine.
func (rc *ResourceCollector) Start() {
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	rc.collect()

	for {
		select {
		case <-rc.ctx.Done():
			return
		case <-ticker.C:
			rc.collect()
		}
	}
}

// Stop halts the collector.
func (rc *ResourceCollector) Stop() {
	rc.cancel()
}

func (rc *ResourceCollector) collect() {
	if !IsEnabled() {
		return
	}

	collectRuntime()

	ServerUptime.Set(time.Since(rc.started).Seconds())

	if rc.sessionCount != nil {
		ActiveSessions.Set(float64(rc.sessionCount()))
	}
	if rc.credentialCount != nil {
		RegisteredCredentials.Set(float64(rc.credentialCount()))
	}
}

// CollectOnce performs a single refresh of the runtime gauges, outside
// of the periodic collection.
func CollectOnce() {
	if !IsEnabled() {
		return
	}
	collectRuntime()
}

func collectRuntime() {
	Goroutines.Set(float64(runtime.NumGoroutine()))

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	MemoryAllocBytes.Set(float64(memStats.Alloc))
	MemorySysBytes.Set(float64(memStats.Sys))
	GCPauseTotalSeconds.Set(float64(memStats.PauseTotalNs) / 1e9)
}

// StartResourceCollector creates and starts a collector in a background
// goroutine. It stops when ctx is cancelled.
func StartResourceCollector(ctx context.Context, interval time.Duration, opts ...CollectorOption) *ResourceCollector {
	collector := NewResourceCollector(ctx, interval, opts...)
	go collector.Start()
	return collector
}
