package configuration

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for configuration events.
var (
	SignalRootBuilt      = capitan.NewSignal("configuration.root.built", "Configuration root composed")
	SignalReloadComplete = capitan.NewSignal("configuration.reload.complete", "Provider reload finished")
	SignalReloadFailed   = capitan.NewSignal("configuration.reload.failed", "Provider reload failed, previous data kept")
	SignalReloadRetry    = capitan.NewSignal("configuration.reload.retry", "Provider reload read retried")
	SignalWatchStarted   = capitan.NewSignal("configuration.watch.started", "File watcher started")
)

// Keys for typed event data.
var (
	KeyProviders = capitan.NewIntKey("providers")
	KeyPath      = capitan.NewStringKey("path")
	KeyKeys      = capitan.NewIntKey("keys")
	KeyAttempt   = capitan.NewIntKey("attempt")
	KeyDuration  = capitan.NewDurationKey("duration")
	KeyError     = capitan.NewErrorKey("error")
)

// emitRootBuilt emits an event when a root is composed.
func emitRootBuilt(ctx context.Context, providers int) {
	capitan.Emit(ctx, SignalRootBuilt, KeyProviders.Field(providers))
}

// emitReload emits the outcome of a file reload.
func emitReload(ctx context.Context, path string, keys int, duration time.Duration, err error) {
	if err != nil {
		capitan.Error(ctx, SignalReloadFailed,
			KeyPath.Field(path),
			KeyDuration.Field(duration),
			KeyError.Field(err),
		)
		return
	}
	capitan.Emit(ctx, SignalReloadComplete,
		KeyPath.Field(path),
		KeyKeys.Field(keys),
		KeyDuration.Field(duration),
	)
}

// emitReloadRetry emits an event when a reload read is retried.
func emitReloadRetry(ctx context.Context, path string, attempt int, err error) {
	capitan.Emit(ctx, SignalReloadRetry,
		KeyPath.Field(path),
		KeyAttempt.Field(attempt),
		KeyError.Field(err),
	)
}

// emitWatchStarted emits an event when a file watcher starts.
func emitWatchStarted(ctx context.Context, path string) {
	capitan.Emit(ctx, SignalWatchStarted, KeyPath.Field(path))
}
