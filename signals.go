package protected

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for protection events.
var (
	SignalProviderWrapped = capitan.NewSignal("protected.provider.wrapped", "Configuration provider wrapped for decryption")
	SignalProviderSkipped = capitan.NewSignal("protected.provider.skipped", "Configuration provider left unwrapped, configuration invalid")
	SignalLoadStart       = capitan.NewSignal("protected.load.start", "Load operation beginning")
	SignalLoadComplete    = capitan.NewSignal("protected.load.complete", "Load operation finished")
	SignalReloadComplete  = capitan.NewSignal("protected.reload.complete", "Reload decryption finished")
	SignalFileProtected   = capitan.NewSignal("protected.file.protected", "File protect operation finished")
	SignalFilesComplete   = capitan.NewSignal("protected.files.complete", "Directory protect sweep finished")
	SignalBuilderBuilt    = capitan.NewSignal("protected.builder.built", "Protected configuration root built")
)

// Keys for typed event data.
var (
	KeyProviderType   = capitan.NewStringKey("provider_type")
	KeyPath           = capitan.NewStringKey("path")
	KeyProcessor      = capitan.NewStringKey("processor")
	KeyDuration       = capitan.NewDurationKey("duration")
	KeyError          = capitan.NewErrorKey("error")
	KeyDecryptedCount = capitan.NewIntKey("decrypted_count")
	KeyModifiedCount  = capitan.NewIntKey("modified_count")
	KeyFileCount      = capitan.NewIntKey("file_count")
	KeySourceCount    = capitan.NewIntKey("source_count")
	KeyWrappedCount   = capitan.NewIntKey("wrapped_count")
	KeyChanged        = capitan.NewBoolKey("changed")
)

// emitProviderWrapped emits an event when a provider is wrapped.
func emitProviderWrapped(ctx context.Context, providerType string) {
	capitan.Emit(ctx, SignalProviderWrapped, KeyProviderType.Field(providerType))
}

// emitProviderSkipped emits an event when wrapping is skipped.
func emitProviderSkipped(ctx context.Context, providerType string, err error) {
	capitan.Error(ctx, SignalProviderSkipped,
		KeyProviderType.Field(providerType),
		KeyError.Field(err),
	)
}

// emitLoadStart emits an event when load begins.
func emitLoadStart(ctx context.Context, providerType string) {
	capitan.Emit(ctx, SignalLoadStart, KeyProviderType.Field(providerType))
}

// emitLoadComplete emits an event when load finishes.
func emitLoadComplete(ctx context.Context, providerType string, duration time.Duration, decrypted int, err error) {
	fields := []capitan.Field{
		KeyProviderType.Field(providerType),
		KeyDuration.Field(duration),
		KeyDecryptedCount.Field(decrypted),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalLoadComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalLoadComplete, fields...)
	}
}

// emitReloadComplete emits an event when reload decryption finishes.
func emitReloadComplete(ctx context.Context, providerType string, duration time.Duration, decrypted int, err error) {
	fields := []capitan.Field{
		KeyProviderType.Field(providerType),
		KeyDuration.Field(duration),
		KeyDecryptedCount.Field(decrypted),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalReloadComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalReloadComplete, fields...)
	}
}

// EmitFileProtected emits an event when one file has been processed.
func EmitFileProtected(ctx context.Context, path, processor string, changed bool, err error) {
	fields := []capitan.Field{
		KeyPath.Field(path),
		KeyProcessor.Field(processor),
		KeyChanged.Field(changed),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalFileProtected, fields...)
	} else {
		capitan.Emit(ctx, SignalFileProtected, fields...)
	}
}

// EmitFilesComplete emits an event when a directory sweep finishes.
func EmitFilesComplete(ctx context.Context, path string, files, modified int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyPath.Field(path),
		KeyFileCount.Field(files),
		KeyModifiedCount.Field(modified),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalFilesComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalFilesComplete, fields...)
	}
}

// emitBuilderBuilt emits an event when the builder composes a root.
func emitBuilderBuilt(ctx context.Context, sources, wrapped int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeySourceCount.Field(sources),
		KeyWrappedCount.Field(wrapped),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalBuilderBuilt, fields...)
	} else {
		capitan.Emit(ctx, SignalBuilderBuilt, fields...)
	}
}
