package configuration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDelay is the debounce applied to file change events.
const DefaultReloadDelay = 250 * time.Millisecond

// reloadRetries bounds the re-reads attempted when a changed file cannot be
// parsed, typically because a writer has not finished with it.
const reloadRetries = 3

// Parser flattens file content into configuration keys.
type Parser func(data []byte) (map[string]string, error)

// FileSource reads a configuration file with Parser.
type FileSource struct {
	Path string

	// Optional makes a missing file load as an empty set instead of an error.
	Optional bool

	// ReloadOnChange watches the file and reloads it when it changes.
	ReloadOnChange bool

	// ReloadDelay debounces change events. Zero means DefaultReloadDelay.
	ReloadDelay time.Duration

	Parser Parser
}

// Build returns a FileProvider for the source.
func (s *FileSource) Build(Builder) (Provider, error) {
	if s.Parser == nil {
		return nil, fmt.Errorf("file source %s: no parser", s.Path)
	}
	return NewFileProvider(*s), nil
}

// FileProvider serves the parsed content of a file and, when configured,
// reloads it on change.
type FileProvider struct {
	*DataProvider
	source FileSource

	watchOnce sync.Once
	watchErr  error
	watcher   *fsnotify.Watcher
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewFileProvider returns a provider for source. The file is read on Load.
func NewFileProvider(source FileSource) *FileProvider {
	if source.ReloadDelay <= 0 {
		source.ReloadDelay = DefaultReloadDelay
	}
	p := &FileProvider{source: source}

	var opts []ProviderOption
	if source.ReloadOnChange {
		opts = append(opts, WithReload())
	}
	p.DataProvider = NewDataProvider(p.read, opts...)
	return p
}

// Path returns the watched file path.
func (p *FileProvider) Path() string {
	return p.source.Path
}

// Load reads and parses the file. The first Load of a reloading provider
// also starts its watcher.
func (p *FileProvider) Load() error {
	if err := p.DataProvider.Load(); err != nil {
		return err
	}
	if p.source.ReloadOnChange {
		p.watchOnce.Do(func() { p.watchErr = p.watch() })
		return p.watchErr
	}
	return nil
}

func (p *FileProvider) read() (map[string]string, error) {
	data, err := os.ReadFile(p.source.Path)
	if err != nil {
		if p.source.Optional && errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", p.source.Path, err)
	}
	parsed, err := p.source.Parser(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.source.Path, err)
	}
	return parsed, nil
}

// reload re-reads the file with retries. On success the data is replaced
// and the reload token fires; on failure the previous data is kept.
func (p *FileProvider) reload() {
	ctx := context.Background()
	start := time.Now()

	var data map[string]string
	attempt := 0
	operation := func() error {
		attempt++
		var err error
		data, err = p.read()
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.source.ReloadDelay / 2
	b.MaxElapsedTime = 10 * p.source.ReloadDelay
	err := backoff.RetryNotify(operation, backoff.WithMaxRetries(b, reloadRetries), func(err error, _ time.Duration) {
		emitReloadRetry(ctx, p.source.Path, attempt, err)
	})

	emitReload(ctx, p.source.Path, len(data), time.Since(start), err)
	if err != nil {
		return
	}
	p.Replace(data)
	p.OnReload()
}

// watch watches the file's directory so that atomic replace-by-rename
// writes are observed.
func (p *FileProvider) watch() error {
	path, err := filepath.Abs(p.source.Path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return err
	}

	p.watcher = watcher
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.loop(path)

	emitWatchStarted(context.Background(), path)
	return nil
}

func (p *FileProvider) loop(path string) {
	defer close(p.done)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	resetTimer := func() {
		if timer == nil {
			timer = time.NewTimer(p.source.ReloadDelay)
			timerC = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(p.source.ReloadDelay)
		timerC = timer.C
	}

	for {
		select {
		case <-p.stop:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-timerC:
			timerC = nil
			p.reload()
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			emitReload(context.Background(), path, 0, 0, err)
		case evt, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != path {
				continue
			}
			if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				resetTimer()
			}
		}
	}
}

// Close stops the watcher, if any.
func (p *FileProvider) Close() error {
	var err error
	p.closeOnce.Do(func() {
		if p.watcher == nil {
			return
		}
		close(p.stop)
		err = p.watcher.Close()
		<-p.done
	})
	return err
}
