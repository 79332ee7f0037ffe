// Package files protects the tokens of configuration files in place.
//
//	cfg, _ := protected.DefaultProtectConfig(provider)
//	modified, err := files.ProtectFiles(cfg, "./config",
//	    files.WithPattern("*.*"),
//	    files.WithRecursive(),
//	)
//
// Every rewritten file is first copied to a ".bak" sibling. Files whose
// content does not change are never written, so running a sweep twice
// modifies nothing the second time.
package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/zoobzio/protected"
	"github.com/zoobzio/protected/json"
	"github.com/zoobzio/protected/xml"
	"github.com/zoobzio/protected/yaml"
)

// BackupSuffix is appended to the path of a file's backup copy.
const BackupSuffix = ".bak"

// DefaultPattern is the file name glob used when none is given.
const DefaultPattern = "*.json"

// ErrUnknownProcessor is returned by NamedFileOptions for unregistered names.
var ErrUnknownProcessor = errors.New("unknown file processor")

// DefaultFileOptions returns the processor table used when none is given:
// JSON, XML and YAML by extension, then a raw catch-all.
func DefaultFileOptions() []protected.FileProtectOption {
	return []protected.FileProtectOption{
		{Name: json.Name, Pattern: regexp.MustCompile(`(?i)\.json$`), Processor: json.New()},
		{Name: xml.Name, Pattern: regexp.MustCompile(`(?i)\.xml$`), Processor: xml.New()},
		{Name: yaml.Name, Pattern: regexp.MustCompile(`(?i)\.ya?ml$`), Processor: yaml.New()},
		{Name: "raw", Pattern: regexp.MustCompile(`.*`), Processor: protected.RawProcessor()},
	}
}

// CommentsFileOptions is DefaultFileOptions with JSON files, including
// .jsonc, handled by the comment-preserving processor.
func CommentsFileOptions() []protected.FileProtectOption {
	opts := DefaultFileOptions()
	opts[0] = protected.FileProtectOption{
		Name:      json.CommentsName,
		Pattern:   regexp.MustCompile(`(?i)\.jsonc?$`),
		Processor: json.NewWithComments(),
	}
	return opts
}

// NamedFileOptions returns a table applying the processor registered under
// name to every file, whatever its extension.
func NamedFileOptions(name string) ([]protected.FileProtectOption, error) {
	p, ok := protected.LookupProcessor(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)", ErrUnknownProcessor, name, strings.Join(protected.ProcessorNames(), ", "))
	}
	return []protected.FileProtectOption{{Name: name, Pattern: regexp.MustCompile(`.*`), Processor: p}}, nil
}

// Option configures ProtectFiles.
type Option func(*options)

type options struct {
	pattern     string
	recursive   bool
	backup      bool
	fileOptions []protected.FileProtectOption
}

// WithPattern sets the file name glob, matched against base names.
func WithPattern(glob string) Option {
	return func(o *options) {
		o.pattern = glob
	}
}

// WithRecursive includes subdirectories.
func WithRecursive() Option {
	return func(o *options) {
		o.recursive = true
	}
}

// WithoutBackup disables the ".bak" copy.
func WithoutBackup() Option {
	return func(o *options) {
		o.backup = false
	}
}

// WithFileOptions replaces the processor table.
func WithFileOptions(opts ...protected.FileProtectOption) Option {
	return func(o *options) {
		o.fileOptions = opts
	}
}

// ProtectFiles protects every file of dir whose name matches the pattern
// and returns the paths of the files it rewrote. A failure on one file is
// collected and the sweep continues; the returned error aggregates them.
func ProtectFiles(cfg *protected.ProtectConfig, dir string, opts ...Option) ([]string, error) {
	o := options{pattern: DefaultPattern, backup: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.fileOptions == nil {
		o.fileOptions = DefaultFileOptions()
	}
	if !cfg.IsValid() {
		return nil, fmt.Errorf("%w: %w", protected.ErrInvalidConfig, cfg.Validate())
	}
	if _, err := filepath.Match(o.pattern, ""); err != nil {
		return nil, err
	}

	ctx := context.Background()
	start := time.Now()

	paths, err := list(dir, o.pattern, o.recursive)
	if err != nil {
		protected.EmitFilesComplete(ctx, dir, 0, 0, time.Since(start), err)
		return nil, err
	}

	var result *multierror.Error
	var modified []string
	for _, path := range paths {
		changed, err := protectFile(ctx, cfg, path, o.fileOptions, o.backup)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if changed {
			modified = append(modified, path)
		}
	}

	err = result.ErrorOrNil()
	protected.EmitFilesComplete(ctx, dir, len(paths), len(modified), time.Since(start), err)
	return modified, err
}

// ProtectFile protects a single file with the first matching option and
// reports whether it was rewritten.
func ProtectFile(cfg *protected.ProtectConfig, path string, fileOptions []protected.FileProtectOption, backup bool) (bool, error) {
	if !cfg.IsValid() {
		return false, fmt.Errorf("%w: %w", protected.ErrInvalidConfig, cfg.Validate())
	}
	return protectFile(context.Background(), cfg, path, fileOptions, backup)
}

func protectFile(ctx context.Context, cfg *protected.ProtectConfig, path string, fileOptions []protected.FileProtectOption, backup bool) (bool, error) {
	opt, ok := match(fileOptions, path)
	if !ok {
		return false, nil
	}

	changed, err := rewrite(cfg, path, opt, backup)
	protected.EmitFileProtected(ctx, path, opt.Name, changed, err)
	return changed, err
}

func rewrite(cfg *protected.ProtectConfig, path string, opt protected.FileProtectOption, backup bool) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, protected.NewFileError(protected.ErrReadFile, path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, protected.NewFileError(protected.ErrReadFile, path, err)
	}

	raw := string(data)
	processed, err := opt.Processor.ProtectFile(raw, cfg.ProtectPattern(), cfg.Protect)
	if err != nil {
		return false, protected.NewFileError(protected.ErrProcessFile, path, err)
	}
	if processed == raw {
		return false, nil
	}

	if backup {
		if err := os.WriteFile(path+BackupSuffix, data, info.Mode().Perm()); err != nil {
			return false, protected.NewFileError(protected.ErrWriteFile, path+BackupSuffix, err)
		}
	}
	if err := os.WriteFile(path, []byte(processed), info.Mode().Perm()); err != nil {
		return false, protected.NewFileError(protected.ErrWriteFile, path, err)
	}
	return true, nil
}

// match returns the first option whose pattern matches path.
func match(fileOptions []protected.FileProtectOption, path string) (protected.FileProtectOption, bool) {
	for _, opt := range fileOptions {
		if opt.Pattern != nil && opt.Pattern.MatchString(path) {
			return opt, true
		}
	}
	return protected.FileProtectOption{}, false
}

// list returns the regular files of dir whose base name matches pattern,
// skipping backups.
func list(dir, pattern string, recursive bool) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.HasSuffix(path, BackupSuffix) {
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}
