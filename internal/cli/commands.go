package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zoobzio/protected"
	"github.com/zoobzio/protected/configuration"
	"github.com/zoobzio/protected/files"
	"github.com/zoobzio/protected/json"
	"github.com/zoobzio/protected/xml"
	"github.com/zoobzio/protected/yaml"
)

// Redacted replaces decrypted values in show output with --mask full.
const Redacted = "<redacted>"

var errUnsupportedFile = errors.New("unsupported file type")

func (a *app) newFilesCmd() *cobra.Command {
	var (
		pattern   string
		recursive bool
		noBackup  bool
		comments  bool
		processor string
	)

	cmd := &cobra.Command{
		Use:   "files DIR",
		Short: "Protect marked values in every matching file of a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.protectConfig(cmd)
			if err != nil {
				return err
			}

			opts := []files.Option{files.WithPattern(pattern)}
			if recursive {
				opts = append(opts, files.WithRecursive())
			}
			if noBackup {
				opts = append(opts, files.WithoutBackup())
			}
			switch {
			case processor != "":
				named, err := files.NamedFileOptions(processor)
				if err != nil {
					return err
				}
				opts = append(opts, files.WithFileOptions(named...))
			case comments:
				opts = append(opts, files.WithFileOptions(files.CommentsFileOptions()...))
			}

			a.logger.Debug("protecting files", "dir", args[0], "pattern", pattern, "recursive", recursive)
			changed, err := files.ProtectFiles(cfg, args[0], opts...)
			for _, path := range changed {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			if err != nil {
				return err
			}
			a.logger.Info("protected files", "changed", len(changed))
			return nil
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", files.DefaultPattern, "Glob selecting files by name")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into subdirectories")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Do not keep a "+files.BackupSuffix+" copy of rewritten files")
	cmd.Flags().BoolVar(&comments, "jsonc", false, "Treat .json and .jsonc files as JSON with comments")
	cmd.Flags().StringVar(&processor, "processor", "", "Process every matched file with this registered processor (json, jsonc, xml, yaml, raw)")
	return cmd
}

func (a *app) newValueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "value VALUE...",
		Short: "Protect marked values given as arguments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.protectConfig(cmd)
			if err != nil {
				return err
			}
			out, err := protected.ProtectValues(cfg, args)
			if err != nil {
				return err
			}
			for _, v := range out {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}
}

func (a *app) newDecryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt VALUE...",
		Short: "Decrypt protected values given as arguments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.protectConfig(cmd)
			if err != nil {
				return err
			}
			for _, v := range args {
				plain, err := cfg.Unprotect(v)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), plain)
			}
			return nil
		},
	}
}

func (a *app) newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Protect marked environment variables and print them as NAME=value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.protectConfig(cmd)
			if err != nil {
				return err
			}
			changed, err := protected.ProtectEnvironment(cfg, protected.ProcessEnvironment())
			if err != nil {
				return err
			}
			for _, name := range changed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", name, os.Getenv(name))
			}
			a.logger.Debug("protected environment", "changed", len(changed))
			return nil
		},
	}
}

func (a *app) newShowCmd() *cobra.Command {
	var (
		reveal bool
		mode   string
	)

	cmd := &cobra.Command{
		Use:   "show FILE...",
		Short: "Load configuration files and print the effective keys",
		Long: `show loads the files in order, later files overriding earlier ones, and
prints every key as key=value. Values that were protected are hidden
according to --mask unless --reveal is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mask, err := newMasker(MaskMode(mode))
			if err != nil {
				return err
			}
			cfg, err := a.protectConfig(cmd)
			if err != nil {
				return err
			}

			raw := configuration.NewBuilder()
			decrypted := protected.NewBuilder(cfg, protected.WithStrict())
			for _, path := range args {
				src, err := fileSource(path)
				if err != nil {
					return err
				}
				raw.Add(src)
				decrypted.Add(src)
			}

			rawRoot, err := raw.Build()
			if err != nil {
				return err
			}
			defer rawRoot.Close()

			root, err := decrypted.Build()
			if err != nil {
				return err
			}
			defer root.Close()

			values := root.AsMap()
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			slices.Sort(keys)

			for _, k := range keys {
				v := values[k]
				if !reveal && v != rawRoot.Get(k) {
					v = mask(v)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, v)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print decrypted values")
	cmd.Flags().StringVar(&mode, "mask", string(MaskFull), "How to hide decrypted values: full, last4 or email")
	return cmd
}

// fileSource picks the configuration source for path by extension.
func fileSource(path string) (configuration.Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return &json.Source{Path: path}, nil
	case ".jsonc":
		return &json.Source{Path: path, AllowComments: true}, nil
	case ".xml":
		return &xml.Source{Path: path}, nil
	case ".yaml", ".yml":
		return &yaml.Source{Path: path}, nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedFile, path)
	}
}
