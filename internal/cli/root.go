// Package cli implements the protectcfg command: an authoring tool that
// turns Protect:{...} markers into Protected:{...} ciphertext in files,
// values and the environment, and reads protected files back.
package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable bound to a persistent flag.
const EnvPrefix = "PROTECTCFG"

// ConfigName is the optional config file searched in the working directory.
const ConfigName = "protectcfg"

// app holds the state shared by one command invocation.
type app struct {
	v      *viper.Viper
	logger *log.Logger
}

// NewRootCmd returns a fresh protectcfg command tree. Each call has its own
// viper instance so tests can run commands in isolation.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "protectcfg",
		Short: "Protect secrets embedded in configuration",
		Long: `protectcfg encrypts values marked Protect:{...} into Protected:{...}
tokens. It rewrites configuration files in place, protects single values
or environment variables, and decrypts protected files for inspection.

Persistent flags may also be set through PROTECTCFG_* environment variables
or a protectcfg.yaml file in the working directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Config file (default ./protectcfg.yaml when present)")
	flags.String("algorithm", "aes", "Protect provider: aes, rsa, kms or passthrough")
	flags.String("key", "", "Base64 master key for aes (16, 24 or 32 bytes)")
	flags.Bool("passphrase-prompt", false, "Derive the aes master key from a passphrase read from the terminal")
	flags.String("salt", "", "Base64 salt used with --passphrase-prompt")
	flags.String("purpose", "protectcfg", "Purpose isolating ciphertext between applications")
	flags.String("rsa-key", "", "PEM file holding an rsa private key, or a public key to encrypt only")
	flags.String("kms-key-id", "", "KMS key ID or ARN for the kms algorithm")
	flags.String("region", "", "AWS region for the kms algorithm")
	flags.String("protect-pattern", "", "Override the Protect:{...} pattern")
	flags.String("protected-pattern", "", "Override the Protected:{...} pattern")
	flags.String("template", "", "Override the Protected:{${data}} template")
	flags.BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		a.newFilesCmd(),
		a.newValueCmd(),
		a.newDecryptCmd(),
		a.newEnvCmd(),
		a.newShowCmd(),
	)
	return cmd
}

// Execute runs the protectcfg command with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// setup binds flags, environment and config file into viper and creates
// the logger writing to the command's error stream.
func (a *app) setup(cmd *cobra.Command) error {
	a.v.SetEnvPrefix(EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	if path := a.v.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		a.v.SetConfigName(ConfigName)
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		if err := a.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	a.logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix: "protectcfg",
		Level:  log.InfoLevel,
	})
	if a.v.GetBool("verbose") {
		a.logger.SetLevel(log.DebugLevel)
	}
	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("using config file", "path", used)
	}
	return nil
}
