// Package protected stores selected configuration values encrypted and
// decrypts them transparently when configuration is loaded or reloaded.
//
// # Tokens
//
// Values to protect are marked inline in configuration data:
//
//	Protect:{plaintext}
//	Protect:{subPurpose}:{plaintext}
//
// Protecting replaces each marker with its encrypted form:
//
//	Protected:{ciphertext}
//	Protected:{subPurpose}:{ciphertext}
//
// Text outside markers is never touched. A sub-purpose selects a provider
// derived with DeriveSubProvider, isolating ciphertext namespaces.
// Patterns and the replacement template are configurable through
// ProtectConfig.
//
// # Providers
//
// A ProtectProvider performs the cryptography:
//
//   - AES: AES-256-GCM with HKDF purpose-derived keys
//   - RSA: RSA-OAEP with the purpose as label
//   - Passthrough: identity, for tests
//   - Chain: composition of providers
//
// The kms sub-package adds an AWS KMS provider.
//
// # Authoring
//
// Files are protected in place at authoring time with the files
// sub-package, or values with ProtectValue, ProtectMap and friends:
//
//	cfg, err := protected.DefaultProtectConfig(provider)
//	modified, err := files.ProtectFiles(cfg, "./config")
//
// # Loading
//
// At runtime every source is wrapped so protected values are decrypted on
// Load and on every reload:
//
//	root, err := protected.NewBuilder(cfg).
//	    Add(&json.Source{Path: "appsettings.json", ReloadOnChange: true}).
//	    Add(&configuration.EnvironmentSource{Prefix: "APP_"}).
//	    Build()
//
// # Signals
//
// Operations emit capitan signals (SignalLoadComplete, SignalReloadComplete,
// SignalFileProtected, ...) carrying counts, durations and errors.
package protected

import "regexp"

// ProtectProvider encrypts and decrypts configuration values.
// Implementations must be safe for concurrent use.
type ProtectProvider interface {
	// Encrypt returns the ciphertext of plaintext. The result must not
	// contain characters that would terminate a token.
	Encrypt(plaintext string) (string, error)

	// Decrypt reverses Encrypt.
	Decrypt(ciphertext string) (string, error)

	// DeriveSubProvider returns a provider bound to the purpose path of
	// this provider extended with subkey. Ciphertext of one namespace
	// must not decrypt under another.
	DeriveSubProvider(subkey string) (ProtectProvider, error)
}

// ProtectFunc transforms the text of one match.
type ProtectFunc func(string) (string, error)

// FileProcessor rewrites the protect tokens of a file's content.
//
// ProtectFile applies protectFn to the candidate strings of raw that match
// protect, leaving the document structure intact. When nothing matched,
// raw must be returned unchanged.
type FileProcessor interface {
	ProtectFile(raw string, protect *regexp.Regexp, protectFn ProtectFunc) (string, error)
}

// FileProcessorFunc adapts a function to FileProcessor.
type FileProcessorFunc func(raw string, protect *regexp.Regexp, protectFn ProtectFunc) (string, error)

// ProtectFile calls f.
func (f FileProcessorFunc) ProtectFile(raw string, protect *regexp.Regexp, protectFn ProtectFunc) (string, error) {
	return f(raw, protect, protectFn)
}

// FileProtectOption pairs a file name pattern with the processor used for
// matching files. Options are evaluated in order; the first match wins.
type FileProtectOption struct {
	Name      string // reported in signals, optional
	Pattern   *regexp.Regexp
	Processor FileProcessor
}

// RawProcessor treats the whole file as one string.
func RawProcessor() FileProcessor {
	return FileProcessorFunc(func(raw string, protect *regexp.Regexp, protectFn ProtectFunc) (string, error) {
		if !protect.MatchString(raw) {
			return raw, nil
		}
		return protectFn(raw)
	})
}
