package cli

import (
	"bufio"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zoobzio/protected"
	"github.com/zoobzio/protected/kms"
)

var (
	errNoKey            = errors.New("aes requires --key or --passphrase-prompt")
	errNoSalt           = errors.New("--passphrase-prompt requires --salt")
	errEmptyPassphrase  = errors.New("passphrase is empty")
	errUnknownAlgorithm = errors.New("unknown algorithm")
	errNoRSAKey         = errors.New("rsa requires --rsa-key")
	errInvalidRSAKey    = errors.New("invalid rsa key")
)

// protectConfig builds the protect configuration from the bound settings.
func (a *app) protectConfig(cmd *cobra.Command) (*protected.ProtectConfig, error) {
	provider, err := a.provider(cmd)
	if err != nil {
		return nil, err
	}

	var opts []protected.Option
	if p := a.v.GetString("protect-pattern"); p != "" {
		opts = append(opts, protected.WithProtectPattern(p))
	}
	if p := a.v.GetString("protected-pattern"); p != "" {
		opts = append(opts, protected.WithProtectedPattern(p))
	}
	if t := a.v.GetString("template"); t != "" {
		opts = append(opts, protected.WithReplaceTemplate(t))
	}

	cfg, err := protected.DefaultProtectConfig(provider, opts...)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) provider(cmd *cobra.Command) (protected.ProtectProvider, error) {
	algorithm := protected.Algorithm(strings.ToLower(a.v.GetString("algorithm")))
	if !protected.IsValidAlgorithm(algorithm) {
		return nil, fmt.Errorf("%w: %q (want one of %v)", errUnknownAlgorithm, algorithm, protected.Algorithms())
	}
	purpose := a.v.GetString("purpose")
	a.logger.Debug("building provider", "algorithm", algorithm, "purpose", purpose)

	switch algorithm {
	case protected.AlgorithmPassthrough:
		a.logger.Warn("passthrough provider stores secrets in clear text")
		return protected.Passthrough(), nil
	case protected.AlgorithmAES:
		key, err := a.masterKey(cmd)
		if err != nil {
			return nil, err
		}
		return protected.AES(key, purpose)
	case protected.AlgorithmRSA:
		pub, priv, err := readRSAKey(a.v.GetString("rsa-key"))
		if err != nil {
			return nil, err
		}
		return protected.RSA(pub, priv, purpose), nil
	default:
		return kms.NewFromRegion(a.v.GetString("region"), a.v.GetString("kms-key-id"), purpose)
	}
}

// readRSAKey loads a PEM key. A private key (PKCS#1 or PKCS#8) allows both
// directions; a public key only encrypts.
func readRSAKey(path string) (*rsa.PublicKey, *rsa.PrivateKey, error) {
	if path == "" {
		return nil, nil, errNoRSAKey
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rsa key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, nil, fmt.Errorf("%w: %s holds no PEM block", errInvalidRSAKey, path)
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", errInvalidRSAKey, err)
		}
		return &priv.PublicKey, priv, nil
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", errInvalidRSAKey, err)
		}
		priv, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %T is not an rsa key", errInvalidRSAKey, key)
		}
		return &priv.PublicKey, priv, nil
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", errInvalidRSAKey, err)
		}
		pub, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %T is not an rsa key", errInvalidRSAKey, key)
		}
		return pub, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: unexpected PEM block %q", errInvalidRSAKey, block.Type)
	}
}

// masterKey returns the aes master key, either decoded from --key or
// stretched from a passphrase with Argon2id.
func (a *app) masterKey(cmd *cobra.Command) ([]byte, error) {
	if encoded := a.v.GetString("key"); encoded != "" {
		key, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid --key: %w", err)
		}
		return key, nil
	}

	if !a.v.GetBool("passphrase-prompt") {
		return nil, errNoKey
	}

	encodedSalt := a.v.GetString("salt")
	if encodedSalt == "" {
		return nil, errNoSalt
	}
	salt, err := base64.StdEncoding.DecodeString(encodedSalt)
	if err != nil {
		return nil, fmt.Errorf("invalid --salt: %w", err)
	}

	passphrase, err := readPassphrase(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return protected.KeyFromPassphrase(passphrase, salt), nil
}

// readPassphrase reads without echo when in is a terminal and falls back
// to the first line of in otherwise.
func readPassphrase(in io.Reader, prompt io.Writer) ([]byte, error) {
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		fmt.Fprint(prompt, "Passphrase: ")
		passphrase, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return nil, fmt.Errorf("failed to read passphrase: %w", err)
		}
		if len(passphrase) == 0 {
			return nil, errEmptyPassphrase
		}
		return passphrase, nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, errEmptyPassphrase
	}
	return []byte(line), nil
}
