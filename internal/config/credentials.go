package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var (
	ErrMissingCredential = errors.New("no Slack token passed via --token, --token-file or the token environment variable")
	ErrCredentialFile    = errors.New("token file is unreadable or empty")
)

type TokenSource string

const (
	TokenSourceFlag TokenSource = "flag"
	TokenSourceFile TokenSource = "file"
	TokenSourceEnv  TokenSource = "env"
)

// LookupEnvFunc matches os.LookupEnv.
type LookupEnvFunc func(key string) (string, bool)

// ResolveToken picks the Slack token. An explicit token wins over a token
// file, which wins over the named environment variable.
func ResolveToken(cfg *Config, fs afero.Fs, lookupEnv LookupEnvFunc) (string, TokenSource, error) {
	if token := strings.TrimSpace(cfg.Token); token != "" {
		return token, TokenSourceFlag, nil
	}

	if path := strings.TrimSpace(cfg.TokenFile); path != "" {
		b, err := afero.ReadFile(fs, path)
		if err != nil {
			return "", "", errors.Wrapf(ErrCredentialFile, "%s: %v", path, err)
		}
		token := strings.TrimSpace(string(b))
		if token == "" {
			return "", "", errors.Wrapf(ErrCredentialFile, "%s is empty", path)
		}
		return token, TokenSourceFile, nil
	}

	if lookupEnv != nil {
		if token, ok := lookupEnv(cfg.TokenEnv); ok && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token), TokenSourceEnv, nil
		}
	}

	return "", "", errors.Wrapf(ErrMissingCredential, "checked %s", cfg.TokenEnv)
}
