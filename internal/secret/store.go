// Package secret resolves credentials referenced from the config file, so
// storage DSNs and Mongo URIs need not hold passwords in plain text.
package secret

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// SecretStore provides a pluggable interface for storing sensitive data
// such as database passwords.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(ctx context.Context, key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(ctx context.Context, key string) error
}

// EnvPrefix prefixes the environment variables read by EnvStore.
const EnvPrefix = "WORKSPACE_SECRET_"

// EnvStore reads secrets from the environment: key "db-password" is
// WORKSPACE_SECRET_DB_PASSWORD. It is read-only.
type EnvStore struct{}

func envName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
}

func (EnvStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := os.LookupEnv(envName(key))
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

func (EnvStore) Set(context.Context, string, []byte) error {
	return fmt.Errorf("env secrets are read-only")
}

func (EnvStore) Delete(context.Context, string) error {
	return fmt.Errorf("env secrets are read-only")
}

// Chain reads from each store in turn; writes go to the first.
type Chain []SecretStore

func (c Chain) Get(ctx context.Context, key string) ([]byte, error) {
	for _, s := range c {
		v, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if len(v) > 0 {
			return v, nil
		}
	}
	return nil, nil
}

func (c Chain) Set(ctx context.Context, key string, value []byte) error {
	if len(c) == 0 {
		return fmt.Errorf("no secret store")
	}
	return c[0].Set(ctx, key, value)
}

func (c Chain) Delete(ctx context.Context, key string) error {
	if len(c) == 0 {
		return fmt.Errorf("no secret store")
	}
	return c[0].Delete(ctx, key)
}

// Default reads the system keychain, then the environment. Writes go to
// the keychain.
func Default() SecretStore {
	return Chain{NewKeychainStore(), EnvStore{}}
}

var refPattern = regexp.MustCompile(`\$\{secret:([A-Za-z0-9_.-]+)\}`)

// Expand replaces every ${secret:key} in s with the stored value. A missing
// secret is an error.
func Expand(ctx context.Context, s string, store SecretStore) (string, error) {
	var firstErr error
	out := refPattern.ReplaceAllStringFunc(s, func(ref string) string {
		if firstErr != nil {
			return ref
		}
		key := refPattern.FindStringSubmatch(ref)[1]
		v, err := store.Get(ctx, key)
		switch {
		case err != nil:
			firstErr = fmt.Errorf("read secret %s: %w", key, err)
		case len(v) == 0:
			firstErr = fmt.Errorf("secret %s is not set", key)
		}
		return string(v)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}
