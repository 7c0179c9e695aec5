// Package secrets copies portal secrets (session keys, database URL, Redis
// password) from a HashiCorp Vault KV engine into the process environment so
// config.Load picks them up like any other variable.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/serviceportal/pkg/retry"
)

// VaultConfig describes where the secrets live
type VaultConfig struct {
	Enabled   bool
	Addr      string
	Token     string
	Namespace string
	Mount     string
	Path      string
	KVVersion int
	Timeout   time.Duration
	// Overwrite replaces variables that are already set
	Overwrite bool
}

// VaultConfigFromEnv reads VAULT_* variables
func VaultConfigFromEnv() VaultConfig {
	cfg := VaultConfig{
		Enabled:   strings.EqualFold(os.Getenv("VAULT_ENABLED"), "true"),
		Addr:      os.Getenv("VAULT_ADDR"),
		Token:     os.Getenv("VAULT_TOKEN"),
		Namespace: os.Getenv("VAULT_NAMESPACE"),
		Mount:     "secret",
		Path:      os.Getenv("VAULT_PATH"),
		KVVersion: 2,
		Timeout:   5 * time.Second,
		Overwrite: strings.EqualFold(os.Getenv("VAULT_OVERWRITE"), "true"),
	}
	if v := os.Getenv("VAULT_MOUNT"); v != "" {
		cfg.Mount = v
	}
	if v, err := strconv.Atoi(os.Getenv("VAULT_KV_VERSION")); err == nil {
		cfg.KVVersion = v
	}
	if ms, err := strconv.Atoi(os.Getenv("VAULT_TIMEOUT_MS")); err == nil && ms > 0 {
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	return cfg
}

func (c VaultConfig) validate() error {
	if c.Addr == "" || c.Token == "" || strings.Trim(c.Mount, "/") == "" || strings.Trim(c.Path, "/") == "" {
		return errors.New("vault configuration incomplete (VAULT_ADDR, VAULT_TOKEN, VAULT_PATH)")
	}
	return nil
}

// Result lists the variables that were set and those left alone
type Result struct {
	Loaded  []string
	Skipped []string
}

// Loader fetches one Vault secret and exports its keys as environment variables
type Loader struct {
	cfg    VaultConfig
	retry  retry.Config
	getenv func(string) string
	setenv func(string, string) error
}

// NewLoader creates a loader for cfg
func NewLoader(cfg VaultConfig) *Loader {
	rc := retry.DefaultConfig()
	rc.MaxAttempts = 3
	rc.MaxTotalTimeout = 3 * cfg.Timeout

	return &Loader{
		cfg:    cfg,
		retry:  rc,
		getenv: os.Getenv,
		setenv: os.Setenv,
	}
}

// Apply is a no-op when Vault is disabled
func (l *Loader) Apply(ctx context.Context) (Result, error) {
	var res Result
	if !l.cfg.Enabled {
		return res, nil
	}

	if err := l.cfg.validate(); err != nil {
		return res, err
	}

	client, err := l.newClient()
	if err != nil {
		return res, err
	}

	var data map[string]any
	err = retry.DoWithLog(ctx, l.retry, "vault", func() error {
		var err error
		data, err = l.fetch(ctx, client)
		return err
	}, func(attempt int, err error, nextDelay time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("Vault fetch failed")
	})
	if err != nil {
		return res, err
	}

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !l.cfg.Overwrite && l.getenv(key) != "" {
			res.Skipped = append(res.Skipped, key)
			continue
		}
		if err := l.setenv(key, stringify(data[key])); err != nil {
			return res, fmt.Errorf("setting %s: %w", key, err)
		}
		res.Loaded = append(res.Loaded, key)
	}

	log.Info().Str("path", l.cfg.Path).Int("loaded", len(res.Loaded)).Int("skipped", len(res.Skipped)).Msg("Applied Vault secrets")
	return res, nil
}

func (l *Loader) newClient() (*vaultapi.Client, error) {
	cfg := vaultapi.DefaultConfig()
	cfg.Address = l.cfg.Addr
	// retries are driven by l.retry
	cfg.MaxRetries = 0
	if l.cfg.Timeout > 0 {
		cfg.Timeout = l.cfg.Timeout
	}

	client, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating vault client: %w", err)
	}
	client.SetToken(l.cfg.Token)
	if l.cfg.Namespace != "" {
		client.SetNamespace(l.cfg.Namespace)
	}
	return client, nil
}

func (l *Loader) fetch(ctx context.Context, client *vaultapi.Client) (map[string]any, error) {
	mount := strings.Trim(l.cfg.Mount, "/")
	path := strings.Trim(l.cfg.Path, "/")

	var (
		secret *vaultapi.KVSecret
		err    error
	)
	if l.cfg.KVVersion == 1 {
		secret, err = client.KVv1(mount).Get(ctx, path)
	} else {
		secret, err = client.KVv2(mount).Get(ctx, path)
	}
	if err != nil {
		return nil, fmt.Errorf("vault fetch failed: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, errors.New("vault response has no data")
	}
	return secret.Data, nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}
