// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file — `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `QRLINK_`, where `__` maps to “.”
     (e.g., `QRLINK_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, any leaf whose string value starts with `vault:` is
swapped for the secret it names (`vault:<mount/path>#<key>`), then the
tree is unmarshalled into strongly-typed structs, validated, enriched
with the runtime root path, and cached in an `atomic.Pointer` for
lock-free reads.  `Reload()` simply calls `Load()` again and swaps the
pointer.

Instrumentation
---------------
  • DEBUG spans — root discovery, YAML read, env overlay, Vault lookups.
  • ERROR spans — YAML parse, env overlay, Vault, unmarshal, validation.
  • INFO  span  — final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed (bootstrap console).

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`;
    this lets `go run ./cmd/qrlinkd` work from any sub-directory.
  • The Vault client is only constructed when a `vault:` reference is
    actually present, so local development needs no Vault at all.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/ouhud/qrlink/internal/vault"
)

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves QRLINK_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("QRLINK_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves Vault references,
// validates, and caches Config.
func Load(ctx context.Context) (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: QRLINK_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider("QRLINK_", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(
			strings.TrimPrefix(s, "QRLINK_"), "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveVaultRefs(ctx, k); err != nil {
		zap.S().Errorw("config vault resolution failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	if !filepath.IsAbs(cfg.Storage.Dir) {
		cfg.Storage.Dir = filepath.Join(root, cfg.Storage.Dir)
	}
	if cfg.GeoIP.DBPath != "" && !filepath.IsAbs(cfg.GeoIP.DBPath) {
		cfg.GeoIP.DBPath = filepath.Join(root, cfg.GeoIP.DBPath)
	}

	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"storage_dir", cfg.Storage.Dir,
		"geoip", cfg.GeoIP.DBPath != "",
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── vault overlay ───────────────────────────────*/

const vaultPrefix = "vault:"

// resolveVaultRefs walks every leaf of the merged tree and replaces
// `vault:<mount/path>#<key>` strings with the named secret.  The client
// is built lazily on the first reference found.
func resolveVaultRefs(ctx context.Context, k *koanf.Koanf) error {
	var cli *vault.Client

	for key, raw := range k.All() {
		s, ok := raw.(string)
		if !ok || !strings.HasPrefix(s, vaultPrefix) {
			continue
		}

		if cli == nil {
			var err error
			cli, err = vault.New(ctx, zap.S().Infof)
			if err != nil {
				return fmt.Errorf("vault client: %w", err)
			}
		}

		ref := strings.TrimPrefix(s, vaultPrefix)
		path, field, found := strings.Cut(ref, "#")
		if !found || path == "" || field == "" {
			return fmt.Errorf("config key %q: malformed vault reference %q", key, s)
		}

		val, err := cli.GetKV(ctx, path, field, 5*time.Minute)
		if err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
		zap.S().Debugw("config vault reference resolved", "key", key, "path", path)
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config              { return current.Load() }
func Reload(ctx context.Context) error { _, err := Load(ctx); return err }
