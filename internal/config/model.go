// internal/config/model.go
//
// Typed configuration model for qrlink.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                          – dotenv values,
//   • `conf/global.yaml`                       – primary static file,
//   • `QRLINK_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs—only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.  The master secret in particular has no
// fallback of any kind: a resolver that booted with an improvised key
// would silently break every previously issued code, so a missing or
// malformed secret aborts startup.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`—Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// Database section
//

// Database holds the DSN template and its secret.
//
// The *template* (`DSN`) is kept in YAML so operators can tweak host,
// port, or flags without touching Vault.  The *secret* portion
// (`Password`) is typically a `vault:` reference and is injected at
// runtime, keeping credentials out of flat files and git history.
type Database struct {
	DSN      string `koanf:"dsn"      validate:"required"`
	Password string `koanf:"password" validate:"required"`
}

//
// Crypto section
//

// Crypto carries the payload-envelope master secret: 64 hex characters
// encoding a 32-byte key.  Usually a `vault:` reference in YAML.
type Crypto struct {
	MasterSecret string `koanf:"master_secret" validate:"required,len=64,hexadecimal"`
}

//
// GeoIP section
//

// GeoIP points at a MaxMind country database.  Optional: with an empty
// path the resolver runs without IP-based country targeting.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

//
// Storage section
//

// Storage names the directory holding uploaded assets (PDF documents,
// wallet passes).  Relative paths are joined to Paths.Root.
type Storage struct {
	Dir string `koanf:"dir" validate:"required"`
}

//
// Telemetry section
//

// Telemetry tunes the background scan/conversion writer.  Zero values
// fall back to the sink defaults.
type Telemetry struct {
	QueueSize int `koanf:"queue_size" validate:"gte=0"`
	Workers   int `koanf:"workers"    validate:"gte=0"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime—never set in YAML or env.  The loader
// discovers `Root` (repo root or QRLINK_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // QRLINK_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Database  Database  `koanf:"database"`
	Crypto    Crypto    `koanf:"crypto"`
	GeoIP     GeoIP     `koanf:"geoip"`
	Storage   Storage   `koanf:"storage"`
	Telemetry Telemetry `koanf:"telemetry"`
	Paths     Paths     `koanf:"-"` // not loaded from config files
}
