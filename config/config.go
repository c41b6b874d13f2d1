package config

import (
	"log"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/exp/maps"
)

// UploadExtensions are the audio container types accepted for upload.
var UploadExtensions = map[string]bool{
	".m4a":  true,
	".wav":  true,
	".mp3":  true,
	".flac": true,
	".ogg":  true,
}

// UploadExtensionList returns the accepted extensions, sorted, for error
// messages.
func UploadExtensionList() string {
	exts := maps.Keys(UploadExtensions)
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

// Config is the full environment surface. Every variable carries the JAM_
// prefix, e.g. JAM_DATA_DIR, JAM_DB_PATH, JAM_R2_BUCKET.
type Config struct {
	DataDir      string   `envconfig:"DATA_DIR" default:"."`
	DBPath       string   `envconfig:"DB_PATH" default:"jam_sessions.db"`
	InputDir     string   `envconfig:"INPUT_DIR" default:"recordings"`
	OutputDir    string   `envconfig:"OUTPUT_DIR" default:"tracks"`
	ReferenceDir string   `envconfig:"REFERENCE_DIR" default:"references"`
	CORSOrigins  []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`
	Port         int      `envconfig:"PORT" default:"8000"`
	MaxUploadMB  int64    `envconfig:"MAX_UPLOAD_MB" default:"500"`
	JWTSecret    string   `envconfig:"JWT_SECRET"`
	APIKey       string   `envconfig:"API_KEY"`

	R2AccountID       string `envconfig:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `envconfig:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `envconfig:"R2_SECRET_ACCESS_KEY"`
	R2Bucket          string `envconfig:"R2_BUCKET"`
	R2CustomDomain    string `envconfig:"R2_CUSTOM_DOMAIN"`
}

// Load reads .env (if present) and the JAM_* environment. Relative
// directories are anchored at DataDir, which itself is made absolute.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("jam", &cfg); err != nil {
		return Config{}, err
	}

	abs, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return Config{}, err
	}
	cfg.DataDir = abs
	cfg.DBPath = cfg.anchor(cfg.DBPath)
	cfg.InputDir = cfg.anchor(cfg.InputDir)
	cfg.OutputDir = cfg.anchor(cfg.OutputDir)
	cfg.ReferenceDir = cfg.anchor(cfg.ReferenceDir)
	return cfg, nil
}

func ProvideConfig() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal(err.Error())
	}
	return cfg
}

func (c Config) anchor(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// ResolvePath resolves a stored path to absolute. Absolute paths pass
// through; relative paths are anchored at DataDir.
func (c Config) ResolvePath(stored string) string {
	return c.anchor(stored)
}

// MakeRelative converts an absolute path to a DataDir-relative string for
// storage. Paths outside DataDir are returned unchanged.
func (c Config) MakeRelative(absolute string) string {
	rel, err := filepath.Rel(c.DataDir, absolute)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return absolute
	}
	return rel
}

// OutputDirForSource returns the output subdirectory for a source file stem.
func (c Config) OutputDirForSource(stem string) string {
	return filepath.Join(c.OutputDir, stem)
}

var Options = ProvideConfig
