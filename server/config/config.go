package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/leafscan/pkg/kibi"
	"github.com/cyclopcam/leafscan/pkg/nn"
	"github.com/cyclopcam/leafscan/server/backend"
)

const DefaultDownloadPrefix = "Deteksi_Penyakit_"
const DefaultMaxImageBytes = 20 * 1024 * 1024

type Config struct {
	DB              dbh.DBConfig    `json:"db"`
	Listen          string          `json:"listen"`          // HTTP listen address, eg ":8080"
	ModelDir        string          `json:"modelDir"`        // Directory holding <model>.onnx and <model>.json
	OnnxLibrary     string          `json:"onnxLibrary"`     // Path to libonnxruntime. Empty for the system default.
	DownloadPrefix  string          `json:"downloadPrefix"`  // Prefix of download and export filenames
	SubmitRateLimit int             `json:"submitRateLimit"` // Submissions per minute per IP. Zero disables the limit.
	MaxImageBytes   kibi.Size       `json:"maxImageBytes"`   // Largest accepted upload, eg 20971520 or "20 MB"
	MaxImagePixels  int64           `json:"maxImagePixels"`  // Largest accepted image, as width * height
	Export          StorageConfig   `json:"export"`          // Optional destination for exported results
	Backends        []BackendConfig `json:"backends"`        // Category to backend mapping
}

// BackendConfig binds one category to a model.
// Kind decides whether the model is run as a detector or a classifier.
type BackendConfig struct {
	Category string `json:"category"`
	Kind     string `json:"kind"`     // "detector" or "classifier"
	Model    string `json:"model"`    // Model name, without extension
	ModelURL string `json:"modelUrl"` // If not empty, missing model files are downloaded from here on startup
	TopK     int    `json:"topK"`     // Number of labels returned by a classifier
}

// At most one of the storage options may be configured (i.e. either 'filesystem' or 'gcs')
type StorageConfig struct {
	Filesystem *StorageConfigFS  `json:"filesystem"`
	GCS        *StorageConfigGCS `json:"gcs"`
}

type StorageConfigFS struct {
	Root string `json:"root"` // Path to the root of the export directory
}

type StorageConfigGCS struct {
	Bucket string `json:"bucket"` // Name of the GCS bucket
	Public bool   `json:"public"` // Whether the bucket is public, so that we can hand out direct URLs
}

func (s *StorageConfig) IsConfigured() bool {
	return s.Filesystem != nil || s.GCS != nil
}

func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "leafscan"
	}
	return filepath.Join(home, "leafscan")
}

func DefaultConfig() *Config {
	return &Config{
		DB:              dbh.MakeSqliteConfig(filepath.Join(DefaultDataDir(), "results.sqlite")),
		Listen:          ":8080",
		ModelDir:        "models",
		DownloadPrefix:  DefaultDownloadPrefix,
		SubmitRateLimit: 30,
		MaxImageBytes:   DefaultMaxImageBytes,
		MaxImagePixels:  backend.DefaultMaxImagePixels,
		Backends: []BackendConfig{
			{
				Category: "model1_upload",
				Kind:     string(backend.KindDetector),
				Model:    "yolov8_leaf",
			},
			{
				Category: "model2_upload",
				Kind:     string(backend.KindClassifier),
				Model:    "efficientnet_b0",
				TopK:     nn.DefaultTopK,
			},
		},
	}
}

// LoadConfig reads a JSON config file.
// Fields that are absent from the file keep their default values.
// If the file specifies backends, they replace the default backends.
func LoadConfig(filename string) (*Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("Error loading %v: %w", filename, err)
	}
	cfg := DefaultConfig()
	defaultBackends := cfg.Backends
	cfg.Backends = nil
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("Error loading as JSON %v: %w", filename, err)
	}
	if cfg.Backends == nil {
		cfg.Backends = defaultBackends
	}
	for i := range cfg.Backends {
		if cfg.Backends[i].TopK == 0 {
			cfg.Backends[i].TopK = nn.DefaultTopK
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Invalid config %v: %w", filename, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DB.Driver != dbh.DriverSqlite && c.DB.Driver != dbh.DriverPostgres {
		return fmt.Errorf("db.driver must be '%v' or '%v'", dbh.DriverSqlite, dbh.DriverPostgres)
	}
	if c.DB.Database == "" {
		return fmt.Errorf("db.database may not be empty")
	}
	if c.SubmitRateLimit < 0 {
		return fmt.Errorf("submitRateLimit may not be negative")
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("maxImageBytes must be positive")
	}
	if c.MaxImagePixels <= 0 {
		return fmt.Errorf("maxImagePixels must be positive")
	}
	if c.Export.Filesystem != nil && c.Export.GCS != nil {
		return fmt.Errorf("export may specify 'filesystem' or 'gcs', but not both")
	}
	if c.Export.Filesystem != nil && c.Export.Filesystem.Root == "" {
		return fmt.Errorf("export.filesystem.root may not be empty")
	}
	if c.Export.GCS != nil && c.Export.GCS.Bucket == "" {
		return fmt.Errorf("export.gcs.bucket may not be empty")
	}
	if len(c.Backends) == 0 {
		return fmt.Errorf("No backends configured")
	}
	seen := map[string]bool{}
	for i, b := range c.Backends {
		if b.Category == "" {
			return fmt.Errorf("Backend %v has no category", i)
		}
		if seen[b.Category] {
			return fmt.Errorf("Category '%v' is configured more than once", b.Category)
		}
		seen[b.Category] = true
		kind, err := backend.ParseKind(b.Kind)
		if err != nil {
			return fmt.Errorf("Backend '%v': %w", b.Category, err)
		}
		if b.Model == "" {
			return fmt.Errorf("Backend '%v' has no model", b.Category)
		}
		if kind == backend.KindClassifier && b.TopK < 1 {
			return fmt.Errorf("Backend '%v': topK must be at least 1", b.Category)
		}
	}
	return nil
}
