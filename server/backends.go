package server

import (
	"fmt"

	"github.com/cyclopcam/leafscan/pkg/nnload"
	"github.com/cyclopcam/leafscan/pkg/onnx"
	"github.com/cyclopcam/leafscan/server/backend"
	"github.com/cyclopcam/leafscan/server/config"
	"github.com/cyclopcam/logs"
)

// LoadBackends loads the model of every configured category, downloading missing model files first.
// This is the only place where the category to backend mapping is decided.
func LoadBackends(log logs.Log, cfg *config.Config) (map[string]backend.ModelBackend, error) {
	if err := onnx.Initialize(cfg.OnnxLibrary); err != nil {
		return nil, err
	}

	backends := map[string]backend.ModelBackend{}
	closeAll := func() {
		for _, b := range backends {
			b.Close()
		}
	}

	for _, bc := range cfg.Backends {
		b, err := loadBackend(log, cfg.ModelDir, cfg.MaxImagePixels, bc)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("Failed to load backend for category '%v': %w", bc.Category, err)
		}
		backends[bc.Category] = b
	}
	return backends, nil
}

func loadBackend(log logs.Log, modelDir string, maxPixels int64, bc config.BackendConfig) (backend.ModelBackend, error) {
	kind, err := backend.ParseKind(bc.Kind)
	if err != nil {
		return nil, err
	}
	if bc.ModelURL != "" {
		if err := nnload.DownloadModel(log, bc.ModelURL, modelDir, bc.Model); err != nil {
			return nil, err
		}
	}
	switch kind {
	case backend.KindDetector:
		model, err := nnload.LoadDetector(log, modelDir, bc.Model)
		if err != nil {
			return nil, err
		}
		d := backend.NewDetector(log, model)
		d.MaxPixels = maxPixels
		return d, nil
	case backend.KindClassifier:
		model, err := nnload.LoadClassifier(log, modelDir, bc.Model)
		if err != nil {
			return nil, err
		}
		c := backend.NewClassifier(log, model, bc.TopK)
		c.MaxPixels = maxPixels
		return c, nil
	}
	return nil, fmt.Errorf("Unsupported backend kind '%v'", kind)
}
