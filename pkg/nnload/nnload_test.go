package nnload

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestDownloadModel(t *testing.T) {
	hits := atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/models/leaf.json":
			w.Write([]byte(`{"architecture":"yolov8","width":640,"height":640,"classes":["anthracnose"]}`))
		case "/models/leaf.onnx":
			w.Write([]byte("weights"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	log := logs.NewTestingLog(t)
	require.NoError(t, DownloadModel(log, srv.URL+"/models/", dir, "leaf"))
	require.Equal(t, int32(2), hits.Load())

	b, err := os.ReadFile(filepath.Join(dir, "leaf.onnx"))
	require.NoError(t, err)
	require.Equal(t, "weights", string(b))

	cfg, err := LoadConfig(dir, "leaf")
	require.NoError(t, err)
	require.Equal(t, 640, cfg.Width)
	require.Equal(t, "images", cfg.InputName)

	// Already present, so no further requests
	require.NoError(t, DownloadModel(log, srv.URL+"/models", dir, "leaf"))
	require.Equal(t, int32(2), hits.Load())

	require.Error(t, DownloadModel(log, srv.URL+"/models", dir, "missing"))
	_, err = os.Stat(filepath.Join(dir, "missing.json.tmp"))
	require.True(t, os.IsNotExist(err))
}

func TestLoadDetectorUnknownArchitecture(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.json"), []byte(`{"architecture":"ssd","width":1,"height":1,"classes":["a"]}`), 0644))
	_, err := LoadDetector(logs.NewTestingLog(t), dir, "x")
	require.ErrorContains(t, err, "Unrecognized detector architecture")
}

func TestLoadConfigClassFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leaf.json"), []byte(`{"architecture":"efficientnet","width":224,"height":224}`), 0644))

	_, err := LoadConfig(dir, "leaf")
	require.ErrorContains(t, err, "has no classes")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "leaf.txt"), []byte("anthracnose\n\n  healthy \r\npowdery mildew\n"), 0644))
	cfg, err := LoadConfig(dir, "leaf")
	require.NoError(t, err)
	require.Equal(t, []string{"anthracnose", "healthy", "powdery mildew"}, cfg.Classes)

	// Classes in the JSON take precedence
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leaf.json"), []byte(`{"architecture":"efficientnet","width":224,"height":224,"classes":["rust"]}`), 0644))
	cfg, err = LoadConfig(dir, "leaf")
	require.NoError(t, err)
	require.Equal(t, []string{"rust"}, cfg.Classes)
}
