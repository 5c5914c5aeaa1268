package storage

import (
	"bytes"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestStorageFS(t *testing.T) {
	fs, err := NewStorageFS(logs.NewTestingLog(t), t.TempDir())
	require.NoError(t, err)
	defer fs.Close()

	exists, err := fs.Exists("a/b.png")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, WriteFile(fs, "a/b.png", bytes.NewReader([]byte("hello"))))
	exists, err = fs.Exists("a/b.png")
	require.NoError(t, err)
	require.True(t, exists)

	content, err := ReadFile(fs, "a/b.png")
	require.NoError(t, err)
	require.Equal(t, "hello", string(content))

	require.NoError(t, fs.DeleteFile("a/b.png"))
	exists, err = fs.Exists("a/b.png")
	require.NoError(t, err)
	require.False(t, exists)

	_, err = fs.WriteFile("../escape.png")
	require.Error(t, err)
	_, err = fs.URL("a/b.png")
	require.ErrorIs(t, err, ErrNoPublicUrl)
}

func TestContentTypeFromName(t *testing.T) {
	require.Equal(t, "image/png", contentTypeFromName("Deteksi_Penyakit_1.PNG"))
	require.Equal(t, "application/json", contentTypeFromName("x.json"))
	require.Equal(t, "application/octet-stream", contentTypeFromName("x"))
}
