package export

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cyclopcam/leafscan/server/inference"
	"github.com/cyclopcam/leafscan/server/resultdb"
	"github.com/cyclopcam/leafscan/server/storage"
	"github.com/cyclopcam/logs"
)

// Lister is the part of the result store that export reads from
type Lister interface {
	ListDesc() ([]resultdb.Result, error)
}

type Summary struct {
	Written   int      `json:"written"`
	Skipped   int      `json:"skipped"`        // Already present in the destination, with identical content
	Conflicts int      `json:"conflicts"`      // Already present, but with different content. Left alone unless overwrite is true.
	URLs      []string `json:"urls,omitempty"` // Public URLs of the written files, if the destination has them
}

// Export writes every stored result to dst, under its download filename.
// Files that already exist are left alone, unless overwrite is true.
func Export(log logs.Log, src Lister, dst storage.Storage, prefix string, overwrite bool) (Summary, error) {
	summary := Summary{}
	results, err := src.ListDesc()
	if err != nil {
		return summary, err
	}
	for _, r := range results {
		name := inference.DownloadFilename(prefix, r.ID, r.Payload)
		if !overwrite {
			exists, err := dst.Exists(name)
			if err != nil {
				return summary, fmt.Errorf("Failed to check for %v: %w", name, err)
			}
			if exists {
				existing, err := storage.ReadFile(dst, name)
				if err != nil {
					return summary, fmt.Errorf("Failed to read %v: %w", name, err)
				}
				if bytes.Equal(existing, r.Payload) {
					summary.Skipped++
				} else {
					log.Warnf("Not overwriting %v, which differs from result %v", name, r.ID)
					summary.Conflicts++
				}
				continue
			}
		}
		if err := storage.WriteFile(dst, name, bytes.NewReader(r.Payload)); err != nil {
			// Don't leave a truncated file behind
			dst.DeleteFile(name)
			return summary, fmt.Errorf("Failed to write %v: %w", name, err)
		}
		summary.Written++
		url, err := dst.URL(name)
		if err == nil {
			summary.URLs = append(summary.URLs, url)
		} else if !errors.Is(err, storage.ErrNoPublicUrl) {
			return summary, err
		}
	}
	log.Infof("Exported %v results (%v already present, %v conflicting)", summary.Written, summary.Skipped, summary.Conflicts)
	return summary, nil
}
