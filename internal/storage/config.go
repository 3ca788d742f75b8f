package storage

import (
	"fmt"

	"github.com/nawabsahab16/ancestral-ai/internal/infra"
)

// FromConfig builds the object store selected by STORAGE_DRIVER. For the
// file driver it also returns the directory to serve under /storage/.
func FromConfig(cfg *infra.Config) (ObjectStore, string, error) {
	switch cfg.StorageDriver {
	case "http":
		s, err := NewHTTPStore(cfg.StorageAPIURL, cfg.StorageBucket, cfg.StorageAPIKey)
		if err != nil {
			return nil, "", err
		}
		return s, "", nil
	case "file", "":
		s, err := NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			return nil, "", err
		}
		return s, s.BasePath(), nil
	default:
		return nil, "", fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
