package file

import "path/filepath"

// Config holds settings for the file-backed record store
type Config struct {
	// Dir is the directory holding one JSON file per account
	Dir string

	// FileMode is the permission applied to record files
	FileMode uint32
}

// DefaultConfig returns defaults rooted at the given data directory
func DefaultConfig(dataDir string) Config {
	return Config{
		Dir:      filepath.Join(dataDir, "players"),
		FileMode: 0o600,
	}
}
