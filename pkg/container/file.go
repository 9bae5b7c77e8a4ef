package container

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KevoDB/blockvid/pkg/block"
)

// Extension is the file extension of block containers.
const Extension = ".bvc"

// WriteFile encodes seq and writes it to path, replacing any existing file
// atomically. It returns the number of bytes written.
func WriteFile(path string, seq *block.Sequence, codec Codec) (int, error) {
	data, err := Encode(seq, codec)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return 0, fmt.Errorf("failed to write container: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return 0, fmt.Errorf("failed to rename container: %w", err)
	}

	return len(data), nil
}

// ReadFile reads and decodes the container at path. It also returns the
// size of the file.
func ReadFile(path string) (*Archive, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read container: %w", err)
	}

	a, err := Decode(data)
	if err != nil {
		return nil, len(data), fmt.Errorf("%s: %w", path, err)
	}
	return a, len(data), nil
}
