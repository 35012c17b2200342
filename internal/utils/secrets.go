package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"story-server/internal/models"
)

// ReadSecret returns the first line of the file at filePath with surrounding
// whitespace removed. A missing file yields models.ErrSecretNotFound.
func ReadSecret(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", models.ErrSecretNotFound, filePath)
		}
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	return strings.TrimSpace(line), nil
}

// ReadOptionalSecret behaves like ReadSecret but returns an empty string when
// no path is configured.
func ReadOptionalSecret(filePath string) (string, error) {
	if filePath == "" {
		return "", nil
	}
	return ReadSecret(filePath)
}
