// Package reference serves the static documents the story editor reads:
// the reference database, the scene enums and the taxonomies.
package reference

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"story-server/internal/models"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Documents reads the reference documents from disk.
// The database document is loaded once; enums and taxonomies are re-read
// on every call.
type Documents struct {
	dbPath         string
	enumsPath      string
	taxonomiesPath string
	logger         *zap.Logger

	mu sync.Mutex
	db json.RawMessage
}

// NewDocuments creates a Documents reader for the given files.
func NewDocuments(dbPath, enumsPath, taxonomiesPath string, logger *zap.Logger) *Documents {
	return &Documents{
		dbPath:         dbPath,
		enumsPath:      enumsPath,
		taxonomiesPath: taxonomiesPath,
		logger:         logger.Named("ReferenceDocuments"),
	}
}

// DB returns the reference database. The first successful load is cached
// for the life of the process; a failed load is retried on the next call.
func (d *Documents) DB() (json.RawMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		return d.db, nil
	}

	raw, err := readJSON(d.dbPath)
	if err != nil {
		d.logger.Error("Failed to load reference database", zap.String("path", d.dbPath), zap.Error(err))
		return nil, err
	}
	d.db = raw
	d.logger.Info("Reference database loaded", zap.String("path", d.dbPath), zap.Int("bytes", len(raw)))
	return d.db, nil
}

// Enums returns enums.yaml converted to JSON.
func (d *Documents) Enums() (json.RawMessage, error) {
	data, err := os.ReadFile(d.enumsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read enums: %w", err)
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrInvalidDocument, filepath.Base(d.enumsPath), err)
	}

	out, err := json.Marshal(jsonCompatible(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrInvalidDocument, filepath.Base(d.enumsPath), err)
	}
	return out, nil
}

// Taxonomies returns taxonomies.json as stored, after checking it is valid JSON.
func (d *Documents) Taxonomies() (json.RawMessage, error) {
	return readJSON(d.taxonomiesPath)
}

// Check verifies that every reference document exists and is a regular file.
func (d *Documents) Check() error {
	for _, path := range []string{d.enumsPath, d.taxonomiesPath, d.dbPath} {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("reference document %s: %w", path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("reference document %s is a directory", path)
		}
	}
	return nil
}

func readJSON(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", models.ErrInvalidDocument, filepath.Base(path))
	}
	return json.RawMessage(data), nil
}

// jsonCompatible rewrites YAML mappings with non-string keys so the
// document can be encoded as JSON.
func jsonCompatible(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, item := range val {
			val[k] = jsonCompatible(item)
		}
		return val
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = jsonCompatible(item)
		}
		return out
	case []interface{}:
		for i, item := range val {
			val[i] = jsonCompatible(item)
		}
		return val
	default:
		return val
	}
}
