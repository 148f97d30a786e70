package crypto

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/healthcoresys/core/internal/domain/models"
)

// KeyRegistry persists the published key set and the append-only rotation
// history. The request path only reads the key set; rotation and pruning are
// the sole writers.
type KeyRegistry interface {
	// KeySet returns the published key set.
	KeySet(ctx context.Context) (*models.KeySet, error)

	// SaveKeySet replaces the published key set.
	SaveKeySet(ctx context.Context, set *models.KeySet) error

	// Records returns the rotation history, oldest first.
	Records(ctx context.Context) ([]models.RotationRecord, error)

	// SaveRecords replaces the rotation history.
	SaveRecords(ctx context.Context, records []models.RotationRecord) error
}

// ================================================================================
// File-backed registry
// ================================================================================

// FileRegistry publishes the key set as a JSON document on disk, the format
// relying parties consume directly, with the rotation log stored alongside.
type FileRegistry struct {
	mu       sync.RWMutex
	jwksPath string
	logPath  string
}

// NewFileRegistry creates a registry rooted at the given JWKS path. The
// rotation log lives next to it.
func NewFileRegistry(jwksPath string) *FileRegistry {
	logPath := strings.TrimSuffix(jwksPath, filepath.Ext(jwksPath)) + "-rotation-log.json"
	return &FileRegistry{jwksPath: jwksPath, logPath: logPath}
}

func (r *FileRegistry) KeySet(_ context.Context) (*models.KeySet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.jwksPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &models.KeySet{}, nil
		}
		return nil, fmt.Errorf("read key set: %w", err)
	}
	return ParseKeySet(data)
}

func (r *FileRegistry) SaveKeySet(_ context.Context, set *models.KeySet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("encode key set: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.jwksPath), 0o755); err != nil {
		return fmt.Errorf("create key set directory: %w", err)
	}
	return writeFileAtomic(r.jwksPath, data)
}

func (r *FileRegistry) Records(_ context.Context) ([]models.RotationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read rotation log: %w", err)
	}

	var records []models.RotationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse rotation log: %w", err)
	}
	return records, nil
}

func (r *FileRegistry) SaveRecords(_ context.Context, records []models.RotationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode rotation log: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.logPath), 0o755); err != nil {
		return fmt.Errorf("create rotation log directory: %w", err)
	}
	return writeFileAtomic(r.logPath, data)
}

// writeFileAtomic writes via a temp file and rename so readers of the
// published document never observe a partial write.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

var _ KeyRegistry = (*FileRegistry)(nil)

// ================================================================================
// In-memory registry
// ================================================================================

// MemoryRegistry keeps the key set and rotation log in process memory.
// Used in tests and single-process development setups.
type MemoryRegistry struct {
	mu      sync.RWMutex
	set     models.KeySet
	records []models.RotationRecord
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{}
}

func (r *MemoryRegistry) KeySet(_ context.Context) (*models.KeySet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cp := models.KeySet{Keys: append([]models.JWK(nil), r.set.Keys...)}
	return &cp, nil
}

func (r *MemoryRegistry) SaveKeySet(_ context.Context, set *models.KeySet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.set = models.KeySet{Keys: append([]models.JWK(nil), set.Keys...)}
	return nil
}

func (r *MemoryRegistry) Records(_ context.Context) ([]models.RotationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]models.RotationRecord(nil), r.records...), nil
}

func (r *MemoryRegistry) SaveRecords(_ context.Context, records []models.RotationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append([]models.RotationRecord(nil), records...)
	return nil
}

var _ KeyRegistry = (*MemoryRegistry)(nil)
