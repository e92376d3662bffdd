package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Filename is the receipt file stored next to the downloaded archive.
const Filename = "tor-bundle-receipt.json"

// receiptFileMode restricts the receipt to the owning user.
const receiptFileMode os.FileMode = 0o600

// ErrNotFound is returned when no receipt has been written yet.
var ErrNotFound = errors.New("installation receipt not found")

// Receipt records what the last successful download installed.
// It is informational only: the downloader never consults it to skip work.
type Receipt struct {
	// Version is the resolved bundle version that was installed.
	Version string `json:"version"`
	// Target is the rendered platform target the archive was built for.
	Target string `json:"target"`
	// ArchiveName is the cached archive filename.
	ArchiveName string `json:"archive_name"`
	// InstalledAt is when the download completed.
	InstalledAt time.Time `json:"installed_at"`
}

// Repository defines persistence operations for the installation receipt.
type Repository interface {
	Load(ctx context.Context) (*Receipt, error)
	Save(ctx context.Context, r *Receipt) error
}

// FileRepository persists the receipt as JSON inside the download directory.
type FileRepository struct {
	// path is the filesystem location of the receipt file.
	path string
	// mu protects concurrent access to the receipt file.
	mu sync.Mutex
}

// NewFileRepository creates a repository storing the receipt in downloadDir.
func NewFileRepository(downloadDir string) *FileRepository {
	return &FileRepository{
		path: filepath.Join(filepath.Clean(downloadDir), Filename),
	}
}

// Load reads the receipt from disk.
func (r *FileRepository) Load(_ context.Context) (*Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read receipt file: %w", err)
	}

	var rec Receipt
	if err = json.Unmarshal(contents, &rec); err != nil {
		return nil, fmt.Errorf("decode receipt file: %w", err)
	}

	return &rec, nil
}

// Save writes the receipt to disk.
func (r *FileRepository) Save(_ context.Context, rec *Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}

	if err = os.WriteFile(r.path, data, receiptFileMode); err != nil {
		return fmt.Errorf("write receipt file: %w", err)
	}

	return nil
}
