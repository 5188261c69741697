package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// subscriberRecord is the on-disk document, one file per product.
type subscriberRecord struct {
	Product   string    `json:"product"`
	Emails    []string  `json:"emails"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FileStore implements SubscriberStore on top of one JSON file per product.
// Every mutation is a full read-modify-write of the backing file; subscriber
// sets are small and write volume is human-triggered, so the simplicity wins
// over caching. Writes go through a temp file and rename so readers never
// observe a partial document. Mutations on the same product are serialized
// with a per-product mutex to avoid lost updates between concurrent requests.
type FileStore struct {
	dir    string
	logger *slog.Logger

	mu    sync.Mutex // guards locks
	locks map[string]*sync.Mutex
}

// NewFileStore creates the data directory if needed and returns a FileStore.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	return &FileStore{
		dir:    dir,
		logger: logger.With("component", "filestore"),
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// Load retrieves the subscriber emails for a product in insertion order.
// A missing file or a file that fails to parse degrades to an empty set:
// the store reports "no known subscribers" rather than failing the request.
func (s *FileStore) Load(ctx context.Context, product string) ([]string, error) {
	data, err := os.ReadFile(s.path(product))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WarnContext(ctx, "Failed to read subscriber file, treating as empty",
				"product", product, "error", err)
		}
		return []string{}, nil
	}

	var record subscriberRecord
	if err := json.Unmarshal(data, &record); err != nil {
		s.logger.WarnContext(ctx, "Corrupt subscriber file, treating as empty",
			"product", product, "error", err)
		return []string{}, nil
	}

	emails := make([]string, 0, len(record.Emails))
	for _, email := range record.Emails {
		normalized := NormalizeEmail(email)
		if normalized == "" || slices.Contains(emails, normalized) {
			continue
		}
		emails = append(emails, normalized)
	}
	return emails, nil
}

// Save writes the full subscriber set back together with the product key and
// a last-updated timestamp. The document is written to a temp file in the
// same directory and renamed over the target.
func (s *FileStore) Save(ctx context.Context, product string, emails []string) error {
	record := subscriberRecord{
		Product:   product,
		Emails:    emails,
		UpdatedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode subscriber record for %s: %w", product, err)
	}

	target := s.path(product)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", product, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write subscriber record for %s: %w", product, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %s: %w", product, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace subscriber file for %s: %w", product, err)
	}
	s.logger.DebugContext(ctx, "Saved subscriber file", "product", product, "count", len(emails))
	return nil
}

// Add inserts a normalized email into a product's set.
// Returns false when the email is already present; the file is left untouched.
func (s *FileStore) Add(ctx context.Context, product, email string) (bool, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return false, nil
	}

	lock := s.lock(product)
	lock.Lock()
	defer lock.Unlock()

	emails, err := s.Load(ctx, product)
	if err != nil {
		return false, err
	}
	if slices.Contains(emails, normalized) {
		return false, nil
	}
	emails = append(emails, normalized)
	if err := s.Save(ctx, product, emails); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes a normalized email from a product's set.
// Returns false when the email was absent; the file is left untouched.
func (s *FileStore) Remove(ctx context.Context, product, email string) (bool, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return false, nil
	}

	lock := s.lock(product)
	lock.Lock()
	defer lock.Unlock()

	emails, err := s.Load(ctx, product)
	if err != nil {
		return false, err
	}
	idx := slices.Index(emails, normalized)
	if idx < 0 {
		return false, nil
	}
	emails = slices.Delete(emails, idx, idx+1)
	if err := s.Save(ctx, product, emails); err != nil {
		return false, err
	}
	return true, nil
}

// lock returns the mutex serializing mutations for a product key.
func (s *FileStore) lock(product string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[product]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[product] = lock
	}
	return lock
}

// path maps a product key to its backing file, escaping anything outside
// [a-zA-Z0-9.-] so permalinks cannot escape the data directory.
func (s *FileStore) path(product string) string {
	return filepath.Join(s.dir, sanitizeKey(product)+".json")
}

// sanitizeKey hex-escapes every byte outside [a-zA-Z0-9.-] as _XX. The
// escaping is injective, so distinct permalinks never share a backing file.
// '_' doubles as the escape marker and is escaped as well.
func sanitizeKey(product string) string {
	var b strings.Builder
	for i := 0; i < len(product); i++ {
		c := product[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '.', c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02x", c)
		}
	}
	sanitized := strings.Trim(b.String(), ".")
	if sanitized == "" {
		return "unknown"
	}
	return sanitized
}
