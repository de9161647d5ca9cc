// Package keysource reads the authoritative license key file.
//
// The file holds one `KEY|PRODUCT_ID` entry per line. Blank lines and lines
// starting with '#' are ignored, and order within a product is claim order.
package keysource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/shadowcc/keyshop/internal/domain"
)

const fingerprintLen = 16

// Snapshot is the parsed content of the key file at one point in time.
type Snapshot struct {
	Entries     []domain.KeyEntry
	Fingerprint string
}

// FileSource loads key snapshots from a file on disk.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Path() string {
	return s.path
}

func (s *FileSource) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: read %s: %v", domain.ErrSourceUnavailable, s.path, err)
	}
	return Snapshot{Entries: Parse(raw), Fingerprint: Fingerprint(raw)}, nil
}

// Parse extracts key entries from raw file content, preserving source order.
// The key is the first '|' field and the product the second; anything after
// a further '|' is ignored. Lines without both a key and a product are skipped.
func Parse(raw []byte) []domain.KeyEntry {
	var entries []domain.KeyEntry
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < 2 {
			continue
		}
		key := strings.TrimSpace(fields[0])
		product := strings.TrimSpace(fields[1])
		if key == "" || product == "" {
			continue
		}
		entries = append(entries, domain.KeyEntry{Key: key, ProductID: domain.ProductID(product)})
	}
	return entries
}

// Fingerprint returns a short digest of the file content.
func Fingerprint(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}
