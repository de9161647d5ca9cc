package keysource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shadowcc/keyshop/internal/domain"
)

func TestParse(t *testing.T) {
	t.Parallel()

	raw := []byte(`# header
AAA111|shadow-weekly

  BBB222 | shadow-monthly  
# comment|shadow-weekly
broken-line
|shadow-weekly
CCC333|
DDD444|shadow-weekly
EEE555|shadow-monthly|batch 7
`)
	got := Parse(raw)
	want := []domain.KeyEntry{
		{Key: "AAA111", ProductID: domain.ProductWeekly},
		{Key: "BBB222", ProductID: domain.ProductMonthly},
		{Key: "DDD444", ProductID: domain.ProductWeekly},
		{Key: "EEE555", ProductID: domain.ProductMonthly},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestLoad_OverlongLine(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keys.txt")
	content := "# " + strings.Repeat("x", 200<<10) + "\n" +
		strings.Repeat("K", 100<<10) + "|shadow-lifetime\n" +
		"W1|shadow-weekly\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	snap, err := NewFileSource(path).Load(context.Background())
	if err != nil {
		t.Fatalf("expected long lines to load, got %v", err)
	}
	if len(snap.Entries) != 2 || snap.Entries[1].Key != "W1" {
		t.Fatalf("unexpected entries: %d", len(snap.Entries))
	}
	if len(snap.Entries[0].Key) != 100<<10 {
		t.Fatalf("expected long key kept whole, got %d bytes", len(snap.Entries[0].Key))
	}
}

func TestFingerprint_StableAndShort(t *testing.T) {
	t.Parallel()

	a := Fingerprint([]byte("AAA111|shadow-weekly\n"))
	b := Fingerprint([]byte("AAA111|shadow-weekly\n"))
	c := Fingerprint([]byte("AAA111|shadow-monthly\n"))
	if a != b {
		t.Fatalf("expected stable fingerprint, got %q and %q", a, b)
	}
	if a == c {
		t.Fatalf("expected different content to change fingerprint")
	}
	if len(a) != fingerprintLen {
		t.Fatalf("expected %d chars, got %d", fingerprintLen, len(a))
	}
}

func TestFileSource_Load(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "keys.txt")
	content := []byte("AAA111|shadow-weekly\nBBB222|shadow-monthly\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	snap, err := NewFileSource(path).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap.Entries))
	}
	if snap.Fingerprint != Fingerprint(content) {
		t.Fatalf("unexpected fingerprint %q", snap.Fingerprint)
	}
}

func TestFileSource_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.txt")).Load(context.Background())
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestFormat_GroupsByProduct(t *testing.T) {
	t.Parallel()

	out := Format([]domain.KeyEntry{
		{Key: "L1", ProductID: domain.ProductLifetime},
		{Key: "X1", ProductID: "shadow-trial"},
		{Key: "W1", ProductID: domain.ProductWeekly},
		{Key: "W2", ProductID: domain.ProductWeekly},
	})
	want := fileHeader +
		"# Weekly Keys\nW1|shadow-weekly\nW2|shadow-weekly\n" +
		"# Lifetime Keys\nL1|shadow-lifetime\n" +
		"# shadow-trial\nX1|shadow-trial\n"
	if out != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", out, want)
	}

	parsed := Parse([]byte(out))
	if len(parsed) != 4 || parsed[0].Key != "W1" || parsed[3].Key != "X1" {
		t.Fatalf("unexpected reparse: %+v", parsed)
	}
}
