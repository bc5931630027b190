package dedupe

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileHashSmall(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.pdf", []byte("identical content"))
	b := writeFile(t, dir, "b.pdf", []byte("identical content"))
	c := writeFile(t, dir, "c.pdf", []byte("different content"))

	ha, err := FileHash(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, err := FileHash(b)
	if err != nil {
		t.Fatal(err)
	}
	hc, err := FileHash(c)
	if err != nil {
		t.Fatal(err)
	}

	if ha != hb {
		t.Errorf("identical files hashed differently: %s vs %s", ha, hb)
	}
	if ha == hc {
		t.Error("different files hashed identically")
	}
}

func TestFileHashSampled(t *testing.T) {
	dir := t.TempDir()
	big := bytes.Repeat([]byte("abcdefgh"), (5<<20)/8)

	a := writeFile(t, dir, "a.pdf", big)
	b := writeFile(t, dir, "b.pdf", big)

	mutated := append([]byte(nil), big...)
	mutated[100] = 'X'
	c := writeFile(t, dir, "c.pdf", mutated)

	same, err := FilesIdentical(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if !same {
		t.Error("identical large files not judged identical")
	}

	same, err = FilesIdentical(a, c)
	if err != nil {
		t.Fatal(err)
	}
	if same {
		t.Error("large files differing in the head judged identical")
	}
}

func TestFileHashMissing(t *testing.T) {
	if _, err := FileHash(filepath.Join(t.TempDir(), "nope.pdf")); err == nil {
		t.Error("FileHash() expected error for missing file")
	}
}
