package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalFS_ImplementsStorage(t *testing.T) {
	var _ Storage = (*LocalFS)(nil)
}

func TestLocalFS_WriteRead(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewLocalFS(dir)
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}

	ctx := context.Background()
	data := []byte(`{"predictions":[]}`)

	if err := fs.Write(ctx, "data/prediction_history.json", data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := fs.Read(ctx, "data/prediction_history.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}
}

func TestLocalFS_WriteReplacesWithoutLeftovers(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(dir)
	ctx := context.Background()

	for _, body := range []string{"first version, longer", "second"} {
		if err := fs.Write(ctx, "forecast_latest.json", []byte(body)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	got, _ := fs.Read(ctx, "forecast_latest.json")
	if string(got) != "second" {
		t.Errorf("got %q, want %q", got, "second")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

func TestLocalFS_ReadMissing(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())

	_, err := fs.Read(context.Background(), "missing.json")
	if !errors.Is(err, ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestLocalFS_ReadOtherErrorsAreNotMissing(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewLocalFS(dir)
	if err := os.Mkdir(filepath.Join(dir, "adir"), 0755); err != nil {
		t.Fatal(err)
	}

	_, err := fs.Read(context.Background(), "adir")
	if err == nil || errors.Is(err, ErrNotExist) {
		t.Errorf("reading a directory should fail with a real error, got %v", err)
	}
}
