package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherIngestsDroppedExport(t *testing.T) {
	db := newCaptureStore()
	imp := New(db, nil)
	dropDir := t.TempDir()

	watcher := NewWatcher(imp, "ch-general", "slack", dropDir)
	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = watcher.Close() })

	content := "ts,user,text\n1709294400,bob,dropped hello\n"
	if err := os.WriteFile(filepath.Join(dropDir, "export.csv"), []byte(content), 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(db.snapshot()) == 1 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	created := db.snapshot()
	if len(created) != 1 {
		t.Fatalf("expected 1 import via watcher, got %d", len(created))
	}
	if created[0].Body != "dropped hello" || created[0].ImportedFrom != "slack" {
		t.Fatalf("unexpected imported payload: %+v", created[0])
	}
}

func TestWatcherIgnoresNonCSV(t *testing.T) {
	db := newCaptureStore()
	imp := New(db, nil)
	dropDir := t.TempDir()

	watcher := NewWatcher(imp, "ch-general", "slack", dropDir)
	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = watcher.Close() })

	if err := os.WriteFile(filepath.Join(dropDir, "notes.txt"), []byte("not an export"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	time.Sleep(debounceDelay + 300*time.Millisecond)
	if got := db.snapshot(); len(got) != 0 {
		t.Fatalf("expected no imports, got %d", len(got))
	}
}
