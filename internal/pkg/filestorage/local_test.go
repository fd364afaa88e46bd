package filestorage

import (
	"context"
	"os"
	"strings"
	"testing"
)

func TestLocalStorageSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLocalStorage(dir, "http://localhost:8080/uploads/")
	if err != nil {
		t.Fatal(err)
	}

	info, err := ls.SaveFile(context.Background(), strings.NewReader("%PDF-1.4 body"), "Devoir.PDF", "application/pdf")
	if err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	if !strings.HasPrefix(info.URL, "http://localhost:8080/uploads/") || !strings.HasSuffix(info.Key, ".pdf") {
		t.Fatalf("unexpected file info %+v", info)
	}
	if info.FileSize != int64(len("%PDF-1.4 body")) {
		t.Fatalf("FileSize = %d", info.FileSize)
	}

	data, err := os.ReadFile(ls.GetFullPath(info.URL))
	if err != nil || string(data) != "%PDF-1.4 body" {
		t.Fatalf("stored bytes = %q, %v", data, err)
	}

	if err := ls.DeleteFile(context.Background(), info.URL); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if err := ls.DeleteFile(context.Background(), info.URL); err != nil {
		t.Fatalf("second DeleteFile should be a no-op: %v", err)
	}
	if _, err := os.Stat(ls.GetFullPath(info.URL)); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
}
