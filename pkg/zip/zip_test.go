package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

func TestArchiveAssets(t *testing.T) {
	archive := ArchiveAssets([]Asset{
		{Filename: "post-1-image-01", MIME: "image/png", Data: []byte("first")},
		{Filename: "post-1-image-02.jpg", MIME: "image/jpeg", Data: []byte("second")},
		{Filename: "clip", MIME: "video/mp4", Data: []byte("third")},
	})

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	if len(zr.File) != 3 {
		t.Fatalf("entries = %d, want 3", len(zr.File))
	}

	want := map[string]string{
		"post-1-image-01.png": "first",
		"post-1-image-02.jpg": "second",
		"clip.mp4":            "third",
	}
	for _, f := range zr.File {
		expected, ok := want[f.Name]
		if !ok {
			t.Fatalf("unexpected entry %q", f.Name)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		if string(data) != expected {
			t.Fatalf("entry %s = %q, want %q", f.Name, data, expected)
		}
	}
}

func TestArchiveAssetsEmpty(t *testing.T) {
	archive := ArchiveAssets(nil)
	if _, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive))); err != nil {
		t.Fatalf("empty archive should still be valid: %v", err)
	}
}

func TestExtensionForMIME(t *testing.T) {
	if got := extensionForMIME("IMAGE/PNG"); got != ".png" {
		t.Fatalf("extensionForMIME case handling = %q", got)
	}
	if got := extensionForMIME("application/octet-stream"); got != "" {
		t.Fatalf("unknown MIME should map to no extension, got %q", got)
	}
}
