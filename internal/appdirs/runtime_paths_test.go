package appdirs

import (
	"path/filepath"
	"testing"
)

func TestRuntimePathDerivations(t *testing.T) {
	paths := Paths{
		OutputDir: filepath.Join("var", "mirror", "output"),
		CacheDir:  filepath.Join("var", "mirror", "cache"),
	}

	if got, want := GalleryRootFor(paths), filepath.Join("var", "mirror", "output", "gallery"); got != want {
		t.Fatalf("GalleryRootFor() = %q, want %q", got, want)
	}

	if got, want := UploadRootFor(paths), filepath.Join("var", "mirror", "output", "uploads"); got != want {
		t.Fatalf("UploadRootFor() = %q, want %q", got, want)
	}

	if got, want := UploadDirFor(paths, "task_123"), filepath.Join("var", "mirror", "output", "uploads", "task_123"); got != want {
		t.Fatalf("UploadDirFor() = %q, want %q", got, want)
	}

	if got, want := DBPathFor(paths), filepath.Join("var", "mirror", "cache", "mirror.db"); got != want {
		t.Fatalf("DBPathFor() = %q, want %q", got, want)
	}
}

func TestRuntimePathDerivationsWithFallbacks(t *testing.T) {
	paths := Paths{}

	if got, want := GalleryRootFor(paths), "gallery"; got != want {
		t.Fatalf("GalleryRootFor() with empty output dir = %q, want %q", got, want)
	}

	if got, want := UploadRootFor(paths), "uploads"; got != want {
		t.Fatalf("UploadRootFor() with empty output dir = %q, want %q", got, want)
	}

	if got, want := DBPathFor(paths), filepath.Join("cache", "mirror.db"); got != want {
		t.Fatalf("DBPathFor() with empty cache dir = %q, want %q", got, want)
	}
}
