package appdirs

import (
	"path/filepath"
	"strings"
)

const (
	GalleryRootName = "gallery"
	UploadRootName  = "uploads"
	dbFileName      = "mirror.db"
)

func GalleryRootFor(paths Paths) string {
	return filepath.Join(normalizeOutputDir(paths.OutputDir), GalleryRootName)
}

func UploadRootFor(paths Paths) string {
	return filepath.Join(normalizeOutputDir(paths.OutputDir), UploadRootName)
}

func UploadDirFor(paths Paths, taskID string) string {
	return filepath.Join(UploadRootFor(paths), taskID)
}

func DBPathFor(paths Paths) string {
	return filepath.Join(normalizeCacheDir(paths.CacheDir), dbFileName)
}

func ResolveGalleryRoot() (string, error) {
	paths, err := Resolve()
	if err != nil {
		return "", err
	}
	return GalleryRootFor(paths), nil
}

func ResolveUploadRoot() (string, error) {
	paths, err := Resolve()
	if err != nil {
		return "", err
	}
	return UploadRootFor(paths), nil
}

func ResolveUploadDir(taskID string) (string, error) {
	paths, err := Resolve()
	if err != nil {
		return "", err
	}
	return UploadDirFor(paths, taskID), nil
}

func ResolveDBPath() (string, error) {
	paths, err := Resolve()
	if err != nil {
		return "", err
	}
	return DBPathFor(paths), nil
}

func normalizeOutputDir(outputDir string) string {
	cleaned := strings.TrimSpace(outputDir)
	if cleaned == "" {
		return "."
	}
	return filepath.Clean(cleaned)
}

func normalizeCacheDir(cacheDir string) string {
	cleaned := strings.TrimSpace(cacheDir)
	if cleaned == "" {
		return "cache"
	}
	return filepath.Clean(cleaned)
}
