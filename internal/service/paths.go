package service

import (
	"fmt"
	"path/filepath"
	"strings"

	"magic-mirror/internal/appdirs"
)

var appDirsResolver = appdirs.Resolve

func resolveUploadDir(taskID string) (string, error) {
	if strings.TrimSpace(taskID) == "" {
		return "", fmt.Errorf("task id is empty")
	}

	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}
	return appdirs.UploadDirFor(dirs, taskID), nil
}

// resultDownloadUrl rewrites an on-disk gallery path into the relative
// path served by the download endpoint.
func resultDownloadUrl(localPath string) string {
	dirs, err := appDirsResolver()
	if err != nil {
		return filepath.ToSlash(filepath.Join(appdirs.GalleryRootName, filepath.Base(localPath)))
	}

	galleryRoot := appdirs.GalleryRootFor(dirs)
	relPath, err := filepath.Rel(galleryRoot, filepath.Clean(localPath))
	if err != nil || relPath == "." || relPath == ".." ||
		strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(filepath.Join(appdirs.GalleryRootName, filepath.Base(localPath)))
	}
	return filepath.ToSlash(filepath.Join(appdirs.GalleryRootName, relPath))
}
