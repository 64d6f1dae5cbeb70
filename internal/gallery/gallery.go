// Package gallery persists finished transformation images under the
// application's output directory and lists them for the history surface.
package gallery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"magic-mirror/internal/appdirs"
	apperrors "magic-mirror/pkg/errors"
	"magic-mirror/pkg/util"
)

var appDirsResolver = appdirs.Resolve

// Entry is one stored result image.
type Entry struct {
	Name    string `json:"name"`
	Path    string `json:"path"` // absolute path on disk
	Size    int64  `json:"size"`
	ModTime int64  `json:"mod_time"`
}

func resolveRoot() (string, error) {
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}
	return appdirs.GalleryRootFor(dirs), nil
}

// Save writes the encoded result bytes for one task. The file name is
// derived from the feature and task id, so a retried task overwrites its
// own earlier output instead of accumulating copies.
func Save(taskID, feature, format string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperrors.New(apperrors.CodeFileWriteError, "result image is empty")
	}
	root, err := resolveRoot()
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeFileWriteError, "failed to resolve gallery directory", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", apperrors.Wrap(apperrors.CodeFileWriteError, "failed to create gallery directory", err)
	}

	if format == "" {
		format = "png"
	}
	name := util.SanitizeFilename(fmt.Sprintf("%s_%s.%s", feature, taskID, format))
	path := filepath.Join(root, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", apperrors.Wrap(apperrors.CodeFileWriteError, "failed to write result image", err)
	}
	return path, nil
}

// List returns the stored results, newest first. A missing gallery
// directory is an empty gallery, not an error.
func List() ([]Entry, error) {
	root, err := resolveRoot()
	if err != nil {
		return nil, err
	}

	items, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		if item.IsDir() {
			continue
		}
		info, err := item.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:    item.Name(),
			Path:    filepath.Join(root, item.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime().Unix(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModTime > entries[j].ModTime
	})
	return entries, nil
}

// Open resolves a stored file by name, rejecting anything that would
// escape the gallery directory.
func Open(name string) (string, error) {
	if name != util.SanitizeFilename(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid gallery file name %q", name)
	}
	root, err := resolveRoot()
	if err != nil {
		return "", err
	}
	path := filepath.Join(root, name)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}
