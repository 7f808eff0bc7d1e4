package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// WebPathPrefix is the public prefix every stored web_path starts with.
const WebPathPrefix = "/api/images/"

var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

type ImageFile struct {
	Data        []byte
	ContentType string
	Path        string
}

// ImageLocator finds the stored file of an image by its exact web path.
type ImageLocator interface {
	FindLocalPath(ctx context.Context, webPath string) (string, bool, error)
}

// ImageService serves image files registered in the database, and only those
// located under the storage root.
type ImageService struct {
	images ImageLocator
	root   string
	logger *slog.Logger
}

func NewImageService(images ImageLocator, root string, logger *slog.Logger) *ImageService {
	return &ImageService{images: images, root: root, logger: logger}
}

// WebPath joins request path segments into the logical path stored in the database.
func WebPath(segments []string) string {
	return WebPathPrefix + strings.Join(segments, "/")
}

// ContentType picks the response type from the file extension.
func ContentType(path string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Serve looks up and reads one image. It returns ErrNotFound for unknown web
// paths and unreadable files, and ErrForbidden when the stored path escapes the root.
func (s *ImageService) Serve(ctx context.Context, segments []string) (*ImageFile, error) {
	path, err := s.Resolve(ctx, segments)
	if err != nil {
		return nil, err
	}
	// Read failures past the containment check are reported as not found,
	// whatever the cause.
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("image file unreadable", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return &ImageFile{Data: data, ContentType: ContentType(path), Path: path}, nil
}

// Resolve maps segments onto a file path that is checked to be inside the
// storage root, both as written and after following symlinks.
func (s *ImageService) Resolve(ctx context.Context, segments []string) (string, error) {
	if len(segments) == 0 {
		return "", fmt.Errorf("%w: empty image path", ErrNotFound)
	}
	webPath := WebPath(segments)

	localPath, ok, err := s.images.FindLocalPath(ctx, webPath)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: no image for %s", ErrNotFound, webPath)
	}

	root, err := filepath.Abs(s.root)
	if err != nil {
		return "", fmt.Errorf("resolve image root: %w", err)
	}
	target, err := filepath.Abs(localPath)
	if err != nil {
		return "", fmt.Errorf("resolve image path: %w", err)
	}
	if !within(root, target) {
		return "", s.forbidden(webPath, target, root)
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("resolve image root: %w", err)
		}
		realRoot = root
	}
	realTarget, err := filepath.EvalSymlinks(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if !within(realRoot, realTarget) {
		return "", s.forbidden(webPath, realTarget, realRoot)
	}
	return realTarget, nil
}

func (s *ImageService) forbidden(webPath, path, root string) error {
	s.logger.Warn("image path outside storage root",
		"web_path", webPath,
		"path", path,
		"root", root,
	)
	return fmt.Errorf("%w: %s is outside %s", ErrForbidden, path, root)
}

// within reports whether path names an entry strictly below root. Both must
// be absolute and clean. The comparison is per path component, so
// /srv/images2 is not inside /srv/images.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}
