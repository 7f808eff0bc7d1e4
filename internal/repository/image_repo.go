package repository

import (
	"context"
	"fmt"

	"devlog/internal/database"
	"devlog/internal/models"
)

type ImageRepository struct {
	db *database.Gateway
}

func NewImageRepository(db *database.Gateway) *ImageRepository {
	return &ImageRepository{db: db}
}

// FindLocalPath looks up the stored file for an exact web path.
func (r *ImageRepository) FindLocalPath(ctx context.Context, webPath string) (string, bool, error) {
	var rows []models.LocalPathRow
	err := r.db.Query(ctx, &rows, "SELECT local_path FROM images WHERE web_path = ? LIMIT 1", webPath)
	if err != nil {
		return "", false, fmt.Errorf("find image %q: %w", webPath, err)
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].LocalPath, true, nil
}
