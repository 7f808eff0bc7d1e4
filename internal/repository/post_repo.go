package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"devlog/internal/database"
	"devlog/internal/models"
)

var ErrInvalidPage = errors.New("limit must be positive and offset non-negative")

const postColumns = `p.id, p.slug, p.title, p.description, p.post_type, p.status, p.category_id,
	c.name AS category_name, p.published_date, p.featured_image, p.notion_last_edited_time,
	p.created_at, p.updated_at`

const postFrom = ` FROM posts p LEFT JOIN categories c ON c.id = p.category_id`

// PostFilter narrows list and count queries. Empty fields do not filter.
// Category and Tag combine with AND.
type PostFilter struct {
	Status   string
	Category string
	Tag      string
	Oldest   bool
}

func (f PostFilter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.Status != "" {
		clauses = append(clauses, "p.status = ?")
		args = append(args, f.Status)
	}
	if f.Category != "" {
		clauses = append(clauses, "c.name = ?")
		args = append(args, f.Category)
	}
	if f.Tag != "" {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM post_tags pt INNER JOIN tags t ON t.id = pt.tag_id
			WHERE pt.post_id = p.id AND t.name = ?)`)
		args = append(args, f.Tag)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type PostRepository struct {
	db *database.Gateway
}

func NewPostRepository(db *database.Gateway) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Count(ctx context.Context, f PostFilter) (int64, error) {
	where, args := f.where()
	var count int64
	if err := r.db.Query(ctx, &count, "SELECT COUNT(*)"+postFrom+where, args...); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

// FindPage returns one page ordered by last edit time, newest first unless
// f.Oldest is set. Ties are broken by id so pages never overlap.
func (r *PostRepository) FindPage(ctx context.Context, f PostFilter, limit, offset int) ([]models.PostRow, error) {
	if limit <= 0 || offset < 0 {
		return nil, ErrInvalidPage
	}
	dir := "DESC"
	if f.Oldest {
		dir = "ASC"
	}
	where, args := f.where()
	query := "SELECT " + postColumns + postFrom + where +
		" ORDER BY p.notion_last_edited_time " + dir + ", p.id ASC LIMIT ? OFFSET ?"

	var rows []models.PostRow
	if err := r.db.Query(ctx, &rows, query, append(args, limit, offset)...); err != nil {
		return nil, fmt.Errorf("find posts page: %w", err)
	}
	return rows, nil
}

// FindBySlug returns nil, nil when no post matches.
func (r *PostRepository) FindBySlug(ctx context.Context, slug, status string) (*models.PostRow, error) {
	query := "SELECT " + postColumns + ", p.content" + postFrom + " WHERE p.slug = ?"
	args := []any{slug}
	if status != "" {
		query += " AND p.status = ?"
		args = append(args, status)
	}

	var rows []models.PostRow
	if err := r.db.Query(ctx, &rows, query+" LIMIT 1", args...); err != nil {
		return nil, fmt.Errorf("find post %q: %w", slug, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// FindTagsForPosts maps post id to its tag names in ascending order.
func (r *PostRepository) FindTagsForPosts(ctx context.Context, ids []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.TagRow
	err := r.db.Query(ctx, &rows, `SELECT pt.post_id AS post_id, t.name AS name
		FROM post_tags pt INNER JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id IN ? ORDER BY pt.post_id, t.name ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("find tags: %w", err)
	}
	for _, row := range rows {
		out[row.PostID] = append(out[row.PostID], row.Name)
	}
	return out, nil
}

// FindImagesForPosts maps post id to its images, oldest first.
func (r *PostRepository) FindImagesForPosts(ctx context.Context, ids []string) (map[string][]models.ImageRow, error) {
	out := make(map[string][]models.ImageRow, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.ImageRow
	err := r.db.Query(ctx, &rows, `SELECT id, post_id, web_path, caption, created_at
		FROM images WHERE post_id IN ? ORDER BY post_id, created_at ASC, id ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("find images: %w", err)
	}
	for _, row := range rows {
		out[row.PostID] = append(out[row.PostID], row)
	}
	return out, nil
}

func (r *PostRepository) CategoryCounts(ctx context.Context, status string) ([]models.CountRow, error) {
	query := `SELECT c.name AS name, COUNT(p.id) AS post_count
		FROM categories c INNER JOIN posts p ON p.category_id = c.id`
	var args []any
	if status != "" {
		query += " AND p.status = ?"
		args = append(args, status)
	}
	query += " GROUP BY c.id, c.name HAVING COUNT(p.id) > 0 ORDER BY post_count DESC, c.name ASC"

	var rows []models.CountRow
	if err := r.db.Query(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	return rows, nil
}

func (r *PostRepository) TagCounts(ctx context.Context, status string) ([]models.CountRow, error) {
	query := `SELECT t.name AS name, COUNT(DISTINCT p.id) AS post_count
		FROM tags t
		INNER JOIN post_tags pt ON pt.tag_id = t.id
		INNER JOIN posts p ON p.id = pt.post_id`
	var args []any
	if status != "" {
		query += " AND p.status = ?"
		args = append(args, status)
	}
	query += " GROUP BY t.id, t.name HAVING COUNT(DISTINCT p.id) > 0 ORDER BY post_count DESC, t.name ASC"

	var rows []models.CountRow
	if err := r.db.Query(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count tags: %w", err)
	}
	return rows, nil
}

func (r *PostRepository) AllSlugs(ctx context.Context, status string) ([]string, error) {
	query := "SELECT slug FROM posts"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY published_date DESC, id ASC"

	var slugs []string
	if err := r.db.Query(ctx, &slugs, query, args...); err != nil {
		return nil, fmt.Errorf("list slugs: %w", err)
	}
	return slugs, nil
}
