package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"devlog/internal/config"
	"devlog/internal/models"
	"devlog/internal/repository"
	"devlog/internal/utils"
)

const (
	SortLatest = "latest"
	SortOldest = "oldest"
)

const excerptLength = 160

// NormalizeSort maps anything but "oldest" onto the default order.
func NormalizeSort(sort string) string {
	if strings.EqualFold(strings.TrimSpace(sort), SortOldest) {
		return SortOldest
	}
	return SortLatest
}

// TotalPages is ceil(total / pageSize).
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// ClampPage moves page into [1, max(totalPages, 1)].
func ClampPage(page, totalPages int) int {
	return min(max(page, 1), max(totalPages, 1))
}

type PostServiceConfig struct {
	PageSize        int
	StatusFilter    string
	TagLookupPolicy string
}

type ListOptions struct {
	Page     int
	Category string
	Tag      string
	Sort     string
}

type PostService struct {
	repo   *repository.PostRepository
	cfg    PostServiceConfig
	logger *slog.Logger
}

func NewPostService(repo *repository.PostRepository, cfg PostServiceConfig, logger *slog.Logger) *PostService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 12
	}
	if cfg.TagLookupPolicy == "" {
		cfg.TagLookupPolicy = config.TagLookupPropagate
	}
	return &PostService{repo: repo, cfg: cfg, logger: logger}
}

func (s *PostService) PageSize() int {
	return s.cfg.PageSize
}

// GetPosts returns one page of summaries. Out of range pages are clamped, so
// asking for page 0 or page 999 yields the first or the last page.
func (s *PostService) GetPosts(ctx context.Context, opts ListOptions) (*models.PostsPage, error) {
	filter := repository.PostFilter{
		Status:   s.cfg.StatusFilter,
		Category: strings.TrimSpace(opts.Category),
		Tag:      strings.TrimSpace(opts.Tag),
		Oldest:   NormalizeSort(opts.Sort) == SortOldest,
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get posts: %w", err)
	}
	totalPages := TotalPages(int(total), s.cfg.PageSize)
	page := ClampPage(opts.Page, totalPages)

	result := &models.PostsPage{
		Posts:       []models.PostSummary{},
		TotalPosts:  int(total),
		TotalPages:  totalPages,
		CurrentPage: page,
		PageSize:    s.cfg.PageSize,
	}
	if total == 0 {
		return result, nil
	}

	rows, err := s.repo.FindPage(ctx, filter, s.cfg.PageSize, (page-1)*s.cfg.PageSize)
	if err != nil {
		return nil, fmt.Errorf("get posts: %w", err)
	}
	tags, images, err := s.nested(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("get posts: %w", err)
	}

	for _, row := range rows {
		summary, err := models.NewPostSummary(row, tags[row.ID], images[row.ID])
		if err != nil {
			s.logger.Warn("skipping malformed post row", "error", err)
			continue
		}
		result.Posts = append(result.Posts, summary)
	}
	return result, nil
}

// GetPostBySlug returns ErrInvalidInput for a blank slug and ErrNotFound when
// no post (or no post with the configured status) has it.
func (s *PostService) GetPostBySlug(ctx context.Context, slug string) (*models.PostDetail, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("%w: slug is required", ErrInvalidInput)
	}

	row, err := s.repo.FindBySlug(ctx, slug, s.cfg.StatusFilter)
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	if row == nil {
		return nil, ErrNotFound
	}

	tags, images, err := s.nested(ctx, []models.PostRow{*row})
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	detail, err := models.NewPostDetail(*row, tags[row.ID], images[row.ID])
	if err != nil {
		s.logger.Warn("malformed post row", "slug", slug, "error", err)
		return nil, ErrNotFound
	}

	rendered, err := utils.RenderPost(detail.Content)
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	detail.ContentHTML = rendered.HTML
	detail.TOC = rendered.TOC
	detail.Excerpt = detail.Description
	if detail.Excerpt == "" {
		detail.Excerpt = utils.GenerateExcerpt(detail.Content, excerptLength)
	}
	return &detail, nil
}

func (s *PostService) GetCategories(ctx context.Context) ([]models.NameCount, error) {
	rows, err := s.repo.CategoryCounts(ctx, s.cfg.StatusFilter)
	if err != nil {
		return nil, fmt.Errorf("get categories: %w", err)
	}
	return models.NewNameCounts(rows), nil
}

func (s *PostService) GetTags(ctx context.Context) ([]models.NameCount, error) {
	rows, err := s.repo.TagCounts(ctx, s.cfg.StatusFilter)
	if err != nil {
		return nil, fmt.Errorf("get tags: %w", err)
	}
	return models.NewNameCounts(rows), nil
}

func (s *PostService) GetAllSlugs(ctx context.Context) ([]string, error) {
	slugs, err := s.repo.AllSlugs(ctx, s.cfg.StatusFilter)
	if err != nil {
		return nil, fmt.Errorf("get slugs: %w", err)
	}
	if slugs == nil {
		slugs = []string{}
	}
	return slugs, nil
}

func (s *PostService) CountPosts(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx, repository.PostFilter{Status: s.cfg.StatusFilter})
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return int(n), nil
}

// nested loads tags and images for rows in one query each.
func (s *PostService) nested(ctx context.Context, rows []models.PostRow) (map[string][]string, map[string][]models.ImageRow, error) {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
	}

	tags, err := s.repo.FindTagsForPosts(ctx, ids)
	if err != nil {
		if err = s.lookupFailed("tags", err); err != nil {
			return nil, nil, err
		}
		tags = map[string][]string{}
	}
	images, err := s.repo.FindImagesForPosts(ctx, ids)
	if err != nil {
		if err = s.lookupFailed("images", err); err != nil {
			return nil, nil, err
		}
		images = map[string][]models.ImageRow{}
	}
	return tags, images, nil
}

// lookupFailed applies the configured policy: propagate returns err, degrade
// logs it and lets the posts go out without the nested data.
func (s *PostService) lookupFailed(what string, err error) error {
	if s.cfg.TagLookupPolicy == config.TagLookupDegrade && !errors.Is(err, context.Canceled) {
		s.logger.Warn("nested lookup failed, serving posts without it", "lookup", what, "error", err)
		return nil
	}
	return err
}
