package services

import (
	"context"
	"fmt"
	"time"

	"devlog/internal/models"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const sidebarKey = "sidebar"

// Sidebar holds the counts shown next to every page.
type Sidebar struct {
	Categories []models.NameCount
	Tags       []models.NameCount
	TotalPosts int
}

// SidebarService caches the sidebar aggregates for a fixed TTL. Entries are
// never invalidated early; the store is read-only from this process.
type SidebarService struct {
	posts *PostService
	cache *expirable.LRU[string, *Sidebar]
}

// NewSidebarService disables caching when ttl is not positive.
func NewSidebarService(posts *PostService, ttl time.Duration) *SidebarService {
	s := &SidebarService{posts: posts}
	if ttl > 0 {
		s.cache = expirable.NewLRU[string, *Sidebar](1, nil, ttl)
	}
	return s
}

func (s *SidebarService) GetSidebar(ctx context.Context) (*Sidebar, error) {
	if s.cache != nil {
		if sb, ok := s.cache.Get(sidebarKey); ok {
			return sb, nil
		}
	}

	categories, err := s.posts.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sidebar: %w", err)
	}
	tags, err := s.posts.GetTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sidebar: %w", err)
	}
	total, err := s.posts.CountPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sidebar: %w", err)
	}

	sb := &Sidebar{Categories: categories, Tags: tags, TotalPosts: total}
	if s.cache != nil {
		s.cache.Add(sidebarKey, sb)
	}
	return sb, nil
}
