package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"devlog/internal/config"
	"devlog/internal/database"
	"devlog/internal/logging"
	"devlog/internal/repository"
	"devlog/internal/testutil"
)

func newPostService(t *testing.T, cfg PostServiceConfig) (*PostService, *testutil.Fixture, *database.Gateway) {
	t.Helper()
	gw := testutil.OpenGateway(t)
	fx := testutil.NewFixture(t, gw)
	return NewPostService(repository.NewPostRepository(gw), cfg, logging.Discard()), fx, gw
}

func seedPosts(fx *testutil.Fixture, n int) {
	for i := 0; i < n; i++ {
		fx.Post(testutil.PostSpec{
			Slug:     fmt.Sprintf("post-%02d", i),
			Category: []string{"Backend", "Frontend"}[i%2],
			Tags:     []string{"go"},
			Edited:   time.Duration(i) * time.Hour,
		})
	}
}

func TestTotalPagesAndClamp(t *testing.T) {
	cases := []struct{ total, size, want int }{
		{0, 12, 0}, {1, 12, 1}, {12, 12, 1}, {13, 12, 2}, {25, 12, 3},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.size); got != tc.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tc.total, tc.size, got, tc.want)
		}
	}

	for _, tc := range []struct{ page, pages, want int }{
		{-5, 3, 1}, {0, 3, 1}, {2, 3, 2}, {99, 3, 3}, {7, 0, 1},
	} {
		got := ClampPage(tc.page, tc.pages)
		if got != tc.want {
			t.Errorf("ClampPage(%d, %d) = %d, want %d", tc.page, tc.pages, got, tc.want)
		}
		if again := ClampPage(got, tc.pages); again != got {
			t.Errorf("ClampPage not idempotent: %d -> %d", got, again)
		}
	}
}

func TestNormalizeSort(t *testing.T) {
	for in, want := range map[string]string{"": SortLatest, "latest": SortLatest, "OLDEST": SortOldest, "random": SortLatest} {
		if got := NormalizeSort(in); got != want {
			t.Errorf("NormalizeSort(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetPostsPagesCoverEveryPostOnce(t *testing.T) {
	svc, fx, _ := newPostService(t, PostServiceConfig{PageSize: 4})
	seedPosts(fx, 10)
	ctx := context.Background()

	seen := map[string]int{}
	var order []string
	for page := 1; page <= 3; page++ {
		res, err := svc.GetPosts(ctx, ListOptions{Page: page})
		if err != nil {
			t.Fatalf("GetPosts(%d): %v", page, err)
		}
		if res.TotalPosts != 10 || res.TotalPages != 3 || res.CurrentPage != page || res.PageSize != 4 {
			t.Errorf("page %d meta = %+v", page, res)
		}
		wantLen := min(4, 10-(page-1)*4)
		if len(res.Posts) != wantLen {
			t.Errorf("page %d has %d posts, want %d", page, len(res.Posts), wantLen)
		}
		for _, p := range res.Posts {
			seen[p.ID]++
			order = append(order, p.Slug)
		}
	}
	if len(seen) != 10 {
		t.Errorf("saw %d distinct posts, want 10", len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("post %s appeared %d times", id, n)
		}
	}
	if order[0] != "post-09" || order[9] != "post-00" {
		t.Errorf("latest order = %v", order)
	}

	res, _ := svc.GetPosts(ctx, ListOptions{Page: 1, Sort: SortOldest})
	if res.Posts[0].Slug != "post-00" {
		t.Errorf("oldest first = %s", res.Posts[0].Slug)
	}
}

func TestGetPostsClampsOutOfRange(t *testing.T) {
	svc, fx, _ := newPostService(t, PostServiceConfig{PageSize: 4})
	seedPosts(fx, 10)
	ctx := context.Background()

	last, _ := svc.GetPosts(ctx, ListOptions{Page: 3})
	for _, page := range []int{4, 99} {
		res, err := svc.GetPosts(ctx, ListOptions{Page: page})
		if err != nil {
			t.Fatal(err)
		}
		if res.CurrentPage != 3 || !reflect.DeepEqual(res.Posts, last.Posts) {
			t.Errorf("page %d = %d posts on page %d, want the last page", page, len(res.Posts), res.CurrentPage)
		}
	}
	first, _ := svc.GetPosts(ctx, ListOptions{Page: -1})
	if first.CurrentPage != 1 || len(first.Posts) != 4 {
		t.Errorf("negative page = %+v", first)
	}
}

func TestGetPostsEmptyStore(t *testing.T) {
	svc, _, _ := newPostService(t, PostServiceConfig{})
	res, err := svc.GetPosts(context.Background(), ListOptions{Page: 5})
	if err != nil {
		t.Fatal(err)
	}
	if res.CurrentPage != 1 || res.TotalPages != 0 || res.TotalPosts != 0 || res.Posts == nil || len(res.Posts) != 0 {
		t.Errorf("empty store = %+v", res)
	}
	if res.PageSize != 12 {
		t.Errorf("default page size = %d", res.PageSize)
	}
}

func TestGetPostsFiltersAndHydration(t *testing.T) {
	svc, fx, _ := newPostService(t, PostServiceConfig{StatusFilter: "Published"})
	ctx := context.Background()
	p := fx.Post(testutil.PostSpec{Slug: "tagged", Category: "Dev", Tags: []string{"zeta", "alpha", "Mid"}, FeaturedImage: "/cover.png"})
	fx.Image(p.ID, "/api/images/tagged/b.png", "/x/b.png", 2*time.Minute)
	fx.Image(p.ID, "/api/images/tagged/a.png", "/x/a.png", time.Minute)
	fx.Post(testutil.PostSpec{Slug: "draft", Category: "Dev", Status: "Draft", Tags: []string{"alpha"}})
	fx.Post(testutil.PostSpec{Slug: "other", Category: "Ops", Tags: []string{"beta"}})

	res, err := svc.GetPosts(ctx, ListOptions{Category: "Dev"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Posts) != 1 {
		t.Fatalf("posts = %+v", res.Posts)
	}
	got := res.Posts[0]
	if !reflect.DeepEqual(got.Tags, []string{"Mid", "alpha", "zeta"}) {
		t.Errorf("tags = %v", got.Tags)
	}
	if got.FeaturedImage != "/api/images/tagged/a.png" {
		t.Errorf("featured image = %q", got.FeaturedImage)
	}
	if got.CategoryName != "Dev" {
		t.Errorf("category = %q", got.CategoryName)
	}

	res, _ = svc.GetPosts(ctx, ListOptions{Tag: "alpha"})
	if res.TotalPosts != 1 || res.Posts[0].Slug != "tagged" {
		t.Errorf("tag filter = %+v", res)
	}
	res, _ = svc.GetPosts(ctx, ListOptions{Category: "Ops", Tag: "alpha"})
	if res.TotalPosts != 0 {
		t.Errorf("category AND tag = %+v", res)
	}
}

func TestGetPostBySlug(t *testing.T) {
	svc, fx, _ := newPostService(t, PostServiceConfig{})
	ctx := context.Background()
	fx.Post(testutil.PostSpec{Slug: "hello", Title: "Hello", Content: "# Hi there\n\nSome **bold** words.", Tags: []string{"b", "a"}})

	first, err := svc.GetPostBySlug(ctx, "hello")
	if err != nil {
		t.Fatalf("GetPostBySlug: %v", err)
	}
	if !strings.Contains(string(first.ContentHTML), "<strong>bold</strong>") {
		t.Errorf("html = %s", first.ContentHTML)
	}
	if len(first.TOC) != 1 || first.TOC[0].ID != "hi-there" {
		t.Errorf("toc = %+v", first.TOC)
	}
	if first.Description != "" || first.Excerpt != "Hi there Some bold words." {
		t.Errorf("description = %q, excerpt = %q", first.Description, first.Excerpt)
	}

	second, err := svc.GetPostBySlug(ctx, "hello")
	if err != nil || !reflect.DeepEqual(first, second) {
		t.Errorf("second lookup differs: %+v, %v", second, err)
	}

	if _, err := svc.GetPostBySlug(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing slug err = %v", err)
	}
	if _, err := svc.GetPostBySlug(ctx, "   "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank slug err = %v", err)
	}
}

func TestGetPostBySlugHonoursStatusFilter(t *testing.T) {
	svc, fx, _ := newPostService(t, PostServiceConfig{StatusFilter: "Published"})
	fx.Post(testutil.PostSpec{Slug: "draft", Status: "Draft"})
	if _, err := svc.GetPostBySlug(context.Background(), "draft"); !errors.Is(err, ErrNotFound) {
		t.Errorf("draft err = %v, want ErrNotFound", err)
	}
}

func TestNestedLookupPolicy(t *testing.T) {
	for _, policy := range []string{config.TagLookupPropagate, config.TagLookupDegrade} {
		t.Run(policy, func(t *testing.T) {
			svc, fx, _ := newPostService(t, PostServiceConfig{TagLookupPolicy: policy})
			fx.Post(testutil.PostSpec{Slug: "p", Category: "Dev", Tags: []string{"go"}})
			fx.Exec("DROP TABLE post_tags")

			res, err := svc.GetPosts(context.Background(), ListOptions{Category: "Dev"})
			switch policy {
			case config.TagLookupPropagate:
				if err == nil {
					t.Fatalf("expected error, got %+v", res)
				}
			case config.TagLookupDegrade:
				if err != nil {
					t.Fatalf("GetPosts: %v", err)
				}
				if len(res.Posts) != 1 || len(res.Posts[0].Tags) != 0 {
					t.Errorf("degraded posts = %+v", res.Posts)
				}
			}
		})
	}
}

func TestAggregatesAndSlugs(t *testing.T) {
	svc, fx, _ := newPostService(t, PostServiceConfig{})
	ctx := context.Background()
	fx.Post(testutil.PostSpec{Slug: "a", Category: "Zed", Tags: []string{"x"}, Published: 1 * time.Hour})
	fx.Post(testutil.PostSpec{Slug: "b", Category: "Zed", Tags: []string{"x", "y"}, Published: 2 * time.Hour})
	fx.Post(testutil.PostSpec{Slug: "c", Category: "Alpha", Tags: []string{"y"}, Published: 3 * time.Hour})
	fx.Post(testutil.PostSpec{Slug: "d", Category: "Beta", Published: 4 * time.Hour})
	fx.Category("Unused")

	cats, err := svc.GetCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for i, c := range cats {
		names = append(names, c.Name)
		if i > 0 && (cats[i-1].Count < c.Count || (cats[i-1].Count == c.Count && cats[i-1].Name > c.Name)) {
			t.Errorf("categories out of order: %+v", cats)
		}
	}
	if want := []string{"Zed", "Alpha", "Beta"}; !reflect.DeepEqual(names, want) {
		t.Errorf("categories = %v, want %v", names, want)
	}

	tags, _ := svc.GetTags(ctx)
	if len(tags) != 2 || tags[0].Name != "x" || tags[0].Count != 2 || tags[1].Name != "y" {
		t.Errorf("tags = %+v", tags)
	}

	slugs, err := svc.GetAllSlugs(ctx)
	if err != nil || !reflect.DeepEqual(slugs, []string{"d", "c", "b", "a"}) {
		t.Errorf("slugs = %v, %v", slugs, err)
	}
}

func TestSidebarCaching(t *testing.T) {
	svc, fx, _ := newPostService(t, PostServiceConfig{})
	ctx := context.Background()
	fx.Post(testutil.PostSpec{Slug: "one", Category: "Dev", Tags: []string{"go"}})

	cached := NewSidebarService(svc, time.Hour)
	uncached := NewSidebarService(svc, 0)
	first, err := cached.GetSidebar(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first.TotalPosts != 1 || len(first.Categories) != 1 || len(first.Tags) != 1 {
		t.Errorf("sidebar = %+v", first)
	}

	fx.Post(testutil.PostSpec{Slug: "two", Category: "Ops"})

	again, _ := cached.GetSidebar(ctx)
	if again.TotalPosts != 1 {
		t.Errorf("cached sidebar changed before ttl: %+v", again)
	}
	fresh, _ := uncached.GetSidebar(ctx)
	if fresh.TotalPosts != 2 || len(fresh.Categories) != 2 {
		t.Errorf("uncached sidebar = %+v", fresh)
	}
}
