// Package testutil opens throwaway sqlite databases and seeds them.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"devlog/internal/config"
	"devlog/internal/database"
	"devlog/internal/logging"
	"devlog/internal/models"

	"github.com/google/uuid"
)

// Epoch is the base time for fixture timestamps.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func OpenGateway(t testing.TB) *database.Gateway {
	t.Helper()
	gw, err := database.Open(config.Database{
		Driver:       config.DriverSQLite,
		Path:         filepath.Join(t.TempDir(), "blog.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
	}, logging.Discard())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { gw.Close() })
	return gw
}

// Fixture inserts rows the way the ingestion job would.
type Fixture struct {
	t          testing.TB
	gw         *database.Gateway
	categories map[string]uint
	tags       map[string]uint
}

func NewFixture(t testing.TB, gw *database.Gateway) *Fixture {
	return &Fixture{t: t, gw: gw, categories: map[string]uint{}, tags: map[string]uint{}}
}

func (f *Fixture) create(v any) {
	f.t.Helper()
	if err := f.gw.Conn(context.Background()).Create(v).Error; err != nil {
		f.t.Fatalf("insert %T: %v", v, err)
	}
}

func (f *Fixture) Category(name string) uint {
	f.t.Helper()
	if id, ok := f.categories[name]; ok {
		return id
	}
	c := &models.Category{Name: name}
	f.create(c)
	f.categories[name] = c.ID
	return c.ID
}

func (f *Fixture) Tag(name string) uint {
	f.t.Helper()
	if id, ok := f.tags[name]; ok {
		return id
	}
	tag := &models.Tag{Name: name}
	f.create(tag)
	f.tags[name] = tag.ID
	return tag.ID
}

// PostSpec describes a post to insert. Zero values get sensible defaults;
// Edited is the offset from Epoch used for notion_last_edited_time.
type PostSpec struct {
	Slug          string
	Title         string
	Description   string
	Content       string
	Status        string
	Category      string
	Tags          []string
	FeaturedImage string
	Published     time.Duration
	Edited        time.Duration
}

func (f *Fixture) Post(ps PostSpec) models.Post {
	f.t.Helper()
	if ps.Title == "" {
		ps.Title = ps.Slug
	}
	if ps.Status == "" {
		ps.Status = "Published"
	}
	p := models.Post{
		ID:                   uuid.NewString(),
		Slug:                 ps.Slug,
		Title:                ps.Title,
		Description:          nullString(ps.Description),
		Content:              nullString(ps.Content),
		PostType:             "post",
		Status:               ps.Status,
		FeaturedImage:        nullString(ps.FeaturedImage),
		PublishedDate:        Epoch.Add(ps.Published),
		NotionLastEditedTime: Epoch.Add(ps.Edited),
		CreatedAt:            Epoch,
		UpdatedAt:            Epoch.Add(ps.Edited),
	}
	if ps.Category != "" {
		p.CategoryID = sql.NullInt64{Int64: int64(f.Category(ps.Category)), Valid: true}
	}
	f.create(&p)
	for _, name := range ps.Tags {
		f.create(&models.PostTag{PostID: p.ID, TagID: f.Tag(name)})
	}
	return p
}

// Image registers a file for a post. created is the offset from Epoch.
func (f *Fixture) Image(postID, webPath, localPath string, created time.Duration) models.Image {
	f.t.Helper()
	img := models.Image{
		ID:        uuid.NewString(),
		PostID:    postID,
		LocalPath: localPath,
		WebPath:   webPath,
		CreatedAt: Epoch.Add(created),
	}
	f.create(&img)
	return img
}

// Exec runs a statement against the test database, for breaking things on purpose.
func (f *Fixture) Exec(query string, args ...any) {
	f.t.Helper()
	if err := f.gw.Conn(context.Background()).Exec(query, args...).Error; err != nil {
		f.t.Fatalf("exec %q: %v", query, err)
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
