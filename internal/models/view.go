package models

import (
	"html/template"
	"strings"
	"time"
)

// ISOLayout matches JavaScript's Date.toISOString.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// PostSummary is a post as shown in lists and returned by /api/posts.
type PostSummary struct {
	ID            string   `json:"id"`
	Slug          string   `json:"slug"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	PostType      string   `json:"post_type"`
	Status        string   `json:"status"`
	CategoryID    *int64   `json:"category_id"`
	CategoryName  string   `json:"category_name"`
	Date          string   `json:"date"`
	LastEdited    string   `json:"notion_last_edited_time"`
	FeaturedImage string   `json:"featured_image"`
	Tags          []string `json:"tags"`
	Link          string   `json:"link"`

	DisplayDate string `json:"-"`
}

// PostDetail is a fully hydrated post.
type PostDetail struct {
	PostSummary
	Content   string      `json:"content"`
	CreatedAt string      `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
	Images    []ImageView `json:"images"`
	TOC       []TocEntry  `json:"toc"`

	ContentHTML template.HTML `json:"-"`
	// Excerpt is the description, or a plain text lead of the content when there is none.
	Excerpt string `json:"-"`
}

type ImageView struct {
	WebPath   string `json:"web_path"`
	Caption   string `json:"caption"`
	CreatedAt string `json:"created_at"`
}

// TocEntry is a heading of the rendered post. Children hold the deeper headings
// that follow it.
type TocEntry struct {
	Value    string     `json:"value"`
	Depth    int        `json:"depth"`
	ID       string     `json:"id"`
	Children []TocEntry `json:"children,omitempty"`
}

// NameCount is an aggregate line for the sidebar and the tech stack section.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type PostsPage struct {
	Posts       []PostSummary `json:"posts"`
	TotalPosts  int           `json:"totalPosts"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	PageSize    int           `json:"pageSize"`
}

// FormatTime renders t as an ISO-8601 UTC string. The zero time becomes "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(ISOLayout)
}

// NewPostSummary maps a row and its nested lookups onto the list view model.
// The earliest image wins over the featured_image column.
func NewPostSummary(r PostRow, tags []string, images []ImageRow) (PostSummary, error) {
	if err := r.Validate(); err != nil {
		return PostSummary{}, err
	}

	s := PostSummary{
		ID:           r.ID,
		Slug:         r.Slug,
		Title:        r.Title,
		Description:  strings.TrimSpace(r.Description.String),
		PostType:     r.PostType.String,
		Status:       r.Status.String,
		CategoryName: r.CategoryName.String,
		Date:         FormatTime(r.PublishedDate.Time),
		LastEdited:   FormatTime(r.NotionLastEditedTime.Time),
		Tags:         []string{},
		Link:         "/blog/" + r.Slug,
	}
	if r.CategoryID.Valid {
		id := r.CategoryID.Int64
		s.CategoryID = &id
	}
	if r.PublishedDate.Valid {
		s.DisplayDate = r.PublishedDate.Time.UTC().Format("2006-01-02")
	}
	if len(tags) > 0 {
		s.Tags = append(s.Tags, tags...)
	}
	switch {
	case len(images) > 0:
		s.FeaturedImage = images[0].WebPath
	case r.FeaturedImage.Valid:
		s.FeaturedImage = r.FeaturedImage.String
	}
	return s, nil
}

func NewPostDetail(r PostRow, tags []string, images []ImageRow) (PostDetail, error) {
	summary, err := NewPostSummary(r, tags, images)
	if err != nil {
		return PostDetail{}, err
	}

	d := PostDetail{
		PostSummary: summary,
		Content:     r.Content.String,
		CreatedAt:   FormatTime(r.CreatedAt.Time),
		UpdatedAt:   FormatTime(r.UpdatedAt.Time),
		Images:      make([]ImageView, 0, len(images)),
		TOC:         []TocEntry{},
	}
	for _, img := range images {
		d.Images = append(d.Images, ImageView{
			WebPath:   img.WebPath,
			Caption:   img.Caption.String,
			CreatedAt: FormatTime(img.CreatedAt.Time),
		})
	}
	return d, nil
}

// NewNameCounts drops rows without a name or posts.
func NewNameCounts(rows []CountRow) []NameCount {
	out := make([]NameCount, 0, len(rows))
	for _, r := range rows {
		if r.Name == "" || r.PostCount <= 0 {
			continue
		}
		out = append(out, NameCount{Name: r.Name, Count: int(r.PostCount)})
	}
	return out
}
