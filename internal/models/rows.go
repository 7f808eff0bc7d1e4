package models

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRow is returned when a query result is missing a field the views depend on.
var ErrInvalidRow = errors.New("invalid row")

// PostRow is the result of the post list and post detail queries.
// Content is only selected by the detail query.
type PostRow struct {
	ID                   string
	Slug                 string
	Title                string
	Description          sql.NullString
	Content              sql.NullString
	PostType             sql.NullString
	Status               sql.NullString
	CategoryID           sql.NullInt64
	CategoryName         sql.NullString
	PublishedDate        sql.NullTime
	FeaturedImage        sql.NullString
	NotionLastEditedTime sql.NullTime
	CreatedAt            sql.NullTime
	UpdatedAt            sql.NullTime
}

func (r PostRow) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: post without id (slug %q)", ErrInvalidRow, r.Slug)
	}
	if strings.TrimSpace(r.Slug) == "" {
		return fmt.Errorf("%w: post %s has no slug", ErrInvalidRow, r.ID)
	}
	return nil
}

// TagRow is one (post, tag name) pair.
type TagRow struct {
	PostID string
	Name   string
}

// ImageRow is an image owned by a post, without its local path.
type ImageRow struct {
	ID        string
	PostID    string
	WebPath   string
	Caption   sql.NullString
	CreatedAt sql.NullTime
}

// CountRow is one line of a category or tag aggregate.
type CountRow struct {
	Name      string
	PostCount int64
}

// LocalPathRow is the result of the image lookup by web path.
type LocalPathRow struct {
	LocalPath string
}
