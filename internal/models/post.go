package models

import (
	"database/sql"
	"time"
)

// The tables below are written by the Notion ingestion job. This service only reads them;
// the gorm tags exist so the sqlite development database can be created with AutoMigrate.

type Post struct {
	ID                   string         `gorm:"type:char(36);primaryKey"`
	Slug                 string         `gorm:"type:varchar(255);uniqueIndex;not null"`
	Title                string         `gorm:"type:varchar(255);not null"`
	Description          sql.NullString `gorm:"type:text"`
	Content              sql.NullString `gorm:"type:mediumtext"`
	PostType             string         `gorm:"type:varchar(50);not null"`
	Status               string         `gorm:"type:varchar(50);not null;index"`
	CategoryID           sql.NullInt64  `gorm:"index"`
	PublishedDate        time.Time      `gorm:"type:datetime;not null"`
	FeaturedImage        sql.NullString `gorm:"type:varchar(512)"`
	NotionLastEditedTime time.Time      `gorm:"type:datetime;not null;index"`
	CreatedAt            time.Time      `gorm:"type:datetime"`
	UpdatedAt            time.Time      `gorm:"type:datetime"`
}

func (Post) TableName() string { return "posts" }

type Category struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"type:varchar(100);uniqueIndex;not null"`
}

func (Category) TableName() string { return "categories" }

type Tag struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"type:varchar(100);uniqueIndex;not null"`
}

func (Tag) TableName() string { return "tags" }

// PostTag links posts and tags. It has no payload.
type PostTag struct {
	PostID string `gorm:"type:char(36);primaryKey"`
	TagID  uint   `gorm:"primaryKey"`
}

func (PostTag) TableName() string { return "post_tags" }

// Image maps a public web path onto a file below the image storage root.
type Image struct {
	ID        string         `gorm:"type:char(36);primaryKey"`
	PostID    string         `gorm:"type:char(36);not null;index"`
	LocalPath string         `gorm:"type:varchar(512);not null"`
	WebPath   string         `gorm:"type:varchar(512);uniqueIndex;not null"`
	Caption   sql.NullString `gorm:"type:text"`
	CreatedAt time.Time      `gorm:"type:datetime"`
}

func (Image) TableName() string { return "images" }

// All lists the table models in dependency order.
func All() []any {
	return []any{&Category{}, &Tag{}, &Post{}, &PostTag{}, &Image{}}
}
