package domain

import "time"

// Category is the closed set of buckets a bulletin item is filed under.
type Category string

const (
	CategorySports   Category = "sports"
	CategoryAcademic Category = "academic"
	CategoryEvents   Category = "events"
	CategoryClubs    Category = "clubs"
	CategoryFood     Category = "food"
	CategoryAdmin    Category = "admin"
	CategoryGeneral  Category = "general"
)

// Categories lists every valid category.
var Categories = []Category{
	CategorySports,
	CategoryAcademic,
	CategoryEvents,
	CategoryClubs,
	CategoryFood,
	CategoryAdmin,
	CategoryGeneral,
}

type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Metadata struct {
	PostedInfo *string `json:"posted_info,omitempty"`
}

// RawItem is one announcement as extracted from the feed page.
type RawItem struct {
	Content     string // normalized text of the item body
	Meta        string // text of the posting-info block
	HasMeta     bool
	PostedInfo  string
	Links       []Link
	Attachments []Attachment
}

// ClassifiedItem is a RawItem with all derived fields populated.
type ClassifiedItem struct {
	Content              string
	Title                string
	AIHeadline           *string
	IsFeedback           bool
	IsDonation           bool
	IsFromStudent        bool
	HasSpecificTargeting bool
	Category             Category
	Date                 *string
	YearGroups           *string
	Attachments          []Attachment
	Metadata             Metadata
	ScrapedAt            time.Time
}

// BulletinItem is a persisted ClassifiedItem.
type BulletinItem struct {
	ID int64
	ClassifiedItem
	CreatedAt time.Time
}
