// Package model contains the domain records shared between layers.
package model

import (
	"strings"
	"time"
)

// Item is a tasted product. AverageScore and ReportCount are derived from
// the stored reports and only ever written by the aggregator.
type Item struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     Category  `json:"category"`
	Origin       string    `json:"origin,omitempty"`
	FrontImage   string    `json:"front_image,omitempty"`
	BackImage    string    `json:"back_image,omitempty"`
	AverageScore float64   `json:"average_score"`
	ReportCount  int       `json:"report_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Aggregate returns the derived fields of the item.
func (i Item) Aggregate() Aggregate {
	return Aggregate{AverageScore: i.AverageScore, ReportCount: i.ReportCount}
}

// WithAggregate returns a copy of i carrying a. No other field changes.
func (i Item) WithAggregate(a Aggregate) Item {
	i.AverageScore = a.AverageScore
	i.ReportCount = a.ReportCount
	return i
}

// MaxImageLen bounds each image field. Two full images still fit in one
// request body; it must match the max tags on ItemInput.
const MaxImageLen = 500000

// ItemInput holds the descriptive fields a client may set on an item. The
// image fields usually carry compressed JPEG data URLs.
type ItemInput struct {
	Name       string   `json:"name" validate:"required,max=200"`
	Category   Category `json:"category" validate:"omitempty,category"`
	Origin     string   `json:"origin" validate:"max=200"`
	FrontImage string   `json:"front_image" validate:"max=500000"`
	BackImage  string   `json:"back_image" validate:"max=500000"`
}

// Normalize trims surrounding whitespace from the free text fields.
func (in ItemInput) Normalize() ItemInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Origin = strings.TrimSpace(in.Origin)
	in.FrontImage = strings.TrimSpace(in.FrontImage)
	in.BackImage = strings.TrimSpace(in.BackImage)
	if in.Category == "" {
		in.Category = CategoryUnknown
	}
	return in
}

// Apply copies the descriptive fields onto item, leaving identity and
// aggregate fields untouched.
func (in ItemInput) Apply(item Item) Item {
	item.Name = in.Name
	item.Category = in.Category
	item.Origin = in.Origin
	item.FrontImage = in.FrontImage
	item.BackImage = in.BackImage
	return item
}

// ItemFilter narrows an item listing.
type ItemFilter struct {
	// Category selects items of one category. CategoryOther also matches
	// every item whose category is not one of KnownCategories.
	Category Category
}

// Match reports whether item passes the filter.
func (f ItemFilter) Match(item Item) bool {
	switch {
	case f.Category == "":
		return true
	case f.Category == CategoryOther:
		return !item.Category.Known()
	default:
		return item.Category == f.Category
	}
}

// Aggregate is the derived summary stored on an item.
type Aggregate struct {
	AverageScore float64 `json:"average_score"`
	ReportCount  int     `json:"report_count"`
}
