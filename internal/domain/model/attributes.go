package model

import (
	"bytes"
	"encoding/json"
	"math"
)

// Category is the label category of a tasted item.
type Category string

const (
	CategoryJunmaiDaiginjo   Category = "純米大吟醸"
	CategoryJunmaiGinjo      Category = "純米吟醸"
	CategoryTokubetsuJunmai  Category = "特別純米"
	CategoryJunmai           Category = "純米酒"
	CategoryDaiginjo         Category = "大吟醸"
	CategoryGinjo            Category = "吟醸"
	CategoryTokubetsuHonjozo Category = "特別本醸造"
	CategoryHonjozo          Category = "本醸造"
	CategoryFutsushu         Category = "普通酒"
	CategoryOther            Category = "その他"
	CategoryUnknown          Category = "不明"
)

var knownCategories = []Category{
	CategoryJunmaiDaiginjo,
	CategoryJunmaiGinjo,
	CategoryTokubetsuJunmai,
	CategoryJunmai,
	CategoryDaiginjo,
	CategoryGinjo,
	CategoryTokubetsuHonjozo,
	CategoryHonjozo,
	CategoryFutsushu,
}

// KnownCategories returns the named categories in display order.
// その他 and 不明 are not part of the list.
func KnownCategories() []Category {
	out := make([]Category, len(knownCategories))
	copy(out, knownCategories)
	return out
}

// CategoryOptions returns every category an item may be registered with.
func CategoryOptions() []Category {
	return append(KnownCategories(), CategoryOther, CategoryUnknown)
}

// Known reports whether c is one of the named categories.
func (c Category) Known() bool {
	for _, k := range knownCategories {
		if c == k {
			return true
		}
	}
	return false
}

// Valid reports whether c may be stored on an item.
func (c Category) Valid() bool {
	return c.Known() || c == CategoryOther || c == CategoryUnknown
}

// Clarity describes how cloudy the poured item looked.
type Clarity string

const (
	ClarityClear  Clarity = "透明"
	ClaritySlight Clarity = "うっすら濁り"
	ClarityCloudy Clarity = "白濁"
	ClarityOther  Clarity = "その他"
)

// Valid reports whether c is a recognised clarity.
func (c Clarity) Valid() bool {
	switch c {
	case ClarityClear, ClaritySlight, ClarityCloudy, ClarityOther:
		return true
	}
	return false
}

// Temperature is the serving temperature of a tasting.
type Temperature string

const (
	TemperatureChilled Temperature = "冷"
	TemperatureRoom    Temperature = "常温"
	TemperatureWarm    Temperature = "燗"
)

// Valid reports whether t is a recognised serving temperature.
func (t Temperature) Valid() bool {
	switch t {
	case TemperatureChilled, TemperatureRoom, TemperatureWarm:
		return true
	}
	return false
}

// Attributes are the descriptive taste dimensions of a report.
type Attributes struct {
	Sweetness   int         `json:"sweetness" validate:"min=1,max=5"`
	Aroma       int         `json:"aroma" validate:"min=1,max=5"`
	Body        int         `json:"body" validate:"min=1,max=5"`
	Acidity     int         `json:"acidity" validate:"min=1,max=5"`
	Finish      int         `json:"finish" validate:"min=1,max=3"`
	Clarity     Clarity     `json:"clarity" validate:"clarity"`
	Temperature Temperature `json:"temperature" validate:"temperature"`
}

// DefaultScore is the score a new tasting form starts with.
const DefaultScore Score = 85

// DefaultAttributes returns the values a new tasting form starts with.
func DefaultAttributes() Attributes {
	return Attributes{
		Sweetness:   3,
		Aroma:       3,
		Body:        3,
		Acidity:     3,
		Finish:      2,
		Clarity:     ClarityClear,
		Temperature: TemperatureChilled,
	}
}

// Score is an overall rating on the 0..100 scale.
//
// Decoding never fails: a JSON number is bounded to the scale and rounded to
// the nearest integer, and anything else (null, strings, objects) decodes as
// 0. Stored reports written by older clients therefore still count toward
// aggregates.
type Score int

// UnmarshalJSON implements json.Unmarshaler.
func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var f float64
	if err := json.Unmarshal(data, &f); err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*s = 0
		return nil
	}
	*s = Score(math.Round(math.Min(math.Max(f, 0), 100)))
	return nil
}

// ClampScore bounds n to the 0..100 scale.
func ClampScore(n int) Score {
	switch {
	case n < 0:
		return 0
	case n > 100:
		return 100
	}
	return Score(n)
}
