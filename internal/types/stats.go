package types

import (
	"time"
)

// Dataset identifies one independently refreshed cache entry.
type Dataset string

const (
	DatasetWorld     Dataset = "world"
	DatasetCountries Dataset = "countries"
	DatasetNews      Dataset = "news"
)

// Datasets lists every dataset in refresh order.
var Datasets = []Dataset{DatasetWorld, DatasetCountries, DatasetNews}

// WorldSummary holds the headline counters of the statistics page.
type WorldSummary struct {
	Cases     int64 `json:"cases"     bson:"cases"`
	Deaths    int64 `json:"deaths"    bson:"deaths"`
	Recovered int64 `json:"recovered" bson:"recovered"`

	// Updated is the page's "Last updated" time in epoch milliseconds.
	Updated int64 `json:"updated" bson:"updated"`
}

// UpdatedAt returns Updated as a time.Time in UTC.
func (w WorldSummary) UpdatedAt() time.Time {
	return time.UnixMilli(w.Updated).UTC()
}

// CountryRecord is one row of the per-country table.
type CountryRecord struct {
	Country     string `json:"country"     bson:"country"`
	Cases       int64  `json:"cases"       bson:"cases"`
	TodayCases  int64  `json:"todayCases"  bson:"todayCases"`
	Deaths      int64  `json:"deaths"      bson:"deaths"`
	TodayDeaths int64  `json:"todayDeaths" bson:"todayDeaths"`
	Recovered   int64  `json:"recovered"   bson:"recovered"`
	Critical    int64  `json:"critical"    bson:"critical"`
}

// Country record field names, as they appear in JSON.
const (
	FieldCountry     = "country"
	FieldCases       = "cases"
	FieldTodayCases  = "todayCases"
	FieldDeaths      = "deaths"
	FieldTodayDeaths = "todayDeaths"
	FieldRecovered   = "recovered"
	FieldCritical    = "critical"
)

// CountryFields lists the JSON field names of CountryRecord in column order.
var CountryFields = []string{
	FieldCountry, FieldCases, FieldTodayCases, FieldDeaths,
	FieldTodayDeaths, FieldRecovered, FieldCritical,
}

// Count returns the numeric value of a field. ok is false for the country
// name and for unknown fields.
func (c *CountryRecord) Count(field string) (int64, bool) {
	switch field {
	case FieldCases:
		return c.Cases, true
	case FieldTodayCases:
		return c.TodayCases, true
	case FieldDeaths:
		return c.Deaths, true
	case FieldTodayDeaths:
		return c.TodayDeaths, true
	case FieldRecovered:
		return c.Recovered, true
	case FieldCritical:
		return c.Critical, true
	}
	return 0, false
}

// SetCount assigns a numeric field by name. Unknown names are ignored.
func (c *CountryRecord) SetCount(field string, v int64) {
	switch field {
	case FieldCases:
		c.Cases = v
	case FieldTodayCases:
		c.TodayCases = v
	case FieldDeaths:
		c.Deaths = v
	case FieldTodayDeaths:
		c.TodayDeaths = v
	case FieldRecovered:
		c.Recovered = v
	case FieldCritical:
		c.Critical = v
	}
}

// IsCountryField reports whether name is a known CountryRecord field.
func IsCountryField(name string) bool {
	for _, f := range CountryFields {
		if f == name {
			return true
		}
	}
	return false
}

// ArticleSource names the publisher of a news article.
type ArticleSource struct {
	ID   string `json:"id"   bson:"id"`
	Name string `json:"name" bson:"name"`
}

// NewsArticle mirrors the article object of the upstream news search API.
type NewsArticle struct {
	Source      ArticleSource `json:"source"      bson:"source"`
	Author      string        `json:"author"      bson:"author"`
	Title       string        `json:"title"       bson:"title"`
	Description string        `json:"description" bson:"description"`
	URL         string        `json:"url"         bson:"url"`
	URLToImage  string        `json:"urlToImage"  bson:"urlToImage"`
	PublishedAt string        `json:"publishedAt" bson:"publishedAt"`
	Content     string        `json:"content"     bson:"content"`
}

// Snapshot is the full value stored under one dataset at a point in time.
type Snapshot struct {
	Dataset   Dataset   `json:"dataset"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewSnapshot wraps a value for a dataset, stamped with the current time.
func NewSnapshot(dataset Dataset, value any) Snapshot {
	return Snapshot{
		Dataset:   dataset,
		Value:     value,
		UpdatedAt: time.Now(),
	}
}
