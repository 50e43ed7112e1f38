package domain

import "time"

// FieldReportRef identifies a field report used as source material.
type FieldReportRef struct {
	ID            string `json:"id"`
	EventTitle    string `json:"event_title"`
	ReporterEmail string `json:"user_email"`
}

// IngestedItemRef identifies an ingested external item used as source material.
type IngestedItemRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ResearchSource is a research URL attached to an issue as a whole.
type ResearchSource struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Provenance groups the sources behind one section.
type Provenance struct {
	FieldReports    []FieldReportRef  `json:"field_reports"`
	IngestedItems   []IngestedItemRef `json:"ingested_items"`
	ResearchSources []ResearchSource  `json:"research_sources"`
}

// IsEmpty reports whether the section has no sources at all.
func (p Provenance) IsEmpty() bool {
	return len(p.FieldReports) == 0 && len(p.IngestedItems) == 0 && len(p.ResearchSources) == 0
}

// TaggedFieldReport is a field report link as stored: tagged with a section.
type TaggedFieldReport struct {
	Section Section
	FieldReportRef
}

// TaggedIngestedItem is an ingested item link as stored: tagged with a section.
type TaggedIngestedItem struct {
	Section Section
	IngestedItemRef
}

// ProvenanceLinks is the raw set of links stored for an issue.
type ProvenanceLinks struct {
	FieldReports  []TaggedFieldReport
	IngestedItems []TaggedIngestedItem
	Research      []ResearchSource
}

// IngestedItem is an external item pulled from a syndication feed.
type IngestedItem struct {
	ID          string    `json:"id" db:"id"`
	FeedURL     string    `json:"feed_url" db:"feed_url"`
	GUID        string    `json:"guid" db:"guid"`
	Title       string    `json:"title" db:"title"`
	URL         string    `json:"url" db:"url"`
	Summary     string    `json:"summary" db:"summary"`
	Author      string    `json:"author" db:"author"`
	PublishedAt time.Time `json:"published_at" db:"published_at"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
