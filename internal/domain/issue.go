package domain

import (
	"strings"
	"time"
)

// IssueStatus enumerates the lifecycle states of a newsletter issue.
// Transitions only move forward: DRAFT -> REVIEWED -> PUBLISHED.
type IssueStatus string

const (
	IssueDraft     IssueStatus = "DRAFT"
	IssueReviewed  IssueStatus = "REVIEWED"
	IssuePublished IssueStatus = "PUBLISHED"
)

// Section is one of the fixed sections every issue is composed of.
type Section string

const (
	SectionModels    Section = "MODELS"
	SectionMoney     Section = "MONEY"
	SectionPeople    Section = "PEOPLE"
	SectionFromField Section = "FROM_FIELD"
	SectionNextSteps Section = "NEXT_STEPS"
)

// Sections lists every section in render order.
var Sections = []Section{
	SectionModels,
	SectionMoney,
	SectionPeople,
	SectionFromField,
	SectionNextSteps,
}

var sectionOrder = map[Section]int{
	SectionModels:    10,
	SectionMoney:     20,
	SectionPeople:    30,
	SectionFromField: 40,
	SectionNextSteps: 50,
}

var sectionLabels = map[Section]string{
	SectionModels:    "Models",
	SectionMoney:     "Money",
	SectionPeople:    "People",
	SectionFromField: "From the field",
	SectionNextSteps: "What to do next",
}

// ParseSection normalizes a section name. The second return is false for
// names outside the closed set.
func ParseSection(s string) (Section, bool) {
	sec := Section(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := sectionOrder[sec]
	return sec, ok
}

// Valid reports whether s belongs to the closed set of sections.
func (s Section) Valid() bool {
	_, ok := sectionOrder[s]
	return ok
}

// SortOrder returns the block sort key for the section.
func (s Section) SortOrder() int { return sectionOrder[s] }

// Label returns the human heading used in exports.
func (s Section) Label() string { return sectionLabels[s] }

// Taggable reports whether provenance links may point at this section.
// NEXT_STEPS is editorial only and never carries sources.
func (s Section) Taggable() bool { return s.Valid() && s != SectionNextSteps }

// Issue is one scheduled publication unit.
type Issue struct {
	ID           string      `json:"id" db:"id"`
	Title        string      `json:"title" db:"title"`
	IssueDate    string      `json:"issue_date" db:"issue_date"`
	Status       IssueStatus `json:"status" db:"status"`
	ScheduledFor *time.Time  `json:"scheduled_for" db:"scheduled_for"`
	PublishedAt  *time.Time  `json:"published_at" db:"published_at"`
	PublishedBy  *string     `json:"published_by" db:"published_by"`
	CreatedBy    *string     `json:"created_by" db:"created_by"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// IsPublished reports whether the issue passed the publish gate.
func (i *Issue) IsPublished() bool { return i.Status == IssuePublished }

// Block holds the markdown content of one section of an issue.
type Block struct {
	ID        string    `json:"id" db:"id"`
	IssueID   string    `json:"issue_id" db:"issue_id"`
	Section   Section   `json:"section" db:"section"`
	ContentMD string    `json:"content_md" db:"content_md"`
	SortOrder int       `json:"sort_order" db:"sort_order"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IssueDetail is an issue together with its blocks and per-section provenance.
type IssueDetail struct {
	Issue
	Blocks     map[Section]Block      `json:"blocks"`
	Provenance map[Section]Provenance `json:"provenance"`
}
