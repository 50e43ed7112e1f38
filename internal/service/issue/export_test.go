package issue

import (
	"strings"
	"testing"

	"github.com/ignite/brief/internal/domain"
	"github.com/stretchr/testify/assert"
)

func fixtureDetail(links *domain.ProvenanceLinks) *domain.IssueDetail {
	is := &domain.Issue{ID: "i1", Title: "Week 12", IssueDate: "2026-03-20", Status: domain.IssuePublished}
	blocks := []domain.Block{
		{Section: domain.SectionModels, ContentMD: "  Agents everywhere.\n"},
		{Section: domain.SectionMoney, ContentMD: "   "},
	}
	return assemble(is, blocks, links)
}

func TestExport(t *testing.T) {
	d := fixtureDetail(&domain.ProvenanceLinks{
		FieldReports: []domain.TaggedFieldReport{{
			Section:        domain.SectionFromField,
			FieldReportRef: domain.FieldReportRef{ID: "fr1", EventTitle: "Demo Day", ReporterEmail: "ana@example.com"},
		}},
		IngestedItems: []domain.TaggedIngestedItem{{
			Section:         domain.SectionFromField,
			IngestedItemRef: domain.IngestedItemRef{ID: "it1", Title: "Launch post", URL: "https://x.test/launch"},
		}},
	})

	want := `# Week 12

Issue date: 2026-03-20
Status: PUBLISHED

## Models

Agents everywhere.

Provenance:
- (None)

## Money

- (Empty)

Provenance:
- (None)

## People

- (Empty)

Provenance:
- (None)

## From the field

- (Empty)

Provenance:
- Field report: Demo Day (ana@example.com) - https://brief.test/admin/field-reports/fr1
- Ingested: Launch post - https://x.test/launch

## What to do next

- (Empty)

Provenance:
- (None)
`
	assert.Equal(t, want, Export(d, "https://brief.test/"))
}

func TestExportResearchUnderEverySection(t *testing.T) {
	d := fixtureDetail(&domain.ProvenanceLinks{
		Research: []domain.ResearchSource{
			{URL: "https://r.test/a", Title: "Paper A"},
			{URL: "https://r.test/b"},
		},
	})
	out := Export(d, "")

	assert.Equal(t, len(domain.Sections), strings.Count(out, "- Research: Paper A - https://r.test/a\n"))
	assert.Equal(t, len(domain.Sections), strings.Count(out, "- Research: https://r.test/b\n"))
	assert.NotContains(t, out, "- (None)")
}

func TestExportRelativeLinksWithoutBaseURL(t *testing.T) {
	d := fixtureDetail(&domain.ProvenanceLinks{
		FieldReports: []domain.TaggedFieldReport{{
			Section:        domain.SectionPeople,
			FieldReportRef: domain.FieldReportRef{ID: "fr9", EventTitle: "Meetup", ReporterEmail: "bo@example.com"},
		}},
	})
	assert.Contains(t, Export(d, ""), "- Field report: Meetup (bo@example.com) - /admin/field-reports/fr9\n")
}

func TestExportIsPure(t *testing.T) {
	d := fixtureDetail(nil)
	assert.Equal(t, Export(d, "http://a"), Export(d, "http://a"))
	assert.True(t, strings.HasSuffix(Export(d, ""), "- (None)\n"))
}
