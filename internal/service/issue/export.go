package issue

import (
	"strings"

	"github.com/ignite/brief/internal/domain"
)

// Export renders a fully composed issue as markdown. It has no side effects;
// the same text is shown to reviewers and delivered to subscribers.
//
// Field report links are absolute when baseURL is set and root-relative
// otherwise.
func Export(d *domain.IssueDetail, baseURL string) string {
	base := strings.TrimRight(baseURL, "/")

	var parts []string
	parts = append(parts,
		"# "+d.Title,
		"",
		"Issue date: "+d.IssueDate,
		"Status: "+string(d.Status),
		"",
	)

	for _, sec := range domain.Sections {
		parts = append(parts, "## "+sec.Label(), "")

		content := strings.TrimSpace(d.Blocks[sec].ContentMD)
		if content == "" {
			content = "- (Empty)"
		}
		parts = append(parts, content, "", "Provenance:")

		prov := d.Provenance[sec]
		if prov.IsEmpty() {
			parts = append(parts, "- (None)")
		}
		for _, fr := range prov.FieldReports {
			parts = append(parts, "- Field report: "+fr.EventTitle+" ("+fr.ReporterEmail+") - "+base+"/admin/field-reports/"+fr.ID)
		}
		for _, it := range prov.IngestedItems {
			parts = append(parts, "- Ingested: "+labelled(it.Title, it.URL))
		}
		for _, rs := range prov.ResearchSources {
			parts = append(parts, "- Research: "+labelled(rs.Title, rs.URL))
		}
		parts = append(parts, "")
	}

	return strings.TrimSpace(strings.Join(parts, "\n")) + "\n"
}

func labelled(title, url string) string {
	if title == "" {
		return url
	}
	return title + " - " + url
}

// assemble groups stored provenance links by section. Research sources
// belong to the issue as a whole and are listed under every section.
func assemble(is *domain.Issue, blocks []domain.Block, links *domain.ProvenanceLinks) *domain.IssueDetail {
	d := &domain.IssueDetail{
		Issue:      *is,
		Blocks:     make(map[domain.Section]domain.Block, len(blocks)),
		Provenance: make(map[domain.Section]domain.Provenance, len(domain.Sections)),
	}
	for _, b := range blocks {
		d.Blocks[b.Section] = b
	}

	for _, sec := range domain.Sections {
		p := domain.Provenance{
			FieldReports:    []domain.FieldReportRef{},
			IngestedItems:   []domain.IngestedItemRef{},
			ResearchSources: []domain.ResearchSource{},
		}
		if links != nil {
			for _, fr := range links.FieldReports {
				if fr.Section == sec {
					p.FieldReports = append(p.FieldReports, fr.FieldReportRef)
				}
			}
			for _, it := range links.IngestedItems {
				if it.Section == sec {
					p.IngestedItems = append(p.IngestedItems, it.IngestedItemRef)
				}
			}
			p.ResearchSources = append(p.ResearchSources, links.Research...)
		}
		d.Provenance[sec] = p
	}
	return d
}
