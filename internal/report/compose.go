package report

import (
	"fmt"
	"strings"

	"raizes/internal/domain"
)

const (
	Title = "RELATÓRIO"

	noHistory         = "nenhuma"
	noRelatives       = "Não há familiares com histórico de câncer relatados."
	relativesHeader   = "Familiares com histórico de câncer:"
	closingLead       = "Baseado nessas informações, o paciente "
	meetsPhrase       = "atende aos critérios"
	meetsTail         = " internacionalmente reconhecidos, indicando que ele se beneficiaria de um encaminhamento para investigação em um serviço especializado em oncogenética."
	doesNotMeetPhrase = "não atende aos critérios"
	doesNotMeetTail   = " internacionalmente reconhecidos para encaminhamento a um serviço especializado em oncogenética."
)

// Run is a fragment of a paragraph in one weight. Consecutive runs flow into
// the same paragraph without a line break.
type Run struct {
	Text string
	Bold bool
}

// Group is a maximal consecutive run of relatives sharing a relation.
type Group struct {
	Relation  string
	Relatives []domain.Relative
}

// Narrative is the sentence introducing the subject.
func Narrative(req domain.ReportRequest) string {
	history := strings.TrimSpace(req.PersonalHistory)
	if history == "" {
		history = noHistory
	}
	return fmt.Sprintf("Sr(a). %s possui história pessoal de %s, atualmente com %d anos.",
		req.SubjectName, history, req.SubjectAge)
}

// GroupRelatives splits relatives into consecutive runs of equal Relation in a
// single pass. A relation that reappears later starts a new group.
func GroupRelatives(relatives []domain.Relative) []Group {
	var groups []Group
	var cur *Group
	for _, r := range relatives {
		if cur != nil && cur.Relation == r.Relation {
			cur.Relatives = append(cur.Relatives, r)
			continue
		}
		if cur != nil {
			groups = append(groups, *cur)
		}
		cur = &Group{Relation: r.Relation, Relatives: []domain.Relative{r}}
	}
	// flush the trailing group
	if cur != nil {
		groups = append(groups, *cur)
	}
	return groups
}

// Line formats a group as "- relation: type aos N anos, ...".
func (g Group) Line() string {
	items := make([]string, 0, len(g.Relatives))
	for _, r := range g.Relatives {
		items = append(items, fmt.Sprintf("%s aos %d anos", r.CancerType, r.AgeAtDiagnosis))
	}
	return fmt.Sprintf("- %s: %s.", g.Relation, strings.Join(items, ", "))
}

// FamilySection returns the family-history paragraphs in order: either the
// single no-relatives sentence, or the header followed by one line per group.
func FamilySection(relatives []domain.Relative) []string {
	if len(relatives) == 0 {
		return []string{noRelatives}
	}
	groups := GroupRelatives(relatives)
	lines := make([]string, 0, len(groups)+1)
	lines = append(lines, relativesHeader)
	for _, g := range groups {
		lines = append(lines, g.Line())
	}
	return lines
}

// ClosingRuns is the eligibility statement with its verb phrase in bold.
func ClosingRuns(meetsCriteria bool) []Run {
	if meetsCriteria {
		return []Run{{Text: closingLead}, {Text: meetsPhrase, Bold: true}, {Text: meetsTail}}
	}
	return []Run{{Text: closingLead}, {Text: doesNotMeetPhrase, Bold: true}, {Text: doesNotMeetTail}}
}

// PlainText joins runs as they read.
func PlainText(runs []Run) string {
	var sb strings.Builder
	for _, r := range runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// SplitWords breaks runs into words for line filling. Each word is a list of
// styled pieces; pieces of adjacent runs that touch without whitespace stay in
// the same word.
func SplitWords(runs []Run) [][]Run {
	var words [][]Run
	glue := false
	for _, r := range runs {
		if r.Text == "" {
			continue
		}
		fields := strings.Fields(r.Text)
		leading := strings.TrimLeft(r.Text, " \t\n") != r.Text
		for i, f := range fields {
			piece := Run{Text: f, Bold: r.Bold}
			if i == 0 && glue && !leading && len(words) > 0 {
				last := len(words) - 1
				words[last] = append(words[last], piece)
				continue
			}
			words = append(words, []Run{piece})
		}
		glue = len(fields) > 0 && strings.TrimRight(r.Text, " \t\n") == r.Text
	}
	return words
}

// WatermarkOrigin centers a w x h decoration on a pageW x pageH page.
func WatermarkOrigin(pageW, pageH, w, h float64) (x, y float64) {
	return (pageW - w) / 2, (pageH - h) / 2
}
