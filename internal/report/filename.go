package report

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// Filename suggests a download name of the form Relatorio_<name>.pdf that is
// safe inside a Content-Disposition header: accents are folded and any other
// character outside [A-Za-z0-9_.-] becomes "_".
func Filename(subjectName string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, strings.TrimSpace(subjectName))
	if err != nil {
		folded = subjectName
	}
	clean := strings.Trim(unsafeFilename.ReplaceAllString(folded, "_"), "_.")
	if clean == "" {
		clean = "paciente"
	}
	return "Relatorio_" + clean + ".pdf"
}
