package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"raizes/internal/config"
	"raizes/internal/domain"
	"raizes/internal/infra/logging"
)

const (
	watermarkImage = "watermark"
	embeddedFamily = "ReportBody"
	coreFamily     = "Helvetica"

	titleSize = 18.0
	bodySize  = 12.0
)

// Fixed document dates keep the output byte-for-byte reproducible.
var documentDate = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// FPDFRenderer draws the report with go-pdf/fpdf.
type FPDFRenderer struct {
	assets *AssetStore
	opts   Options
}

func NewFPDF(assets *AssetStore, opts Options) *FPDFRenderer {
	return &FPDFRenderer{assets: assets, opts: opts}
}

func (r *FPDFRenderer) Engine() string { return config.EngineFPDF }

func (r *FPDFRenderer) Render(req domain.ReportRequest, sink io.WriteCloser) error {
	assets, err := r.assets.Load()
	if err != nil {
		return err
	}
	pdf, err := r.compose(req, assets)
	if err != nil {
		return err
	}
	return finish(sink, pdf.Output)
}

// layout carries the per-render font state.
type layout struct {
	pdf        *fpdf.Fpdf
	family     string
	tr         func(string) string
	lineHeight float64

	fontSet bool
	bold    bool
	size    float64
}

func (r *FPDFRenderer) compose(req domain.ReportRequest, assets *Assets) (*fpdf.Fpdf, error) {
	size := pageSizes[strings.ToUpper(r.opts.PageSize)]
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: size.Wd, Ht: size.Ht},
	})
	pdf.SetCompression(r.opts.Compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(documentDate)
	pdf.SetModificationDate(documentDate)
	pdf.SetTitle(Title, true)
	pdf.SetMargins(r.opts.Margin, r.opts.Margin, r.opts.Margin)
	pdf.SetAutoPageBreak(true, r.opts.Margin)

	p := &layout{
		pdf:        pdf,
		family:     coreFamily,
		tr:         pdf.UnicodeTranslatorFromDescriptor(""),
		lineHeight: bodySize * 1.25,
	}
	if assets.HasFonts() {
		pdf.AddUTF8FontFromBytes(embeddedFamily, "", assets.FontRegular)
		pdf.AddUTF8FontFromBytes(embeddedFamily, "B", assets.FontBold)
		if pdf.Err() {
			return nil, fmt.Errorf("%w: fonts: %w", domain.ErrAssetMissing, pdf.Error())
		}
		p.family = embeddedFamily
		p.tr = func(s string) string { return s }
	} else if n := unencodable(reportText(req)...); n > 0 {
		logging.Warn("Report text has characters the core font cannot show",
			"dropped_runes", n,
			"hint", "set report.font_regular and report.font_bold to a Unicode TTF pair")
	}

	imgOpts := fpdf.ImageOptions{ImageType: assets.WatermarkType}
	pdf.RegisterImageOptionsReader(watermarkImage, imgOpts, bytes.NewReader(assets.Watermark))
	if pdf.Err() {
		return nil, fmt.Errorf("%w: watermark: %w", domain.ErrAssetMissing, pdf.Error())
	}

	// Runs on every AddPage, including automatic page breaks.
	pageW, pageH := pdf.GetPageSize()
	wmW, wmH := r.opts.WatermarkWidth, r.opts.WatermarkHeight
	x, y := WatermarkOrigin(pageW, pageH, wmW, wmH)
	pdf.SetHeaderFuncMode(func() {
		pdf.SetAlpha(r.opts.WatermarkOpacity, "Normal")
		pdf.ImageOptions(watermarkImage, x, y, wmW, wmH, false, imgOpts, 0, "")
		pdf.SetAlpha(1, "Normal")
	}, true)

	pdf.AddPage()
	p.title(Title)
	p.paragraph(Narrative(req))
	for _, line := range FamilySection(req.Relatives) {
		p.paragraph(line)
	}
	pdf.Ln(p.lineHeight / 2)
	p.justified(ClosingRuns(req.MeetsReferralCriteria))

	pdf.Close()
	if pdf.Err() {
		return nil, fmt.Errorf("%w: %w", domain.ErrDocument, pdf.Error())
	}
	return pdf, nil
}

// font switches weight or size only when it differs from the current one.
func (p *layout) font(bold bool, size float64) {
	if p.fontSet && p.bold == bold && p.size == size {
		return
	}
	p.fontSet, p.bold, p.size = true, bold, size
	style := ""
	if bold {
		style = "B"
	}
	p.pdf.SetFont(p.family, style, size)
}

func (p *layout) title(text string) {
	p.font(true, titleSize)
	p.pdf.CellFormat(0, titleSize*1.25, p.tr(text), "", 1, "C", false, 0, "")
	p.pdf.Ln(p.lineHeight)
}

func (p *layout) paragraph(text string) {
	p.font(false, bodySize)
	p.pdf.MultiCell(0, p.lineHeight, p.tr(text), "", "L", false)
	p.pdf.Ln(p.lineHeight / 2)
}

type measuredWord struct {
	pieces []Run
	widths []float64
	width  float64
}

// justified lays out mixed-weight runs as one paragraph aligned on both
// edges. The last line keeps natural spacing.
func (p *layout) justified(runs []Run) {
	pdf := p.pdf
	margin := pdf.GetCellMargin()
	pdf.SetCellMargin(0)
	defer pdf.SetCellMargin(margin)

	words := make([]measuredWord, 0, len(runs))
	for _, w := range SplitWords(runs) {
		m := measuredWord{pieces: make([]Run, len(w)), widths: make([]float64, len(w))}
		for j, piece := range w {
			piece.Text = p.tr(piece.Text)
			m.pieces[j] = piece
		}
		words = append(words, m)
	}

	// Measure one weight at a time.
	var space float64
	for _, bold := range []bool{false, true} {
		p.font(bold, bodySize)
		if !bold {
			space = pdf.GetStringWidth(" ")
		}
		for i := range words {
			m := &words[i]
			for j, piece := range m.pieces {
				if piece.Bold == bold {
					m.widths[j] = pdf.GetStringWidth(piece.Text)
					m.width += m.widths[j]
				}
			}
		}
	}

	left, _, right, _ := pdf.GetMargins()
	pageW, _ := pdf.GetPageSize()
	avail := pageW - left - right

	for start := 0; start < len(words); {
		end, used := start+1, words[start].width
		for end < len(words) && used+space+words[end].width <= avail {
			used += space + words[end].width
			end++
		}

		gap := space
		if n := end - start; end < len(words) && n > 1 {
			gap = space + (avail-used)/float64(n-1)
		}

		pdf.SetX(left)
		for i := start; i < end; i++ {
			for j, piece := range words[i].pieces {
				p.font(piece.Bold, bodySize)
				pdf.CellFormat(words[i].widths[j], p.lineHeight, piece.Text, "", 0, "L", false, 0, "")
			}
			if i < end-1 {
				pdf.SetX(pdf.GetX() + gap)
			}
		}
		pdf.Ln(p.lineHeight)
		start = end
	}
	p.font(false, bodySize)
}

// reportText lists the request-derived lines drawn in the body font.
func reportText(req domain.ReportRequest) []string {
	return append([]string{Narrative(req)}, FamilySection(req.Relatives)...)
}

// unencodable counts runes outside Windows-1252, which the core fonts
// replace with a placeholder.
func unencodable(texts ...string) int {
	n := 0
	for _, text := range texts {
		for _, r := range text {
			if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
				n++
			}
		}
	}
	return n
}
