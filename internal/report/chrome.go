package report

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"raizes/internal/config"
	"raizes/internal/domain"
)

//go:embed templates/report.html
var reportHTML string

var reportTemplate = template.Must(template.New("report").Parse(reportHTML))

// ChromeRenderer prints an HTML rendition of the report with headless Chrome.
// Chrome repeats position:fixed elements on every printed page, which carries
// the watermark across page breaks.
type ChromeRenderer struct {
	assets *AssetStore
	opts   Options
}

func NewChrome(assets *AssetStore, opts Options) *ChromeRenderer {
	return &ChromeRenderer{assets: assets, opts: opts}
}

func (r *ChromeRenderer) Engine() string { return config.EngineChrome }

func (r *ChromeRenderer) Render(req domain.ReportRequest, sink io.WriteCloser) error {
	assets, err := r.assets.Load()
	if err != nil {
		return err
	}
	html, err := r.html(req, assets)
	if err != nil {
		return fmt.Errorf("%w: template: %w", domain.ErrDocument, err)
	}
	pdfBuf, err := r.print(html)
	if err != nil {
		return fmt.Errorf("%w: chrome: %w", domain.ErrDocument, err)
	}
	return finish(sink, func(w io.Writer) error {
		_, err := w.Write(pdfBuf)
		return err
	})
}

type htmlReport struct {
	Title          string
	FontFaces      template.CSS
	FontFamily     template.CSS
	WatermarkStyle template.CSS
	WatermarkSrc   template.URL
	Narrative      string
	Family         []string
	Closing        []Run
}

func (r *ChromeRenderer) html(req domain.ReportRequest, assets *Assets) (string, error) {
	size := pageSizes[strings.ToUpper(r.opts.PageSize)]
	x, y := WatermarkOrigin(size.Wd, size.Ht, r.opts.WatermarkWidth, r.opts.WatermarkHeight)

	mime := "image/png"
	if assets.WatermarkType == "JPG" {
		mime = "image/jpeg"
	}

	data := htmlReport{
		Title:      Title,
		FontFamily: template.CSS("Helvetica, Arial, sans-serif"),
		// fixed positions are relative to the printable area, inside the margins
		WatermarkStyle: template.CSS(fmt.Sprintf("left: %.2fpt; top: %.2fpt; width: %.2fpt; height: %.2fpt; opacity: %.2f;",
			x-r.opts.Margin, y-r.opts.Margin, r.opts.WatermarkWidth, r.opts.WatermarkHeight, r.opts.WatermarkOpacity)),
		WatermarkSrc: template.URL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(assets.Watermark)),
		Narrative:    Narrative(req),
		Family:       FamilySection(req.Relatives),
		Closing:      ClosingRuns(req.MeetsReferralCriteria),
	}
	if assets.HasFonts() {
		data.FontFaces = template.CSS(fontFace(400, assets.FontRegular) + "\n" + fontFace(700, assets.FontBold))
		data.FontFamily = template.CSS(`"` + embeddedFamily + `", Helvetica, Arial, sans-serif`)
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func fontFace(weight int, ttf []byte) string {
	return fmt.Sprintf(`@font-face { font-family: "%s"; font-weight: %d; src: url(data:font/ttf;base64,%s) format("truetype"); }`,
		embeddedFamily, weight, base64.StdEncoding.EncodeToString(ttf))
}

// print starts a dedicated browser for this render and prints html to PDF.
func (r *ChromeRenderer) print(html string) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "raizes-chrome-*")
	if err != nil {
		return nil, fmt.Errorf("cannot create temp profile dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	allocatorOptions := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(tmpDir),
		// Force software rendering and avoid Vulkan/ANGLE issues in minimal container environments.
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-gpu-compositing", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.opts.ChromePath != "" {
		allocatorOptions = append(allocatorOptions, chromedp.ExecPath(r.opts.ChromePath))
	}
	if r.opts.ChromeNoSandbox {
		allocatorOptions = append(allocatorOptions, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions...)
	defer allocCancel()
	chromeCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	timeout := r.opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	chromeCtx, cancelTimeout := context.WithTimeout(chromeCtx, timeout)
	defer cancelTimeout()

	size := pageSizes[strings.ToUpper(r.opts.PageSize)]
	margin := r.opts.Margin / 72

	var pdfBuf []byte
	err = chromedp.Run(chromeCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frame, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frame.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfBuf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(size.Wd / 72).
				WithPaperHeight(size.Ht / 72).
				WithMarginTop(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				WithMarginRight(margin).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuf, nil
}
