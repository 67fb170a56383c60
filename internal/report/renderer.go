// Package report renders the clinical summary of a family-history quiz into a
// PDF document.
//
// A render composes, in order: a watermark redrawn on every page, a centered
// bold title, the narrative sentence, the grouped family history and a
// justified eligibility statement whose verb phrase is bold. Text composition
// lives in compose.go and is shared by the engines; each engine builds a fresh
// document per call so concurrent renders share nothing but the read-only
// assets.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"raizes/internal/config"
	"raizes/internal/domain"
)

// Renderer writes exactly one finished document to sink and closes it.
//
// A failure before output (ErrAssetMissing, ErrDocument) leaves the sink
// untouched. ErrStreamWrite means the sink rejected a write or the close;
// bytes may already have been written, and the caller must discard them.
type Renderer interface {
	Render(req domain.ReportRequest, sink io.WriteCloser) error
	Engine() string
}

// Options controls page geometry and decoration.
type Options struct {
	PageSize         string
	Margin           float64
	WatermarkWidth   float64
	WatermarkHeight  float64
	WatermarkOpacity float64
	Compress         bool

	ChromePath      string
	ChromeNoSandbox bool
	Timeout         time.Duration
}

// DefaultOptions mirrors the defaults of the configuration file.
func DefaultOptions() Options {
	return Options{
		PageSize:         "A4",
		Margin:           72,
		WatermarkWidth:   300,
		WatermarkHeight:  300,
		WatermarkOpacity: 0.3,
		Compress:         true,
		Timeout:          30 * time.Second,
	}
}

type pageSize struct{ Wd, Ht float64 }

// page sizes in points
var pageSizes = map[string]pageSize{
	"A3":     {841.89, 1190.55},
	"A4":     {595.28, 841.89},
	"A5":     {420.94, 595.28},
	"LETTER": {612, 792},
	"LEGAL":  {612, 1008},
}

// New builds the renderer for engine.
func New(engine string, assets *AssetStore, opts Options) (Renderer, error) {
	if _, ok := pageSizes[strings.ToUpper(opts.PageSize)]; !ok {
		return nil, fmt.Errorf("unsupported page size %q", opts.PageSize)
	}
	switch engine {
	case config.EngineFPDF, "":
		return NewFPDF(assets, opts), nil
	case config.EngineChrome:
		return NewChrome(assets, opts), nil
	}
	return nil, fmt.Errorf("unknown report engine %q", engine)
}

// FromConfig builds the configured renderer and its asset store.
func FromConfig(cfg config.ReportConfig) (Renderer, error) {
	dir := ResolveAssetsDir(cfg.AssetsDir, cfg.Watermark)
	assets := NewAssetStore(dir, cfg.Watermark, cfg.FontRegular, cfg.FontBold)

	opts := DefaultOptions()
	if cfg.PageSize != "" {
		opts.PageSize = cfg.PageSize
	}
	if cfg.WatermarkWidth > 0 {
		opts.WatermarkWidth = cfg.WatermarkWidth
	}
	if cfg.WatermarkHeight > 0 {
		opts.WatermarkHeight = cfg.WatermarkHeight
	}
	if cfg.WatermarkOpacity > 0 {
		opts.WatermarkOpacity = cfg.WatermarkOpacity
	}
	if cfg.Compress != nil {
		opts.Compress = *cfg.Compress
	}
	if cfg.TimeoutSecs > 0 {
		opts.Timeout = time.Duration(cfg.TimeoutSecs) * time.Second
	}
	opts.ChromePath = cfg.ChromePath
	opts.ChromeNoSandbox = cfg.ChromeNoSandbox

	return New(cfg.Engine, assets, opts)
}

var errSinkClosed = errors.New("sink already closed")

// BufferSink is an in-memory sink. Writes after Close fail.
type BufferSink struct {
	buf    bytes.Buffer
	closed bool
}

func (s *BufferSink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, errSinkClosed
	}
	return s.buf.Write(p)
}

func (s *BufferSink) Close() error {
	s.closed = true
	return nil
}

func (s *BufferSink) Bytes() []byte { return s.buf.Bytes() }
func (s *BufferSink) Len() int      { return s.buf.Len() }
func (s *BufferSink) Closed() bool  { return s.closed }

// finish hands the built document to sink and closes it.
func finish(sink io.WriteCloser, write func(io.Writer) error) error {
	if err := write(sink); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStreamWrite, err)
	}
	if err := sink.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", domain.ErrStreamWrite, err)
	}
	return nil
}
