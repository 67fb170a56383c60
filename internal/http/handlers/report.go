package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"raizes/internal/domain"
	"raizes/internal/infra/cache"
	"raizes/internal/infra/logging"
	"raizes/internal/report"
)

// reportRequired mirrors the fields the report form always sends.
var reportRequired = []string{"nome", "idade", "historicoPessoal", "familiares"}

// ReportService renders the quiz summary PDF.
type ReportService struct {
	Renderer report.Renderer
	Cache    *cache.ReportCache
}

// NewReportService wires a renderer and an optional cache (nil disables it).
func NewReportService(r report.Renderer, rc *cache.ReportCache) *ReportService {
	return &ReportService{Renderer: r, Cache: rc}
}

// Generate handles POST /generatepdf.
func (s *ReportService) Generate(c *fiber.Ctx) error {
	rid := requestID(c)
	body, err := domain.ParseBody(c.Body())
	if err != nil {
		logging.Warn("Malformed report payload", "request_id", rid, "error", err)
		return fiber.NewError(fiber.StatusBadRequest, "Dados incompletos.")
	}
	logging.Info("Generating report", "request_id", rid)

	if field, missing := body.FirstMissing(reportRequired...); missing {
		logging.Warn("Incomplete report payload", "request_id", rid, "field", field)
		return fiber.NewError(fiber.StatusBadRequest, "Dados incompletos.")
	}

	var req domain.ReportRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		logging.Warn("Report payload has wrong types", "request_id", rid, "error", err)
		return fiber.NewError(fiber.StatusBadRequest, "Dados incompletos.")
	}

	filename := report.Filename(req.SubjectName)
	key := cache.Key(s.Renderer.Engine(), req)
	if data, ok := s.Cache.Get(c.UserContext(), key); ok {
		return sendPDF(c, filename, data)
	}

	sink := &report.BufferSink{}
	if err := s.Renderer.Render(req, sink); err != nil {
		logging.Error("Report generation failed",
			"request_id", rid,
			"engine", s.Renderer.Engine(),
			"asset_missing", errors.Is(err, domain.ErrAssetMissing),
			"error", err,
		)
		return fiber.NewError(fiber.StatusInternalServerError, "Erro ao gerar PDF")
	}

	s.Cache.Set(c.UserContext(), key, sink.Bytes())
	logging.Info("Report generated", "request_id", rid, "bytes", sink.Len())
	return sendPDF(c, filename, sink.Bytes())
}

func sendPDF(c *fiber.Ctx, filename string, data []byte) error {
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+filename)
	return c.Send(data)
}
