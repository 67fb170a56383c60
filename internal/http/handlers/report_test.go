package handlers

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raizes/internal/domain"
	"raizes/internal/infra/cache"
	"raizes/internal/infra/logging"
	"raizes/internal/report"
)

const mariaJSON = `{
	"nome": "Maria José",
	"idade": 54,
	"historicoPessoal": "câncer de mama aos 48",
	"familiares": [{"grau": "mãe", "tipoCancer": "câncer de mama", "idadeDiagnostico": 50}],
	"precisaPesquisaOncogenetica": true
}`

func fpdfRenderer(t *testing.T) report.Renderer {
	t.Helper()
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "logo_raizes.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 8, 8))))
	require.NoError(t, f.Close())

	r, err := report.New("fpdf", report.NewAssetStore(dir, "logo_raizes.png", "", ""), report.DefaultOptions())
	require.NoError(t, err)
	return r
}

// countingRenderer counts calls and optionally fails.
type countingRenderer struct {
	calls atomic.Int32
	err   error
	last  atomic.Pointer[domain.ReportRequest]
}

func (r *countingRenderer) Engine() string { return "fake" }

func (r *countingRenderer) Render(req domain.ReportRequest, sink io.WriteCloser) error {
	r.calls.Add(1)
	r.last.Store(&req)
	if r.err != nil {
		return r.err
	}
	if _, err := sink.Write([]byte("%PDF-fake")); err != nil {
		return err
	}
	return sink.Close()
}

func reportApp(svc *ReportService) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/generatepdf", svc.Generate)
	return app
}

func postReport(t *testing.T, app *fiber.App, body string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/generatepdf", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, 10_000)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestGenerate_ServesPDF(t *testing.T) {
	app := reportApp(NewReportService(fpdfRenderer(t), nil))

	resp, body := postReport(t, app, mariaJSON)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, "attachment; filename=Relatorio_Maria_Jose.pdf", resp.Header.Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))
}

func TestGenerate_KeepsPatientDataOutOfLogs(t *testing.T) {
	var logs bytes.Buffer
	logging.SetLoggerForTest(zerolog.New(&logs).Level(zerolog.DebugLevel))
	t.Cleanup(func() { logging.SetLoggerForTest(zerolog.New(os.Stdout).With().Timestamp().Logger()) })

	app := reportApp(NewReportService(fpdfRenderer(t), nil))
	resp, _ := postReport(t, app, mariaJSON)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Contains(t, logs.String(), "Report generated")
	for _, leaked := range []string{"Maria", "Maria_Jose", `"idade"`, "câncer"} {
		assert.NotContains(t, logs.String(), leaked)
	}
}

func TestGenerate_PassesDecodedRequest(t *testing.T) {
	fake := &countingRenderer{}
	app := reportApp(NewReportService(fake, nil))

	resp, _ := postReport(t, app, mariaJSON)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := fake.last.Load()
	require.NotNil(t, got)
	assert.Equal(t, domain.ReportRequest{
		SubjectName:           "Maria José",
		SubjectAge:            54,
		PersonalHistory:       "câncer de mama aos 48",
		Relatives:             []domain.Relative{{Relation: "mãe", CancerType: "câncer de mama", AgeAtDiagnosis: 50}},
		MeetsReferralCriteria: true,
	}, *got)
}

func TestGenerate_Validation(t *testing.T) {
	tests := map[string]string{
		"missing nome":       `{"idade":54,"historicoPessoal":"x","familiares":[]}`,
		"zero idade":         `{"nome":"Maria","idade":0,"historicoPessoal":"x","familiares":[]}`,
		"empty history":      `{"nome":"Maria","idade":54,"historicoPessoal":"","familiares":[]}`,
		"missing familiares": `{"nome":"Maria","idade":54,"historicoPessoal":"x"}`,
		"wrong idade type":   `{"nome":"Maria","idade":"54","historicoPessoal":"x","familiares":[]}`,
		"not json":           `nome=Maria`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			fake := &countingRenderer{}
			resp, b := postReport(t, reportApp(NewReportService(fake, nil)), body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.JSONEq(t, `{"error":"Dados incompletos."}`, string(b))
			assert.Zero(t, fake.calls.Load())
		})
	}
}

func TestGenerate_EmptyRelativesIsValid(t *testing.T) {
	fake := &countingRenderer{}
	resp, _ := postReport(t, reportApp(NewReportService(fake, nil)),
		`{"nome":"Maria","idade":54,"historicoPessoal":"x","familiares":[]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, fake.last.Load().Relatives)
}

func TestGenerate_RenderFailure(t *testing.T) {
	fake := &countingRenderer{err: errors.Join(domain.ErrAssetMissing, os.ErrNotExist)}
	resp, body := postReport(t, reportApp(NewReportService(fake, nil)), mariaJSON)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Erro ao gerar PDF"}`, string(body))
	assert.NotEqual(t, "application/pdf", resp.Header.Get("Content-Type"))
}

func TestGenerate_UsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	fake := &countingRenderer{}
	app := reportApp(NewReportService(fake, cache.New(rdb, time.Minute)))

	for i := 0; i < 3; i++ {
		resp, body := postReport(t, app, mariaJSON)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "%PDF-fake", string(body))
		assert.Equal(t, "attachment; filename=Relatorio_Maria_Jose.pdf", resp.Header.Get("Content-Disposition"))
	}
	assert.Equal(t, int32(1), fake.calls.Load())
	assert.Len(t, mr.Keys(), 1)
}
