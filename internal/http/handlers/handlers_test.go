package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raizes/internal/upstream"
)

type upstreamCall struct {
	method string
	path   string
	query  string
	body   map[string]any
}

// fakeAPI records the last call and answers with a fixed status and body.
type fakeAPI struct {
	mu     sync.Mutex
	call   upstreamCall
	status int
	reply  string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.call = upstreamCall{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
	if b, _ := io.ReadAll(r.Body); len(b) > 0 {
		_ = json.Unmarshal(b, &f.call.body)
	}
	w.WriteHeader(f.status)
	_, _ = io.WriteString(w, f.reply)
}

func (f *fakeAPI) last() upstreamCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.call
}

func (f *fakeAPI) answer(status int, reply string) {
	f.mu.Lock()
	f.status, f.reply = status, reply
	f.mu.Unlock()
}

func newProxyApp(t *testing.T) (*fiber.App, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{status: http.StatusOK, reply: "{}"}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc := NewProxyService(upstream.New(srv.URL+"/v1", time.Second))
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/api/register", svc.Register)
	app.Get("/api/login", svc.Login)
	app.Post("/api/quiz", svc.CreateQuiz)
	app.Put("/api/quiz", svc.UpdateQuiz)
	app.Get("/api/quiz", svc.QuizAvailable)
	app.Get("/api/quiz/getPacientes/:idUser", svc.Patients)
	app.Get("/api/quiz/resultado/:idQuiz/:idUser", svc.QuizResult)
	app.Get("/api/quiz/:idQuiz", svc.Quiz)
	return app, api
}

func do(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestRegister(t *testing.T) {
	app, api := newProxyApp(t)

	resp, body := do(t, app, http.MethodPost, "/api/register", `{"nome":"Ana","senha":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Campo email é obrigatório."}`, body)

	api.answer(http.StatusNoContent, "")
	resp, _ = do(t, app, http.MethodPost, "/api/register",
		`{"nome":"Ana","email":"ana@exemplo.com","senha":"x","profissionalDaSaude":1,"extra":"drop"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "/v1/user/save-user", api.last().path)
	assert.Equal(t, http.MethodPost, api.last().method)
	assert.Equal(t, true, api.last().body["profissionalDaSaude"])
	assert.Equal(t, false, api.last().body["receberEmail"])
	assert.Equal(t, float64(0), api.last().body["usuarioId"])
	assert.Equal(t, "", api.last().body["graduacao"])
	assert.NotContains(t, api.last().body, "extra")

	api.answer(http.StatusConflict, `{"message":"email já cadastrado"}`)
	resp, body = do(t, app, http.MethodPost, "/api/register", `{"nome":"Ana","email":"ana@exemplo.com","senha":"x"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.JSONEq(t, `{"message":"email já cadastrado"}`, body)

	api.answer(http.StatusBadGateway, "<html>proxy error</html>")
	resp, body = do(t, app, http.MethodPost, "/api/register", `{"nome":"Ana","email":"ana@exemplo.com","senha":"x"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Erro ao processar a resposta da API"}`, body)
}

func TestRegister_MalformedJSON(t *testing.T) {
	app, _ := newProxyApp(t)
	resp, body := do(t, app, http.MethodPost, "/api/register", `{"nome":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, `"error"`)
}

func TestLogin(t *testing.T) {
	app, api := newProxyApp(t)

	resp, body := do(t, app, http.MethodGet, "/api/login?email=ana@exemplo.com", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Email e senha são obrigatórios."}`, body)

	api.answer(http.StatusOK, `{"result":true,"idUser":42,"nome":"Ana"}`)
	resp, body = do(t, app, http.MethodGet, "/api/login?email=ana@exemplo.com&senha=x", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true,"message":"Login realizado com sucesso","idUser":42,"nome":"Ana"}`, body)
	assert.Equal(t, "/v1/user/login", api.last().path)
	assert.Contains(t, api.last().query, "senha=x")

	api.answer(http.StatusOK, `{"result":false}`)
	resp, body = do(t, app, http.MethodGet, "/api/login?email=ana@exemplo.com&senha=y", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"success":false,"message":"Email ou senha incorretos"}`, body)

	api.answer(http.StatusInternalServerError, "boom")
	resp, body = do(t, app, http.MethodGet, "/api/login?email=ana@exemplo.com&senha=y", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Erro ao fazer requisição para a API"}`, body)
}

func TestCreateQuiz(t *testing.T) {
	app, api := newProxyApp(t)

	resp, body := do(t, app, http.MethodPost, "/api/quiz", `{"idUser":1,"idQuiz":2}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Campo usuariPrincipal é obrigatório."}`, body)

	quiz := `{"idUser":1,"idQuiz":2,"usuariPrincipal":{"nome":"Ana"},"mae":{"teveCancer":true}}`

	api.answer(http.StatusCreated, `{"message":"CRIADO COM SUCESSO","id":9}`)
	resp, body = do(t, app, http.MethodPost, "/api/quiz", quiz)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"CRIADO COM SUCESSO"}`, body)
	assert.Equal(t, map[string]any{"teveCancer": true}, api.last().body["mae"])
	assert.NotContains(t, api.last().body, "pai")

	api.answer(http.StatusOK, `{"message":"ATUALIZADO"}`)
	resp, body = do(t, app, http.MethodPost, "/api/quiz", quiz)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"ATUALIZADO"}`, body)

	api.answer(http.StatusUnprocessableEntity, "usuario inexistente")
	resp, body = do(t, app, http.MethodPost, "/api/quiz", quiz)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.JSONEq(t, `{"error":"usuario inexistente"}`, body)
}

func TestUpdateQuiz(t *testing.T) {
	app, api := newProxyApp(t)

	resp, body := do(t, app, http.MethodPut, "/api/quiz", `{"idUser":1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Campo idQuiz é obrigatório para atualização."}`, body)

	api.answer(http.StatusOK, `{"idQuiz":2}`)
	resp, body = do(t, app, http.MethodPut, "/api/quiz", `{"idQuiz":2}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"idQuiz":2}`, body)
	assert.Equal(t, http.MethodPut, api.last().method)

	api.answer(http.StatusAccepted, "")
	resp, _ = do(t, app, http.MethodPut, "/api/quiz", `{"idQuiz":2}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	api.answer(http.StatusNotFound, "quiz inexistente")
	resp, body = do(t, app, http.MethodPut, "/api/quiz", `{"idQuiz":2}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"quiz inexistente"}`, body)
}

func TestQuizAvailable(t *testing.T) {
	app, api := newProxyApp(t)

	resp, body := do(t, app, http.MethodGet, "/api/quiz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", body)

	api.answer(http.StatusNotFound, "")
	resp, body = do(t, app, http.MethodGet, "/api/quiz", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "false", body)
}

func TestLookups(t *testing.T) {
	app, api := newProxyApp(t)

	api.answer(http.StatusOK, `[{"id":1},{"id":2}]`)
	resp, body := do(t, app, http.MethodGet, "/api/quiz/getPacientes/7", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"id":1},{"id":2}]`, body)
	assert.Equal(t, "/v1/quiz/getPacientes/7", api.last().path)

	api.answer(http.StatusOK, `{"idQuiz":3}`)
	_, body = do(t, app, http.MethodGet, "/api/quiz/3", "")
	assert.JSONEq(t, `{"idQuiz":3}`, body)
	assert.Equal(t, "/v1/quiz/getQuiz/3", api.last().path)

	api.answer(http.StatusOK, `{"precisaPesquisaOncogenetica":true}`)
	_, body = do(t, app, http.MethodGet, "/api/quiz/resultado/3/7", "")
	assert.JSONEq(t, `{"precisaPesquisaOncogenetica":true}`, body)
	assert.Equal(t, "/v1/quiz/resultado/3/7", api.last().path)

	api.answer(http.StatusNotFound, "")
	resp, body = do(t, app, http.MethodGet, "/api/quiz/getPacientes/7", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Erro ao buscar pacientes: Not Found"}`, body)

	resp, body = do(t, app, http.MethodGet, "/api/quiz/3", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Quiz não encontrado"}`, body)

	resp, body = do(t, app, http.MethodGet, "/api/quiz/resultado/3/7", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Erro ao buscar resultado do quiz: Not Found"}`, body)
}

func TestUpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	svc := NewProxyService(upstream.New(base, 500*time.Millisecond))
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/api/quiz", svc.QuizAvailable)

	resp, body := do(t, app, http.MethodGet, "/api/quiz", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Erro ao fazer requisição para a API"}`, body)
}

func TestHealthAndWelcome(t *testing.T) {
	app := fiber.New()
	app.Get("/health", NewHealthService("production").Health)
	app.Get("/teste", Welcome)

	resp, body := do(t, app, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "OK", health["status"])
	assert.Equal(t, "production", health["environment"])
	assert.Contains(t, health, "uptime")
	_, err := time.Parse(time.RFC3339Nano, health["timestamp"].(string))
	assert.NoError(t, err)

	_, body = do(t, app, http.MethodGet, "/teste", "")
	assert.Equal(t, "Bem-vindo ao servidor de API", body)
}

func TestErrorHandler_UnknownErrorIs500(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/boom", func(c *fiber.Ctx) error { return io.ErrUnexpectedEOF })

	resp, body := do(t, app, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Erro interno do servidor"}`, body)
}
