package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"raizes/internal/domain"
	"raizes/internal/infra/logging"
	"raizes/internal/upstream"
)

const createdMessage = "CRIADO COM SUCESSO"

var errAPI = fiber.NewError(fiber.StatusInternalServerError, "Erro ao fazer requisição para a API")

// ProxyService forwards user and quiz operations to the upstream API.
type ProxyService struct {
	API *upstream.Client
}

func NewProxyService(api *upstream.Client) *ProxyService {
	return &ProxyService{API: api}
}

// Register handles POST /api/register.
func (s *ProxyService) Register(c *fiber.Ctx) error {
	rid := requestID(c)
	body, err := parseBody(c)
	if err != nil {
		return err
	}
	logging.Info("Starting user registration", "request_id", rid, "email", body.String("email"))

	if field, missing := body.FirstMissing(domain.RegisterRequired...); missing {
		logging.Warn("Required field missing", "request_id", rid, "field", field)
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Campo %s é obrigatório.", field))
	}

	resp, err := s.API.SaveUser(domain.NewRegisterPayload(body))
	if err != nil {
		logging.Error("User registration failed", "request_id", rid, "error", err)
		return errAPI
	}
	if resp.Status == fiber.StatusNoContent {
		logging.Info("User registered", "request_id", rid, "status", resp.Status)
		return c.SendStatus(fiber.StatusNoContent)
	}
	logging.Info("Upstream answered registration", "request_id", rid, "status", resp.Status)
	if !resp.IsJSON() {
		logging.Error("Upstream returned a non-JSON body", "request_id", rid, "status", resp.Status)
		return c.Status(resp.Status).JSON(fiber.Map{"message": "Erro ao processar a resposta da API"})
	}
	return sendJSON(c, resp.Status, resp.Body)
}

// Login handles GET /api/login.
func (s *ProxyService) Login(c *fiber.Ctx) error {
	rid := requestID(c)
	email, senha := c.Query("email"), c.Query("senha")
	logging.Info("Login attempt", "request_id", rid, "email", email)

	if email == "" || senha == "" {
		logging.Warn("Login without credentials", "request_id", rid)
		return fiber.NewError(fiber.StatusBadRequest, "Email e senha são obrigatórios.")
	}

	resp, err := s.API.Login(email, senha)
	if err != nil {
		logging.Error("Login request failed", "request_id", rid, "email", email, "error", err)
		return errAPI
	}
	if !resp.IsJSON() {
		logging.Error("Upstream returned a non-JSON login answer", "request_id", rid, "status", resp.Status)
		return errAPI
	}

	var result domain.LoginResult
	if resp.Status == fiber.StatusOK && json.Unmarshal(resp.Body, &result) == nil && result.Result {
		logging.Info("Login succeeded", "request_id", rid, "email", email, "user_id", string(result.IDUser))
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Login realizado com sucesso",
			"idUser":  orNull(result.IDUser),
			"nome":    orNull(result.Nome),
		})
	}

	logging.Warn("Login failed", "request_id", rid, "email", email)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": "Email ou senha incorretos",
	})
}

// CreateQuiz handles POST /api/quiz.
func (s *ProxyService) CreateQuiz(c *fiber.Ctx) error {
	rid := requestID(c)
	body, err := parseBody(c)
	if err != nil {
		return err
	}
	logging.Info("Creating quiz", "request_id", rid, "id_user", body.String("idUser"), "id_quiz", body.String("idQuiz"))

	if field, missing := body.FirstMissing(domain.QuizRequired...); missing {
		logging.Warn("Required quiz field missing", "request_id", rid, "field", field)
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Campo %s é obrigatório.", field))
	}

	resp, err := s.API.CreateQuiz(domain.NewQuizPayload(body))
	if err != nil {
		logging.Error("Quiz creation failed", "request_id", rid, "error", err)
		return errAPI
	}
	if resp.Status != fiber.StatusOK && resp.Status != fiber.StatusCreated {
		logging.Error("Upstream rejected quiz", "request_id", rid, "status", resp.Status, "error", string(resp.Body))
		return c.Status(resp.Status).JSON(fiber.Map{"error": string(resp.Body)})
	}
	if !resp.IsJSON() {
		logging.Error("Upstream returned a non-JSON quiz answer", "request_id", rid, "status", resp.Status)
		return errAPI
	}

	var answer struct {
		Message any `json:"message"`
	}
	_ = json.Unmarshal(resp.Body, &answer)
	logging.Info("Quiz created", "request_id", rid, "status", resp.Status, "upstream_message", answer.Message)
	if answer.Message == createdMessage {
		return c.JSON(fiber.Map{"message": createdMessage})
	}
	return sendJSON(c, fiber.StatusOK, resp.Body)
}

// UpdateQuiz handles PUT /api/quiz.
func (s *ProxyService) UpdateQuiz(c *fiber.Ctx) error {
	rid := requestID(c)
	body, err := parseBody(c)
	if err != nil {
		return err
	}
	logging.Info("Updating quiz", "request_id", rid, "id_user", body.String("idUser"), "id_quiz", body.String("idQuiz"))

	if !body.Truthy("idQuiz") {
		logging.Warn("Quiz update without idQuiz", "request_id", rid)
		return fiber.NewError(fiber.StatusBadRequest, "Campo idQuiz é obrigatório para atualização.")
	}

	resp, err := s.API.UpdateQuiz(domain.NewQuizPayload(body))
	if err != nil {
		logging.Error("Quiz update failed", "request_id", rid, "error", err)
		return errAPI
	}
	if !resp.OK() {
		logging.Error("Upstream rejected quiz update", "request_id", rid, "status", resp.Status, "error", string(resp.Body))
		return c.Status(resp.Status).JSON(fiber.Map{"error": string(resp.Body)})
	}
	logging.Info("Quiz updated", "request_id", rid, "status", resp.Status)
	if !resp.IsJSON() {
		return c.SendStatus(resp.Status)
	}
	return sendJSON(c, resp.Status, resp.Body)
}

// QuizAvailable handles GET /api/quiz and answers a bare boolean.
func (s *ProxyService) QuizAvailable(c *fiber.Ctx) error {
	resp, err := s.API.QuizAvailable()
	if err != nil {
		logging.Error("Quiz availability check failed", "error", err)
		return errAPI
	}
	if resp.Status == fiber.StatusOK {
		return c.JSON(true)
	}
	return c.Status(resp.Status).JSON(false)
}

// Patients handles GET /api/quiz/getPacientes/:idUser.
func (s *ProxyService) Patients(c *fiber.Ctx) error {
	rid := requestID(c)
	idUser := c.Params("idUser")
	logging.Info("Fetching patients", "request_id", rid, "id_user", idUser)

	resp, err := s.API.Patients(idUser)
	if err != nil {
		logging.Error("Patient lookup failed", "request_id", rid, "id_user", idUser, "error", err)
		return errAPI
	}
	if resp.Status != fiber.StatusOK {
		logging.Warn("Patient lookup rejected", "request_id", rid, "id_user", idUser, "status", resp.Status)
		return c.Status(resp.Status).JSON(fiber.Map{
			"error": "Erro ao buscar pacientes: " + http.StatusText(resp.Status),
		})
	}
	if !resp.IsJSON() {
		return errAPI
	}

	var patients []json.RawMessage
	if json.Unmarshal(resp.Body, &patients) == nil {
		logging.Info("Patients found", "request_id", rid, "id_user", idUser, "count", len(patients))
	}
	return sendJSON(c, fiber.StatusOK, resp.Body)
}

// Quiz handles GET /api/quiz/:idQuiz.
func (s *ProxyService) Quiz(c *fiber.Ctx) error {
	rid := requestID(c)
	idQuiz := c.Params("idQuiz")
	logging.Info("Fetching quiz", "request_id", rid, "id_quiz", idQuiz)

	resp, err := s.API.Quiz(idQuiz)
	if err != nil {
		logging.Error("Quiz lookup failed", "request_id", rid, "id_quiz", idQuiz, "error", err)
		return errAPI
	}
	if resp.Status != fiber.StatusOK {
		logging.Warn("Quiz not found", "request_id", rid, "id_quiz", idQuiz, "status", resp.Status)
		return c.Status(resp.Status).JSON(fiber.Map{"error": "Quiz não encontrado"})
	}
	if !resp.IsJSON() {
		return errAPI
	}
	return sendJSON(c, fiber.StatusOK, resp.Body)
}

// QuizResult handles GET /api/quiz/resultado/:idQuiz/:idUser.
func (s *ProxyService) QuizResult(c *fiber.Ctx) error {
	rid := requestID(c)
	idQuiz, idUser := c.Params("idQuiz"), c.Params("idUser")
	logging.Info("Fetching quiz result", "request_id", rid, "id_quiz", idQuiz, "id_user", idUser)

	resp, err := s.API.QuizResult(idQuiz, idUser)
	if err != nil {
		logging.Error("Quiz result lookup failed", "request_id", rid, "id_quiz", idQuiz, "id_user", idUser, "error", err)
		return errAPI
	}
	if resp.Status != fiber.StatusOK {
		logging.Warn("Quiz result not found", "request_id", rid, "id_quiz", idQuiz, "id_user", idUser, "status", resp.Status)
		return c.Status(resp.Status).JSON(fiber.Map{
			"error": "Erro ao buscar resultado do quiz: " + http.StatusText(resp.Status),
		})
	}
	if !resp.IsJSON() {
		return errAPI
	}
	return sendJSON(c, fiber.StatusOK, resp.Body)
}

func requestID(c *fiber.Ctx) string {
	return c.GetRespHeader(fiber.HeaderXRequestID)
}

func parseBody(c *fiber.Ctx) (domain.Body, error) {
	body, err := domain.ParseBody(c.Body())
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "JSON inválido.")
	}
	return body, nil
}

// sendJSON relays an upstream JSON body unchanged.
func sendJSON(c *fiber.Ctx, status int, body []byte) error {
	c.Status(status)
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

func orNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
