// Package upstream talks to the REST API that stores users and quizzes.
package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"raizes/internal/domain"
)

// Response is the raw answer of the upstream API.
type Response struct {
	Status int
	Body   []byte
}

// OK reports a 2xx status.
func (r Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// IsJSON reports whether the body parses as JSON.
func (r Response) IsJSON() bool { return len(r.Body) > 0 && json.Valid(r.Body) }

// Client issues one JSON request per call. There are no retries.
type Client struct {
	BaseURL string
	Timeout time.Duration
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{BaseURL: baseURL, Timeout: timeout}
}

func (c *Client) SaveUser(p domain.RegisterPayload) (Response, error) {
	return c.send(fiber.MethodPost, "/user/save-user", p)
}

func (c *Client) Login(email, senha string) (Response, error) {
	q := url.Values{}
	q.Set("email", email)
	q.Set("senha", senha)
	return c.send(fiber.MethodGet, "/user/login?"+q.Encode(), nil)
}

func (c *Client) CreateQuiz(p domain.QuizPayload) (Response, error) {
	return c.send(fiber.MethodPost, "/quiz", p)
}

func (c *Client) UpdateQuiz(p domain.QuizPayload) (Response, error) {
	return c.send(fiber.MethodPut, "/quiz", p)
}

// QuizAvailable probes GET /quiz.
func (c *Client) QuizAvailable() (Response, error) {
	return c.send(fiber.MethodGet, "/quiz", nil)
}

func (c *Client) Patients(idUser string) (Response, error) {
	return c.send(fiber.MethodGet, "/quiz/getPacientes/"+url.PathEscape(idUser), nil)
}

func (c *Client) Quiz(idQuiz string) (Response, error) {
	return c.send(fiber.MethodGet, "/quiz/getQuiz/"+url.PathEscape(idQuiz), nil)
}

func (c *Client) QuizResult(idQuiz, idUser string) (Response, error) {
	return c.send(fiber.MethodGet, "/quiz/resultado/"+url.PathEscape(idQuiz)+"/"+url.PathEscape(idUser), nil)
}

func (c *Client) send(method, path string, payload any) (Response, error) {
	a := fiber.AcquireAgent()
	req := a.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.BaseURL + path)
	a.ContentType(fiber.MIMEApplicationJSON)
	if payload != nil {
		a.JSON(payload)
	}
	if c.Timeout > 0 {
		a.Timeout(c.Timeout)
	}

	// the query may carry credentials
	route, _, _ := strings.Cut(path, "?")

	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return Response{}, fmt.Errorf("%w: %s %s: %w", domain.ErrUpstream, method, route, err)
	}

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return Response{}, fmt.Errorf("%w: %s %s: %w", domain.ErrUpstream, method, route, errors.Join(errs...))
	}
	return Response{Status: code, Body: body}, nil
}
