package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Body is a decoded JSON object whose values stay raw so they can be forwarded
// to the upstream API untouched.
type Body map[string]json.RawMessage

// ParseBody decodes a JSON object. An empty payload yields an empty Body.
func ParseBody(data []byte) (Body, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Body{}, nil
	}
	var b Body
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	if b == nil {
		return nil, errors.New("body must be a JSON object")
	}
	return b, nil
}

// Truthy follows JavaScript truthiness: absent, null, false, 0 and "" are false.
func (b Body) Truthy(key string) bool {
	raw, ok := b[key]
	if !ok {
		return false
	}
	s := strings.TrimSpace(string(raw))
	switch s {
	case "", "null", "false", `""`:
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f != 0
	}
	return true
}

// FirstMissing returns the first key whose value is not truthy.
func (b Body) FirstMissing(keys ...string) (string, bool) {
	for _, k := range keys {
		if !b.Truthy(k) {
			return k, true
		}
	}
	return "", false
}

// Or returns the raw value of key when truthy, else def.
func (b Body) Or(key string, def json.RawMessage) json.RawMessage {
	if b.Truthy(key) {
		return b[key]
	}
	return def
}

// String returns the value of key as text: JSON strings are unquoted, other
// values are returned verbatim.
func (b Body) String(key string) string {
	raw, ok := b[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// RegisterPayload is the user record sent to /user/save-user.
type RegisterPayload struct {
	UsuarioID           json.RawMessage `json:"usuarioId"`
	Nome                json.RawMessage `json:"nome"`
	Email               json.RawMessage `json:"email"`
	Senha               json.RawMessage `json:"senha"`
	Cep                 json.RawMessage `json:"cep,omitempty"`
	Pais                json.RawMessage `json:"pais,omitempty"`
	Cidade              json.RawMessage `json:"cidade,omitempty"`
	Rua                 json.RawMessage `json:"rua,omitempty"`
	NumeroRua           json.RawMessage `json:"numeroRua,omitempty"`
	Telefone            json.RawMessage `json:"telefone,omitempty"`
	Celular             json.RawMessage `json:"celular,omitempty"`
	ProfissionalDaSaude bool            `json:"profissionalDaSaude"`
	Graduacao           json.RawMessage `json:"graduacao"`
	ReceberEmail        bool            `json:"receberEmail"`
}

// RegisterRequired lists the fields a registration must carry.
var RegisterRequired = []string{"nome", "email", "senha"}

// NewRegisterPayload normalises a registration body: flags become booleans,
// usuarioId defaults to 0 and graduacao to "".
func NewRegisterPayload(b Body) RegisterPayload {
	return RegisterPayload{
		UsuarioID:           b.Or("usuarioId", json.RawMessage("0")),
		Nome:                b["nome"],
		Email:               b["email"],
		Senha:               b["senha"],
		Cep:                 b["cep"],
		Pais:                b["pais"],
		Cidade:              b["cidade"],
		Rua:                 b["rua"],
		NumeroRua:           b["numeroRua"],
		Telefone:            b["telefone"],
		Celular:             b["celular"],
		ProfissionalDaSaude: b.Truthy("profissionalDaSaude"),
		Graduacao:           b.Or("graduacao", json.RawMessage(`""`)),
		ReceberEmail:        b.Truthy("receberEmail"),
	}
}

// QuizPayload is the family-history questionnaire stored upstream.
type QuizPayload struct {
	IDUser            json.RawMessage `json:"idUser,omitempty"`
	IDQuiz            json.RawMessage `json:"idQuiz,omitempty"`
	UsuariPrincipal   json.RawMessage `json:"usuariPrincipal,omitempty"`
	Mae               json.RawMessage `json:"mae,omitempty"`
	Pai               json.RawMessage `json:"pai,omitempty"`
	FilhosList        json.RawMessage `json:"filhosList,omitempty"`
	NetosList         json.RawMessage `json:"netosList,omitempty"`
	IrmaosList        json.RawMessage `json:"irmaosList,omitempty"`
	SobrinhosList     json.RawMessage `json:"sobrinhosList,omitempty"`
	TiosList          json.RawMessage `json:"tiosList,omitempty"`
	AvosList          json.RawMessage `json:"avosList,omitempty"`
	PrimosList        json.RawMessage `json:"primosList,omitempty"`
	OutroFamiliarList json.RawMessage `json:"outroFamiliarList,omitempty"`
}

// QuizRequired lists the fields a new quiz must carry.
var QuizRequired = []string{"idUser", "idQuiz", "usuariPrincipal"}

// NewQuizPayload keeps only the questionnaire fields of b.
func NewQuizPayload(b Body) QuizPayload {
	return QuizPayload{
		IDUser:            b["idUser"],
		IDQuiz:            b["idQuiz"],
		UsuariPrincipal:   b["usuariPrincipal"],
		Mae:               b["mae"],
		Pai:               b["pai"],
		FilhosList:        b["filhosList"],
		NetosList:         b["netosList"],
		IrmaosList:        b["irmaosList"],
		SobrinhosList:     b["sobrinhosList"],
		TiosList:          b["tiosList"],
		AvosList:          b["avosList"],
		PrimosList:        b["primosList"],
		OutroFamiliarList: b["outroFamiliarList"],
	}
}

// LoginResult is the upstream answer to a login attempt.
type LoginResult struct {
	Result bool            `json:"result"`
	IDUser json.RawMessage `json:"idUser"`
	Nome   json.RawMessage `json:"nome"`
}
