package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"coined-client/internal/domain"
)

// TokenStore persists the single opaque credential token between runs.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Client talks to the portal backend. Every call attaches the bearer token
// when the store holds one; a non-2xx response becomes a RequestError
// carrying the server message, and 401 maps to AuthError.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
}

func NewClient(baseURL string, tokens TokenStore, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

type errorBody struct {
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token, err := c.tokens.Load(ctx); err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		var eb errorBody
		_ = json.NewDecoder(res.Body).Decode(&eb)
		if res.StatusCode == http.StatusUnauthorized {
			return &domain.AuthError{Message: eb.Message}
		}
		return &domain.RequestError{Status: res.StatusCode, Message: eb.Message}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// LoginResponse is the credential exchange payload.
type LoginResponse struct {
	Token string          `json:"token"`
	User  domain.Identity `json:"user"`
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) Me(ctx context.Context) (domain.Identity, error) {
	var out domain.Identity
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out)
	return out, err
}

// CreateStudentRequest carries a teacher's new-student form.
type CreateStudentRequest struct {
	Name     string `json:"name"`
	Class    string `json:"class"`
	Email    string `json:"email"`
	Password string `json:"password"`
	ColorTag string `json:"colorTag,omitempty"`
}

func (c *Client) CreateStudent(ctx context.Context, req CreateStudentRequest) (domain.Student, error) {
	var out struct {
		User domain.Student `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/create-student", req, &out)
	return out.User, err
}

func (c *Client) ListStudents(ctx context.Context) ([]domain.Student, error) {
	var out []domain.Student
	err := c.do(ctx, http.MethodGet, "/students", nil, &out)
	return out, err
}

func (c *Client) DeleteStudent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/students/"+id, nil, nil)
}

func (c *Client) ListTransactions(ctx context.Context, studentID string) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := c.do(ctx, http.MethodGet, "/students/"+studentID+"/transactions", nil, &out)
	return out, err
}

// CoinAdjustment is the wire form of an award or deduction.
type CoinAdjustment struct {
	Amount   int           `json:"amount"`
	Type     domain.TxType `json:"type"`
	Label    string        `json:"label"`
	Category string        `json:"category"`
}

// AdjustCoins applies a server-side coin mutation and returns the updated
// student record; Student.Coins is the authoritative post-mutation balance.
func (c *Client) AdjustCoins(ctx context.Context, studentID string, adj CoinAdjustment) (domain.Student, error) {
	var out struct {
		Student domain.Student `json:"student"`
	}
	err := c.do(ctx, http.MethodPost, "/students/"+studentID+"/coins", adj, &out)
	return out.Student, err
}

func (c *Client) ListShop(ctx context.Context) ([]domain.ShopItem, error) {
	var out []domain.ShopItem
	err := c.do(ctx, http.MethodGet, "/shop", nil, &out)
	return out, err
}

func (c *Client) AddShopItem(ctx context.Context, item domain.ShopItem) (domain.ShopItem, error) {
	var out domain.ShopItem
	err := c.do(ctx, http.MethodPost, "/shop", item, &out)
	return out, err
}

func (c *Client) DeleteShopItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/shop/"+id, nil, nil)
}

func (c *Client) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	var out []domain.Quiz
	err := c.do(ctx, http.MethodGet, "/quizzes", nil, &out)
	return out, err
}

func (c *Client) GetQuiz(ctx context.Context, id string) (domain.Quiz, error) {
	var out domain.Quiz
	err := c.do(ctx, http.MethodGet, "/quizzes/"+id, nil, &out)
	return out, err
}

func (c *Client) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	var out domain.Quiz
	err := c.do(ctx, http.MethodPost, "/quizzes", quiz, &out)
	return out, err
}

func (c *Client) UpdateQuiz(ctx context.Context, id string, quiz domain.Quiz) (domain.Quiz, error) {
	var out domain.Quiz
	err := c.do(ctx, http.MethodPut, "/quizzes/"+id, quiz, &out)
	return out, err
}

func (c *Client) DeleteQuiz(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/quizzes/"+id, nil, nil)
}

func (c *Client) ToggleQuizActive(ctx context.Context, id string) (domain.Quiz, error) {
	var out domain.Quiz
	err := c.do(ctx, http.MethodPatch, "/quizzes/"+id+"/toggle", nil, &out)
	return out, err
}

func (c *Client) QuizResults(ctx context.Context, id string) ([]domain.ResultRow, error) {
	var out []domain.ResultRow
	err := c.do(ctx, http.MethodGet, "/quizzes/"+id+"/results", nil, &out)
	return out, err
}

// AnswerPayload is one submitted answer: the question's position and the
// option index the student confirmed.
type AnswerPayload struct {
	QuestionIndex int `json:"questionIndex"`
	Selected      int `json:"selected"`
}

// SubmitAttempt sends the one permitted attempt for a quiz. A payload
// shorter than the question count is a valid partial attempt.
func (c *Client) SubmitAttempt(ctx context.Context, quizID string, answers []AnswerPayload) (domain.SubmitResult, error) {
	var out domain.SubmitResult
	err := c.do(ctx, http.MethodPost, "/quizzes/"+quizID+"/submit", map[string]any{
		"answers": answers,
	}, &out)
	return out, err
}
