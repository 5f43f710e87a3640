// Package portaltest runs an in-process fake of the CoinEd portal backend
// for tests: enough of the wire contract to exercise the client engine,
// with switches to fail individual endpoints.
package portaltest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"

	"coined-client/internal/domain"
)

// MemoryTokens is an in-memory TokenStore for tests.
type MemoryTokens struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryTokens) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokens) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryTokens) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// Portal is the fake backend. Mutate its fields to stage scenarios;
// everything is guarded by one mutex.
type Portal struct {
	Server *httptest.Server

	mu       sync.Mutex
	Token    string
	Password string
	User     domain.Identity
	Students []domain.Student
	Shop     []domain.ShopItem
	Quizzes  []domain.Quiz
	Tx       map[string][]domain.Transaction
	Results  map[string][]domain.ResultRow

	// AwardBonus is added server-side on earn, to prove clients mirror
	// the authoritative balance instead of adding locally.
	AwardBonus int

	FailQuizzes bool
	FailSubmit  bool

	SubmitCalls int
	nextID      int
}

// New starts a fake portal seeded with the given identity and password.
func New(user domain.Identity, password string) *Portal {
	p := &Portal{
		Token:    "test-token",
		Password: password,
		User:     user,
		Tx:       make(map[string][]domain.Transaction),
		Results:  make(map[string][]domain.ResultRow),
	}
	p.Server = httptest.NewServer(p.routes())
	return p
}

func (p *Portal) URL() string { return p.Server.URL }

func (p *Portal) Close() { p.Server.Close() }

func (p *Portal) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", p.login)
	mux.HandleFunc("GET /auth/me", p.authed(p.me))
	mux.HandleFunc("POST /auth/create-student", p.authed(p.createStudent))
	mux.HandleFunc("GET /students", p.authed(p.listStudents))
	mux.HandleFunc("DELETE /students/{id}", p.authed(p.deleteStudent))
	mux.HandleFunc("GET /students/{id}/transactions", p.authed(p.listTx))
	mux.HandleFunc("POST /students/{id}/coins", p.authed(p.adjustCoins))
	mux.HandleFunc("GET /shop", p.authed(p.listShop))
	mux.HandleFunc("POST /shop", p.authed(p.addShopItem))
	mux.HandleFunc("DELETE /shop/{id}", p.authed(p.deleteShopItem))
	mux.HandleFunc("GET /quizzes", p.authed(p.listQuizzes))
	mux.HandleFunc("POST /quizzes", p.authed(p.createQuiz))
	mux.HandleFunc("PUT /quizzes/{id}", p.authed(p.updateQuiz))
	mux.HandleFunc("DELETE /quizzes/{id}", p.authed(p.deleteQuiz))
	mux.HandleFunc("PATCH /quizzes/{id}/toggle", p.authed(p.toggleQuiz))
	mux.HandleFunc("GET /quizzes/{id}/results", p.authed(p.quizResults))
	mux.HandleFunc("POST /quizzes/{id}/submit", p.authed(p.submit))
	return mux
}

func (p *Portal) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		want := "Bearer " + p.Token
		p.mu.Unlock()
		if r.Header.Get("Authorization") != want {
			fail(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}

func (p *Portal) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	p.mu.Lock()
	defer p.mu.Unlock()
	if body.Email != p.User.Email || body.Password != p.Password {
		fail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	ok(w, map[string]any{"token": p.Token, "user": p.User})
}

func (p *Portal) me(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ok(w, p.User)
}

func (p *Portal) createStudent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Class    string `json:"class"`
		ColorTag string `json:"colorTag"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	p.mu.Lock()
	defer p.mu.Unlock()
	student := domain.Student{
		ID:       p.id("stu"),
		Name:     body.Name,
		Class:    body.Class,
		ColorTag: body.ColorTag,
	}
	p.Students = append(p.Students, student)
	ok(w, map[string]any{"user": student})
}

func (p *Portal) listStudents(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ok(w, orEmpty(p.Students))
}

func (p *Portal) deleteStudent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.Students[:0]
	for _, s := range p.Students {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	p.Students = kept
	ok(w, map[string]any{"deleted": id})
}

func (p *Portal) listTx(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ok(w, orEmpty(p.Tx[r.PathValue("id")]))
}

func (p *Portal) adjustCoins(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body struct {
		Amount   int           `json:"amount"`
		Type     domain.TxType `json:"type"`
		Label    string        `json:"label"`
		Category string        `json:"category"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	p.mu.Lock()
	defer p.mu.Unlock()

	apply := func(coins int) (int, bool) {
		if body.Type == domain.TxSpend {
			if coins < body.Amount {
				return coins, false
			}
			return coins - body.Amount, true
		}
		return coins + body.Amount + p.AwardBonus, true
	}

	var updated domain.Student
	found := false
	for i := range p.Students {
		if p.Students[i].ID == id {
			next, okay := apply(p.Students[i].Coins)
			if !okay {
				fail(w, http.StatusBadRequest, "Insufficient coins")
				return
			}
			p.Students[i].Coins = next
			updated = p.Students[i]
			found = true
		}
	}
	if p.User.ID == id {
		next, okay := apply(p.User.Coins)
		if !okay && !found {
			fail(w, http.StatusBadRequest, "Insufficient coins")
			return
		}
		if okay {
			p.User.Coins = next
			if !found {
				updated = domain.Student{ID: p.User.ID, Name: p.User.Name, Coins: next}
				found = true
			}
		}
	}
	if !found {
		fail(w, http.StatusNotFound, "student not found")
		return
	}

	amount := body.Amount
	if body.Type == domain.TxSpend {
		amount = -body.Amount
	}
	p.Tx[id] = append([]domain.Transaction{{
		ID:       p.id("tx"),
		Label:    body.Label,
		Type:     body.Type,
		Amount:   amount,
		Category: body.Category,
		Date:     "2026-01-01",
	}}, p.Tx[id]...)
	ok(w, map[string]any{"student": updated})
}

func (p *Portal) listShop(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ok(w, orEmpty(p.Shop))
}

func (p *Portal) addShopItem(w http.ResponseWriter, r *http.Request) {
	var item domain.ShopItem
	_ = json.NewDecoder(r.Body).Decode(&item)

	p.mu.Lock()
	defer p.mu.Unlock()
	item.ID = p.id("item")
	p.Shop = append(p.Shop, item)
	ok(w, item)
}

func (p *Portal) deleteShopItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.Shop[:0]
	for _, it := range p.Shop {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	p.Shop = kept
	ok(w, map[string]any{"deleted": id})
}

func (p *Portal) listQuizzes(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailQuizzes {
		fail(w, http.StatusInternalServerError, "quiz service down")
		return
	}
	ok(w, orEmpty(p.Quizzes))
}

func (p *Portal) createQuiz(w http.ResponseWriter, r *http.Request) {
	var quiz domain.Quiz
	_ = json.NewDecoder(r.Body).Decode(&quiz)

	p.mu.Lock()
	defer p.mu.Unlock()
	quiz.ID = p.id("quiz")
	p.Quizzes = append(p.Quizzes, quiz)
	ok(w, quiz)
}

func (p *Portal) updateQuiz(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var quiz domain.Quiz
	_ = json.NewDecoder(r.Body).Decode(&quiz)

	p.mu.Lock()
	defer p.mu.Unlock()
	quiz.ID = id
	for i := range p.Quizzes {
		if p.Quizzes[i].ID == id {
			p.Quizzes[i] = quiz
		}
	}
	ok(w, quiz)
}

func (p *Portal) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.Quizzes[:0]
	for _, q := range p.Quizzes {
		if q.ID != id {
			kept = append(kept, q)
		}
	}
	p.Quizzes = kept
	ok(w, map[string]any{"deleted": id})
}

func (p *Portal) toggleQuiz(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.Quizzes {
		if p.Quizzes[i].ID == id {
			p.Quizzes[i].Active = !p.Quizzes[i].Active
			ok(w, p.Quizzes[i])
			return
		}
	}
	fail(w, http.StatusNotFound, "quiz not found")
}

func (p *Portal) quizResults(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ok(w, orEmpty(p.Results[r.PathValue("id")]))
}

func (p *Portal) submit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body struct {
		Answers []struct {
			QuestionIndex int `json:"questionIndex"`
			Selected      int `json:"selected"`
		} `json:"answers"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.SubmitCalls++
	if p.FailSubmit {
		fail(w, http.StatusInternalServerError, "grading unavailable")
		return
	}

	for i := range p.Quizzes {
		q := &p.Quizzes[i]
		if q.ID != id {
			continue
		}
		if q.Attempt != nil {
			fail(w, http.StatusConflict, "quiz already attempted")
			return
		}

		correct := 0
		answers := make([]int, 0, len(body.Answers))
		for _, a := range body.Answers {
			answers = append(answers, a.Selected)
			if a.QuestionIndex < len(q.Questions) && a.Selected == q.Questions[a.QuestionIndex].Correct {
				correct++
			}
		}
		total := len(q.Questions)
		score := 0
		if total > 0 {
			score = int(math.Round(float64(correct) / float64(total) * 100))
		}
		coins := int(math.Round(float64(q.MaxCoins) * float64(score) / 100))

		attempt := &domain.QuizAttempt{
			ID:          p.id("att"),
			QuizID:      q.ID,
			StudentID:   p.User.ID,
			Answers:     answers,
			Score:       score,
			CoinsEarned: coins,
		}
		q.Attempt = attempt
		p.User.Coins += coins
		ok(w, domain.SubmitResult{
			Attempt:     attempt,
			Score:       score,
			CoinsEarned: coins,
			Correct:     correct,
			Total:       total,
		})
		return
	}
	fail(w, http.StatusNotFound, "quiz not found")
}

func (p *Portal) id(prefix string) string {
	p.nextID++
	return fmt.Sprintf("%s-%d", prefix, p.nextID)
}

func ok(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func fail(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// StudentUser is a convenience identity for student-side tests.
func StudentUser(coins int) domain.Identity {
	return domain.Identity{
		ID:    "stu-self",
		Role:  domain.RoleStudent,
		Name:  "Aziza",
		Email: "aziza@school.test",
		Coins: coins,
	}
}

// TeacherUser is a convenience identity for teacher-side tests.
func TeacherUser() domain.Identity {
	return domain.Identity{
		ID:    "tch-1",
		Role:  domain.RoleTeacher,
		Name:  "Mr. Karimov",
		Email: "karimov@school.test",
	}
}
