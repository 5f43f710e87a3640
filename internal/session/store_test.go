package session_test

import (
	"context"
	"errors"
	"testing"

	"coined-client/internal/api"
	"coined-client/internal/domain"
	"coined-client/internal/portaltest"
	"coined-client/internal/session"
)

func newStore(portal *portaltest.Portal) (*session.Store, *portaltest.MemoryTokens) {
	tokens := &portaltest.MemoryTokens{}
	client := api.NewClient(portal.URL(), tokens, 0)
	return session.NewStore(client, tokens), tokens
}

func login(t *testing.T, store *session.Store, email, password string) {
	t.Helper()
	if _, err := store.Login(context.Background(), email, password); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestRestoreWithPersistedToken(t *testing.T) {
	portal := portaltest.New(portaltest.StudentUser(40), "pw")
	defer portal.Close()

	store, tokens := newStore(portal)
	_ = tokens.Save(context.Background(), "test-token")

	if err := store.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	identity, ok := store.Identity()
	if !ok {
		t.Fatal("expected identity after restore")
	}
	if identity.ID != "stu-self" || identity.Coins != 40 {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestRestoreWithoutTokenStaysLoggedOut(t *testing.T) {
	portal := portaltest.New(portaltest.StudentUser(0), "pw")
	defer portal.Close()

	store, _ := newStore(portal)
	if err := store.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, ok := store.Identity(); ok {
		t.Fatal("expected no identity without a token")
	}
}

func TestRestoreDiscardsInvalidToken(t *testing.T) {
	portal := portaltest.New(portaltest.StudentUser(0), "pw")
	defer portal.Close()

	store, tokens := newStore(portal)
	_ = tokens.Save(context.Background(), "expired-token")

	if err := store.Restore(context.Background()); err != nil {
		t.Fatalf("restore should swallow auth failure, got %v", err)
	}
	if _, ok := store.Identity(); ok {
		t.Fatal("expected logged-out state")
	}
	if token, _ := tokens.Load(context.Background()); token != "" {
		t.Fatalf("expected token discarded, still have %q", token)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	portal := portaltest.New(portaltest.StudentUser(0), "pw")
	defer portal.Close()

	store, _ := newStore(portal)
	_, err := store.Login(context.Background(), "aziza@school.test", "wrong")
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if _, ok := store.Identity(); ok {
		t.Fatal("expected no identity after failed login")
	}
}

func TestStudentCatalogLoadSeedsAttempts(t *testing.T) {
	portal := portaltest.New(portaltest.StudentUser(10), "pw")
	defer portal.Close()
	portal.Quizzes = []domain.Quiz{
		{ID: "quiz-done", Title: "Fractions", Attempt: &domain.QuizAttempt{ID: "att-1", Score: 80, CoinsEarned: 16}},
		{ID: "quiz-open", Title: "Decimals"},
	}
	portal.Shop = []domain.ShopItem{{ID: "item-1", Name: "Sticker", Cost: 5}}

	store, _ := newStore(portal)
	login(t, store, "aziza@school.test", "pw")

	if store.QuizzesLoaded() {
		t.Fatal("quizzes must not report loaded before LoadCatalogs")
	}
	store.LoadCatalogs(context.Background())

	if !store.QuizzesLoaded() {
		t.Fatal("expected quizzes loaded")
	}
	attempts := store.Attempts()
	if len(attempts) != 1 {
		t.Fatalf("expected 1 seeded attempt, got %d", len(attempts))
	}
	if attempts[0].QuizID != "quiz-done" || attempts[0].StudentID != "stu-self" {
		t.Fatalf("attempt projection wrong: %+v", attempts[0])
	}
	if _, done := store.AttemptFor("quiz-open"); done {
		t.Fatal("open quiz must not carry an attempt")
	}
	if _, state := store.ShopItems(); state != session.Loaded {
		t.Fatal("expected shop loaded")
	}
	if _, state := store.Students(); state != session.NotLoaded {
		t.Fatal("students must not load for a student session")
	}
}

func TestCatalogLoadFailureKeepsPriorState(t *testing.T) {
	portal := portaltest.New(portaltest.StudentUser(10), "pw")
	defer portal.Close()
	portal.FailQuizzes = true

	store, _ := newStore(portal)
	login(t, store, "aziza@school.test", "pw")
	store.LoadCatalogs(context.Background())

	if store.QuizzesLoaded() {
		t.Fatal("failed load must not report loaded")
	}
	if _, err := store.QuizByID("anything"); !errors.Is(err, domain.ErrCatalogLoading) {
		t.Fatalf("expected ErrCatalogLoading, got %v", err)
	}

	portal.FailQuizzes = false
	store.LoadCatalogs(context.Background())
	if !store.QuizzesLoaded() {
		t.Fatal("expected loaded after recovery")
	}
	// Empty but loaded is a valid state, distinct from not-yet-loaded.
	if quizzes, _ := store.Quizzes(); len(quizzes) != 0 {
		t.Fatalf("expected empty catalog, got %d", len(quizzes))
	}
	if _, err := store.QuizByID("missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound once loaded, got %v", err)
	}
}

func TestCoinsPrecedenceRosterOverIdentity(t *testing.T) {
	dual := domain.Identity{ID: "dual-1", Role: domain.RoleTeacher, Name: "Dual", Email: "dual@school.test", Coins: 50}
	portal := portaltest.New(dual, "pw")
	defer portal.Close()
	portal.Students = []domain.Student{{ID: "dual-1", Name: "Dual", Coins: 75}}

	store, _ := newStore(portal)
	login(t, store, "dual@school.test", "pw")
	store.LoadCatalogs(context.Background())

	if got := store.Coins("dual-1"); got != 75 {
		t.Fatalf("roster view must win, want 75 got %d", got)
	}
	if got := store.Coins("nobody"); got != 0 {
		t.Fatalf("unknown id must report 0, got %d", got)
	}
}

func TestStudentByID(t *testing.T) {
	portal := portaltest.New(portaltest.TeacherUser(), "pw")
	defer portal.Close()
	portal.Students = []domain.Student{{ID: "stu-1", Name: "Bek", Coins: 10}}

	store, _ := newStore(portal)
	login(t, store, "karimov@school.test", "pw")
	store.LoadCatalogs(context.Background())

	student, err := store.StudentByID("stu-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if student.Name != "Bek" {
		t.Fatalf("wrong student %+v", student)
	}
	if _, err := store.StudentByID("stu-404"); !errors.Is(err, domain.ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestLogoutWipesEverything(t *testing.T) {
	portal := portaltest.New(portaltest.TeacherUser(), "pw")
	defer portal.Close()
	portal.Students = []domain.Student{{ID: "stu-1", Name: "Bek", Coins: 10}}
	portal.Shop = []domain.ShopItem{{ID: "item-1", Name: "Pencil", Cost: 3}}
	portal.Quizzes = []domain.Quiz{{ID: "quiz-1", Title: "Algebra"}}

	store, tokens := newStore(portal)
	login(t, store, "karimov@school.test", "pw")
	store.LoadCatalogs(context.Background())
	if err := store.Award(context.Background(), "stu-1", 5, "", ""); err != nil {
		t.Fatalf("award: %v", err)
	}

	if err := store.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, ok := store.Identity(); ok {
		t.Fatal("identity survived logout")
	}
	if students, state := store.Students(); len(students) != 0 || state != session.NotLoaded {
		t.Fatal("roster survived logout")
	}
	if items, state := store.ShopItems(); len(items) != 0 || state != session.NotLoaded {
		t.Fatal("shop catalog survived logout")
	}
	if store.QuizzesLoaded() {
		t.Fatal("quiz readiness survived logout")
	}
	if got := store.Coins("stu-1"); got != 0 {
		t.Fatalf("stale balance survived logout: %d", got)
	}
	if txs := store.Transactions("stu-1"); len(txs) != 0 {
		t.Fatal("ledger survived logout")
	}
	if len(store.Attempts()) != 0 {
		t.Fatal("attempts survived logout")
	}
	if token, _ := tokens.Load(context.Background()); token != "" {
		t.Fatal("token survived logout")
	}
}
