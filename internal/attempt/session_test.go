package attempt_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"coined-client/internal/api"
	"coined-client/internal/attempt"
	"coined-client/internal/domain"
	"coined-client/internal/portaltest"
	"coined-client/internal/session"
)

// mathQuiz has four questions whose correct options are 0, 1, 2, 3.
func mathQuiz() domain.Quiz {
	questions := make([]domain.Question, 4)
	for i := range questions {
		questions[i] = domain.Question{
			Text:    fmt.Sprintf("Question %d", i+1),
			Options: []string{"a", "b", "c", "d"},
			Correct: i,
		}
	}
	return domain.Quiz{
		ID:               "quiz-1",
		Title:            "Arithmetic",
		Subject:          "Math",
		MaxCoins:         20,
		TimeLimitMinutes: 1,
		Active:           true,
		Questions:        questions,
	}
}

func studentSession(t *testing.T, coins int) (*portaltest.Portal, *session.Store) {
	t.Helper()
	portal := portaltest.New(portaltest.StudentUser(coins), "pw")
	t.Cleanup(portal.Close)
	portal.Quizzes = []domain.Quiz{mathQuiz()}

	tokens := &portaltest.MemoryTokens{}
	store := session.NewStore(api.NewClient(portal.URL(), tokens, 0), tokens)
	if _, err := store.Login(context.Background(), "aziza@school.test", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	return portal, store
}

func loadCatalogs(t *testing.T, store *session.Store) {
	t.Helper()
	store.LoadCatalogs(context.Background())
	if !store.QuizzesLoaded() {
		t.Fatal("catalog load failed")
	}
}

func TestBeginGates(t *testing.T) {
	_, store := studentSession(t, 0)

	if _, err := attempt.Begin(store, "quiz-1"); !errors.Is(err, domain.ErrCatalogLoading) {
		t.Fatalf("expected ErrCatalogLoading before the catalog arrives, got %v", err)
	}

	loadCatalogs(t, store)
	if _, err := attempt.Begin(store, "no-such-quiz"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
	sess, err := attempt.Begin(store, "quiz-1", attempt.WithTickInterval(0))
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer sess.Close()
	if sess.Phase() != attempt.PhaseIntro {
		t.Fatalf("expected intro phase, got %v", sess.Phase())
	}
	if sess.Remaining() != 60 {
		t.Fatalf("one-minute quiz must start at 60s, got %d", sess.Remaining())
	}
}

func TestBeginRefusesCompletedQuiz(t *testing.T) {
	portal, store := studentSession(t, 0)
	portal.Quizzes[0].Attempt = &domain.QuizAttempt{ID: "att-1", Score: 100, CoinsEarned: 20}
	loadCatalogs(t, store)

	if _, err := attempt.Begin(store, "quiz-1"); !errors.Is(err, domain.ErrQuizAttempted) {
		t.Fatalf("expected ErrQuizAttempted, got %v", err)
	}
}

func TestFullRunServerGraded(t *testing.T) {
	portal, store := studentSession(t, 5)
	loadCatalogs(t, store)

	sess, err := attempt.Begin(store, "quiz-1", attempt.WithTickInterval(0))
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer sess.Close()

	sess.Start(context.Background())
	if sess.Phase() != attempt.PhaseQuiz {
		t.Fatalf("expected quiz phase, got %v", sess.Phase())
	}

	// Two right (questions 1 and 2), two wrong.
	for _, choice := range []int{0, 1, 0, 0} {
		sess.Select(choice)
		if _, ok := sess.Confirm(); !ok {
			t.Fatal("confirm refused a pending choice")
		}
		sess.Next()
	}

	if sess.Phase() != attempt.PhaseResult {
		t.Fatalf("expected result phase, got %v", sess.Phase())
	}
	res, ok := sess.Result()
	if !ok {
		t.Fatal("expected a result")
	}
	want := attempt.Result{Score: 50, Correct: 2, Total: 4, CoinsEarned: 10}
	if res != want {
		t.Fatalf("result %+v, want %+v", res, want)
	}

	identity, _ := store.Identity()
	if identity.Coins != 15 {
		t.Fatalf("coins must grow by the earned amount, want 15 got %d", identity.Coins)
	}
	if _, done := store.AttemptFor("quiz-1"); !done {
		t.Fatal("catalog must carry the resolved attempt")
	}
	if _, err := attempt.Begin(store, "quiz-1"); !errors.Is(err, domain.ErrQuizAttempted) {
		t.Fatalf("second attempt must be refused, got %v", err)
	}
	if portal.SubmitCalls != 1 {
		t.Fatalf("expected exactly 1 submission, got %d", portal.SubmitCalls)
	}
}

func TestCountdownForceSubmitsPartialAttempt(t *testing.T) {
	portal, store := studentSession(t, 0)
	loadCatalogs(t, store)

	sess, err := attempt.Begin(store, "quiz-1", attempt.WithTickInterval(0))
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer sess.Close()
	sess.Start(context.Background())

	// Answer only the first question, then let the clock run out.
	sess.Select(0)
	sess.Confirm()
	sess.Next()

	ticks := 0
	for sess.Tick() {
		ticks++
	}
	if ticks != 59 {
		t.Fatalf("expected the 60th tick to expire, counted %d live ticks", ticks)
	}
	if sess.Remaining() != 0 {
		t.Fatalf("remaining must hit 0, got %d", sess.Remaining())
	}

	res, ok := sess.Result()
	if !ok {
		t.Fatal("expiry must resolve the session")
	}
	want := attempt.Result{Score: 25, Correct: 1, Total: 4, CoinsEarned: 5}
	if res != want {
		t.Fatalf("partial result %+v, want %+v", res, want)
	}
	if portal.SubmitCalls != 1 {
		t.Fatalf("expected exactly 1 submission, got %d", portal.SubmitCalls)
	}

	// Further ticks on a resolved session do nothing.
	if sess.Tick() {
		t.Fatal("tick must report dead after resolution")
	}
}

func TestSubmitGuard(t *testing.T) {
	portal, store := studentSession(t, 0)
	loadCatalogs(t, store)

	sess, err := attempt.Begin(store, "quiz-1", attempt.WithTickInterval(0))
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer sess.Close()
	sess.Start(context.Background())

	sess.Select(0)
	sess.Confirm()
	sess.Submit()
	sess.Submit()

	if portal.SubmitCalls != 1 {
		t.Fatalf("duplicate Submit must be a no-op, got %d calls", portal.SubmitCalls)
	}
}

func TestFallbackGradingOnSubmitFailure(t *testing.T) {
	portal, store := studentSession(t, 5)
	portal.FailSubmit = true
	loadCatalogs(t, store)

	sess, err := attempt.Begin(store, "quiz-1", attempt.WithTickInterval(0))
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer sess.Close()
	sess.Start(context.Background())

	for _, choice := range []int{0, 1, 0, 0} {
		sess.Select(choice)
		sess.Confirm()
		sess.Next()
	}

	res, ok := sess.Result()
	if !ok {
		t.Fatal("expected a degraded result")
	}
	want := attempt.Result{Score: 50, Correct: 2, Total: 4, CoinsEarned: 10, Degraded: true}
	if res != want {
		t.Fatalf("fallback result %+v, want %+v", res, want)
	}

	// The server never recorded anything, so nothing may be mirrored.
	identity, _ := store.Identity()
	if identity.Coins != 5 {
		t.Fatalf("degraded result must not touch the balance, got %d", identity.Coins)
	}
	if _, done := store.AttemptFor("quiz-1"); done {
		t.Fatal("degraded result must not lock the quiz")
	}
	if portal.SubmitCalls != 1 {
		t.Fatalf("expected exactly 1 submission attempt, got %d", portal.SubmitCalls)
	}
}

func TestSelectAndConfirmRules(t *testing.T) {
	_, store := studentSession(t, 0)
	loadCatalogs(t, store)

	sess, err := attempt.Begin(store, "quiz-1", attempt.WithTickInterval(0))
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer sess.Close()

	// Nothing moves before Start.
	sess.Select(0)
	if _, ok := sess.Confirm(); ok {
		t.Fatal("confirm must refuse during intro")
	}
	if sess.Tick() {
		t.Fatal("tick must not run during intro")
	}

	sess.Start(context.Background())

	// No pending choice yet.
	if _, ok := sess.Confirm(); ok {
		t.Fatal("confirm must refuse without a selection")
	}

	sess.Select(7) // out of range, ignored
	sess.Select(2)
	sess.Select(3) // re-selection before confirm is free
	correct, ok := sess.Confirm()
	if !ok {
		t.Fatal("confirm refused a valid choice")
	}
	if correct {
		t.Fatal("option 3 is wrong for question 1")
	}

	// Confirm is one-way and the question is now read-only.
	if _, ok := sess.Confirm(); ok {
		t.Fatal("second confirm must refuse")
	}
	sess.Select(0)
	if got := sess.Answers(); len(got) != 1 || got[0] != 3 {
		t.Fatalf("answers %v, want [3]", got)
	}
}

func TestCloseStopsTicker(t *testing.T) {
	_, store := studentSession(t, 0)
	loadCatalogs(t, store)

	sess, err := attempt.Begin(store, "quiz-1", attempt.WithTickInterval(200*time.Millisecond))
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	sess.Start(context.Background())
	sess.Close()

	time.Sleep(450 * time.Millisecond)
	if got := sess.Remaining(); got != 60 {
		t.Fatalf("ticker survived Close, remaining %d", got)
	}
}

func TestAutoAdvance(t *testing.T) {
	_, store := studentSession(t, 0)
	loadCatalogs(t, store)

	sess, err := attempt.Begin(store, "quiz-1",
		attempt.WithTickInterval(0), attempt.WithAutoAdvance(10*time.Millisecond))
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer sess.Close()
	sess.Start(context.Background())

	sess.Select(0)
	sess.Confirm()

	deadline := time.Now().Add(time.Second)
	for {
		if _, idx := sess.Question(); idx == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("auto-advance never moved to the next question")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
