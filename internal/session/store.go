package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"coined-client/internal/api"
	"coined-client/internal/domain"
	"golang.org/x/sync/singleflight"
)

// LoadState is the lifecycle of one cached collection. A collection is
// never reported as Loaded just because it is empty; consumers branch on
// this state, not on emptiness.
type LoadState int

const (
	NotLoaded LoadState = iota
	Loading
	Loaded
)

// Store is the single in-memory mirror of the portal for one device
// session: identity, roster, catalogs, attempts and the per-student
// transaction ledger. All mutation funnels through its methods; nothing
// here survives beyond the persisted credential token.
type Store struct {
	api    *api.Client
	tokens api.TokenStore
	sf     singleflight.Group

	mu            sync.RWMutex
	identity      *domain.Identity
	students      []domain.Student
	studentsState LoadState
	shopItems     []domain.ShopItem
	shopState     LoadState
	quizzes       []domain.Quiz
	quizState     LoadState
	attempts      []domain.QuizAttempt
	ledger        map[string][]domain.Transaction
}

func NewStore(client *api.Client, tokens api.TokenStore) *Store {
	return &Store{
		api:    client,
		tokens: tokens,
		ledger: make(map[string][]domain.Transaction),
	}
}

// Restore rebuilds the identity from the persisted token. An invalid or
// expired token is discarded and the session is simply logged out; only
// transport-level failures are reported to the caller.
func (s *Store) Restore(ctx context.Context) error {
	token, err := s.tokens.Load(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	identity, err := s.api.Me(ctx)
	if err != nil {
		var authErr *domain.AuthError
		if errors.As(err, &authErr) {
			_ = s.tokens.Clear(ctx)
			return nil
		}
		return err
	}

	s.mu.Lock()
	s.identity = &identity
	s.mu.Unlock()
	return nil
}

// Login exchanges credentials for a token and identity. Invalid
// credentials surface as AuthError; nothing is cached on failure.
func (s *Store) Login(ctx context.Context, email, password string) (domain.Role, error) {
	res, err := s.api.Login(ctx, email, password)
	if err != nil {
		return "", err
	}
	if err := s.tokens.Save(ctx, res.Token); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.resetLocked()
	identity := res.User
	s.identity = &identity
	s.mu.Unlock()
	return res.User.Role, nil
}

// Logout clears the persisted token and wipes every cached collection in
// one step. A stale balance or attempt surviving logout is a bug.
func (s *Store) Logout(ctx context.Context) error {
	err := s.tokens.Clear(ctx)

	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	return err
}

func (s *Store) resetLocked() {
	s.identity = nil
	s.students = nil
	s.studentsState = NotLoaded
	s.shopItems = nil
	s.shopState = NotLoaded
	s.quizzes = nil
	s.quizState = NotLoaded
	s.attempts = nil
	s.ledger = make(map[string][]domain.Transaction)
}

// LoadCatalogs runs the role-appropriate catalog fetches. Teachers load
// roster + shop + quizzes; students load shop + quizzes, and the quiz
// response seeds the flat attempts view. Failures are logged and leave
// the affected collection exactly as it was. Concurrent calls coalesce.
func (s *Store) LoadCatalogs(ctx context.Context) {
	s.mu.RLock()
	identity := s.identity
	s.mu.RUnlock()
	if identity == nil {
		return
	}

	_, _, _ = s.sf.Do("catalogs", func() (interface{}, error) {
		switch identity.Role {
		case domain.RoleTeacher:
			s.loadStudents(ctx)
			s.loadShop(ctx)
			s.loadQuizzes(ctx, "")
		case domain.RoleStudent:
			s.loadShop(ctx)
			s.loadQuizzes(ctx, identity.ID)
		}
		return nil, nil
	})
}

func (s *Store) loadStudents(ctx context.Context) {
	prev := s.beginLoad(&s.studentsState)
	students, err := s.api.ListStudents(ctx)
	if err != nil {
		log.Printf("load students: %v", err)
		s.setState(&s.studentsState, prev)
		return
	}
	s.mu.Lock()
	s.students = students
	s.studentsState = Loaded
	s.mu.Unlock()
}

func (s *Store) loadShop(ctx context.Context) {
	prev := s.beginLoad(&s.shopState)
	items, err := s.api.ListShop(ctx)
	if err != nil {
		log.Printf("load shop: %v", err)
		s.setState(&s.shopState, prev)
		return
	}
	s.mu.Lock()
	s.shopItems = items
	s.shopState = Loaded
	s.mu.Unlock()
}

// loadQuizzes refreshes the quiz catalog. When studentID is set, entries
// carrying a resolved attempt are projected into the flat attempts view.
func (s *Store) loadQuizzes(ctx context.Context, studentID string) {
	prev := s.beginLoad(&s.quizState)
	quizzes, err := s.api.ListQuizzes(ctx)
	if err != nil {
		log.Printf("load quizzes: %v", err)
		s.setState(&s.quizState, prev)
		return
	}

	var attempts []domain.QuizAttempt
	if studentID != "" {
		for _, q := range quizzes {
			if q.Attempt == nil || q.Attempt.ID == "" {
				continue
			}
			att := *q.Attempt
			att.QuizID = q.ID
			att.StudentID = studentID
			attempts = append(attempts, att)
		}
	}

	s.mu.Lock()
	s.quizzes = quizzes
	if studentID != "" {
		s.attempts = attempts
	}
	s.quizState = Loaded
	s.mu.Unlock()
}

// beginLoad flips a collection into Loading and reports the state it had,
// so a failed fetch can put things back exactly as they were.
func (s *Store) beginLoad(target *LoadState) LoadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := *target
	*target = Loading
	return prev
}

func (s *Store) setState(target *LoadState, state LoadState) {
	s.mu.Lock()
	*target = state
	s.mu.Unlock()
}

// Identity reports the cached identity, if any. Before Restore resolves
// there simply is no identity; callers must treat that as absent data.
func (s *Store) Identity() (domain.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return domain.Identity{}, false
	}
	return *s.identity, true
}

func (s *Store) Students() ([]domain.Student, LoadState) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Student(nil), s.students...), s.studentsState
}

func (s *Store) ShopItems() ([]domain.ShopItem, LoadState) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ShopItem(nil), s.shopItems...), s.shopState
}

func (s *Store) Quizzes() ([]domain.Quiz, LoadState) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Quiz(nil), s.quizzes...), s.quizState
}

// QuizzesLoaded gates every quiz-taking entry point. An empty-but-loaded
// catalog is a valid state distinct from "not yet loaded".
func (s *Store) QuizzesLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quizState == Loaded
}

// QuizByID resolves a quiz from the loaded catalog. ErrCatalogLoading is
// returned while the catalog is pending so callers keep showing a loading
// state instead of redirecting to "not found".
func (s *Store) QuizByID(id string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.quizState != Loaded {
		return domain.Quiz{}, domain.ErrCatalogLoading
	}
	for _, q := range s.quizzes {
		if q.ID == id {
			return q, nil
		}
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// StudentByID resolves a roster entry by id.
func (s *Store) StudentByID(id string) (domain.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.students {
		if st.ID == id {
			return st, nil
		}
	}
	return domain.Student{}, domain.ErrStudentNotFound
}

func (s *Store) Attempts() []domain.QuizAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.QuizAttempt(nil), s.attempts...)
}

// AttemptFor reports the resolved attempt for a quiz, if one exists.
func (s *Store) AttemptFor(quizID string) (domain.QuizAttempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, att := range s.attempts {
		if att.QuizID == quizID {
			return att, true
		}
	}
	for _, q := range s.quizzes {
		if q.ID == quizID && q.Attempt != nil && q.Attempt.ID != "" {
			return *q.Attempt, true
		}
	}
	return domain.QuizAttempt{}, false
}

// Coins looks up a balance by id. The roster view wins over the self view
// when both exist, because the roster is the fresher fetch after teacher
// mutations; unknown ids report zero.
func (s *Store) Coins(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.students {
		if st.ID == id {
			return st.Coins
		}
	}
	if s.identity != nil && s.identity.ID == id {
		return s.identity.Coins
	}
	return 0
}

// Transactions returns the cached ledger for a student, newest first.
func (s *Store) Transactions(studentID string) []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Transaction(nil), s.ledger[studentID]...)
}

// LoadTransactions refetches a student's ledger and replaces the cached
// slice wholesale, which also drops any synthetic rows inserted by
// earlier optimistic mutations.
func (s *Store) LoadTransactions(ctx context.Context, studentID string) error {
	txs, err := s.api.ListTransactions(ctx, studentID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ledger[studentID] = txs
	s.mu.Unlock()
	return nil
}
