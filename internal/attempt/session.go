package attempt

import (
	"context"
	"math"
	"sync"
	"time"

	"coined-client/internal/domain"
	"coined-client/internal/session"
)

// Phase is the linear lifecycle of one quiz-taking session. There is no
// backward transition; result is terminal for the session instance.
type Phase int

const (
	PhaseIntro Phase = iota
	PhaseQuiz
	PhaseResult
)

func (p Phase) String() string {
	switch p {
	case PhaseIntro:
		return "intro"
	case PhaseQuiz:
		return "quiz"
	case PhaseResult:
		return "result"
	}
	return "unknown"
}

// DefaultTotalSeconds applies when a quiz carries no time limit.
const DefaultTotalSeconds = 12 * 60

// DefaultMaxCoins applies in fallback grading when a quiz carries no
// coin ceiling.
const DefaultMaxCoins = 20

// Result is what the session shows at the end. Degraded marks a locally
// graded result: the submission never reached the server, the server
// never learned of this attempt, and the numbers are an approximation.
type Result struct {
	Score       int
	Correct     int
	Total       int
	CoinsEarned int
	Degraded    bool
}

// Session drives exactly one quiz attempt through intro → quiz → result.
// The single-attempt lock lives in the catalog (the quiz's resolved
// attempt), not here; a new Session for a completed quiz is refused at
// Begin. The countdown is owned by the session and is released on every
// exit path.
type Session struct {
	store *session.Store
	quiz  domain.Quiz

	tickEvery    time.Duration
	advanceAfter time.Duration

	mu         sync.Mutex
	ctx        context.Context
	phase      Phase
	current    int
	answers    []int
	selected   int
	confirmed  bool
	remaining  int
	total      int
	result     *Result
	submitting bool

	stop     chan struct{}
	stopOnce sync.Once
}

// Option tweaks session behavior; the zero set is production behavior.
type Option func(*Session)

// WithTickInterval overrides the one-second countdown tick. Zero disables
// the internal ticker entirely so tests drive Tick by hand.
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) { s.tickEvery = d }
}

// WithAutoAdvance makes Confirm schedule Next after the given display
// delay, the way the portal briefly shows the revealed answer. Zero
// leaves advancing to the caller.
func WithAutoAdvance(d time.Duration) Option {
	return func(s *Session) { s.advanceAfter = d }
}

// Begin opens a session for one quiz. While the catalog is still loading
// it returns ErrCatalogLoading; callers keep showing a loading state and
// must not redirect. A quiz already carrying a resolved attempt returns
// ErrQuizAttempted so no second submission path can open.
func Begin(store *session.Store, quizID string, opts ...Option) (*Session, error) {
	quiz, err := store.QuizByID(quizID)
	if err != nil {
		return nil, err
	}
	if _, done := store.AttemptFor(quizID); done {
		return nil, domain.ErrQuizAttempted
	}

	total := quiz.TimeLimitMinutes * 60
	if total <= 0 {
		total = DefaultTotalSeconds
	}

	s := &Session{
		store:     store,
		quiz:      quiz,
		tickEvery: time.Second,
		phase:     PhaseIntro,
		selected:  -1,
		remaining: total,
		total:     total,
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start moves intro → quiz, arms the countdown and starts the tick loop.
// The ctx is held for submissions triggered by the timer or auto-advance.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.phase != PhaseIntro {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseQuiz
	s.ctx = ctx
	tick := s.tickEvery
	s.mu.Unlock()

	if tick > 0 {
		go s.run(tick)
	}
}

func (s *Session) run(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if !s.Tick() {
				return
			}
		case <-s.stop:
			return
		}
	}
}

// Tick consumes one countdown second. It only counts while in the quiz
// phase, and reaching zero force-submits whatever has been confirmed so
// far. It reports whether the countdown is still live.
func (s *Session) Tick() bool {
	s.mu.Lock()
	if s.phase != PhaseQuiz {
		s.mu.Unlock()
		return false
	}
	s.remaining--
	expired := s.remaining <= 0
	s.mu.Unlock()

	if expired {
		s.Submit()
		return false
	}
	return true
}

// Select records a pending choice. Free and idempotent until Confirm;
// afterwards the option list is read-only and the call is a no-op.
func (s *Session) Select(option int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseQuiz || s.confirmed {
		return
	}
	if option < 0 || option >= len(s.quiz.Questions[s.current].Options) {
		return
	}
	s.selected = option
}

// Confirm locks in the pending choice and reveals its correctness. It is
// one-way: there is no un-confirm. With no pending choice it does
// nothing. When auto-advance is configured the machine moves on by itself
// after the display delay.
func (s *Session) Confirm() (correct, ok bool) {
	s.mu.Lock()
	if s.phase != PhaseQuiz || s.confirmed || s.selected < 0 {
		s.mu.Unlock()
		return false, false
	}
	s.confirmed = true
	s.answers = append(s.answers, s.selected)
	correct = s.selected == s.quiz.Questions[s.current].Correct
	delay := s.advanceAfter
	s.mu.Unlock()

	if delay > 0 {
		time.AfterFunc(delay, s.Next)
	}
	return correct, true
}

// Next advances past a confirmed question, or submits after the last one.
func (s *Session) Next() {
	s.mu.Lock()
	if s.phase != PhaseQuiz || !s.confirmed {
		s.mu.Unlock()
		return
	}
	if s.current+1 >= len(s.quiz.Questions) {
		s.mu.Unlock()
		s.Submit()
		return
	}
	s.current++
	s.selected = -1
	s.confirmed = false
	s.mu.Unlock()
}

// Submit sends the one permitted attempt. A call while a submission is in
// flight, or after the session resolved, is a no-op, never queued and
// never an error. On a failed remote call the session falls back to local
// grading and shows a degraded, non-authoritative result that the server
// never learns about.
func (s *Session) Submit() {
	s.mu.Lock()
	if s.phase == PhaseResult || s.submitting {
		s.mu.Unlock()
		return
	}
	s.submitting = true
	answers := append([]int(nil), s.answers...)
	taken := s.total - s.remaining
	if taken < 0 {
		taken = s.total
	}
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	var result Result
	res, err := s.store.SubmitAttempt(ctx, s.quiz.ID, answers, taken)
	if err != nil {
		result = s.gradeLocally(answers)
		result.Degraded = true
	} else {
		result = Result{
			Score:       res.Score,
			Correct:     res.Correct,
			Total:       res.Total,
			CoinsEarned: res.CoinsEarned,
		}
	}

	s.mu.Lock()
	s.result = &result
	s.phase = PhaseResult
	s.submitting = false
	s.mu.Unlock()
	s.Close()
}

// gradeLocally scores the confirmed answers against the known correct
// indices. A shorter-than-total answer list is a partial attempt; the
// missing questions simply score nothing.
func (s *Session) gradeLocally(answers []int) Result {
	total := len(s.quiz.Questions)
	correct := 0
	for i, ans := range answers {
		if i < total && ans == s.quiz.Questions[i].Correct {
			correct++
		}
	}

	score := 0
	if total > 0 {
		score = int(math.Round(float64(correct) / float64(total) * 100))
	}
	maxCoins := s.quiz.MaxCoins
	if maxCoins <= 0 {
		maxCoins = DefaultMaxCoins
	}
	coins := int(math.Round(float64(maxCoins) * float64(score) / 100))

	return Result{Score: score, Correct: correct, Total: total, CoinsEarned: coins}
}

// Close releases the countdown. Safe to call from every exit path, any
// number of times; a torn-down session must never keep ticking.
func (s *Session) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Quiz returns the quiz this session runs.
func (s *Session) Quiz() domain.Quiz { return s.quiz }

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Question returns the current question and its index.
func (s *Session) Question() (domain.Question, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiz.Questions[s.current], s.current
}

func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

func (s *Session) Answers() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.answers...)
}

// Result reports the outcome once the session reached the result phase.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}
