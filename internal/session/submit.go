package session

import (
	"context"

	"coined-client/internal/api"
	"coined-client/internal/domain"
	"github.com/google/uuid"
)

// SubmitAttempt sends the graded answers for one quiz and, on success,
// folds the server's verdict back into the cache: the catalog entry gains
// the resolved attempt, the flat attempts view grows, and the student's
// identity balance is incremented by coinsEarned (the response carries no
// absolute total, so this is the one additive coin update).
func (s *Store) SubmitAttempt(ctx context.Context, quizID string, answers []int, timeTakenSeconds int) (domain.SubmitResult, error) {
	s.mu.RLock()
	identity := s.identity
	s.mu.RUnlock()
	if identity == nil {
		return domain.SubmitResult{}, domain.ErrNotLoggedIn
	}

	payload := make([]api.AnswerPayload, len(answers))
	for i, selected := range answers {
		payload[i] = api.AnswerPayload{QuestionIndex: i, Selected: selected}
	}

	res, err := s.api.SubmitAttempt(ctx, quizID, payload)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	attempt := domain.QuizAttempt{
		QuizID:           quizID,
		StudentID:        identity.ID,
		Answers:          answers,
		Score:            res.Score,
		CoinsEarned:      res.CoinsEarned,
		TimeTakenSeconds: timeTakenSeconds,
	}
	if res.Attempt != nil {
		attempt.ID = res.Attempt.ID
		if res.Attempt.TimeTakenSeconds > 0 {
			attempt.TimeTakenSeconds = res.Attempt.TimeTakenSeconds
		}
	}
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}

	s.mu.Lock()
	s.attempts = append(s.attempts, attempt)
	for i := range s.quizzes {
		if s.quizzes[i].ID == quizID {
			att := attempt
			s.quizzes[i].Attempt = &att
		}
	}
	if s.identity != nil && res.CoinsEarned != 0 {
		s.identity.Coins += res.CoinsEarned
	}
	s.mu.Unlock()

	res.Attempt = &attempt
	return res, nil
}
