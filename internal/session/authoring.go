package session

import (
	"context"
	"fmt"

	"coined-client/internal/api"
	"coined-client/internal/domain"
	"github.com/go-playground/validator/v10"
)

// Teacher-side authoring operations. Inputs are validated before any
// network call; a failed check reports immediately with no partial
// submission.

var validate = validator.New()

// NewStudentInput is a teacher's new-student form.
type NewStudentInput struct {
	Name     string `validate:"required"`
	Class    string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=4"`
	ColorTag string
}

// NewShopItemInput is the authoring form for one shop entry.
type NewShopItemInput struct {
	Name     string `validate:"required"`
	Cost     int    `validate:"required,gt=0"`
	Category string
	Emoji    string
	Image    string
	Tag      string
	Desc     string
}

// NewQuizInput is the authoring form for a quiz.
type NewQuizInput struct {
	Title            string `validate:"required"`
	Subject          string
	Class            string
	MaxCoins         int                `validate:"gte=0"`
	TimeLimitMinutes int                `validate:"gte=0"`
	Questions        []NewQuestionInput `validate:"required,min=1,dive"`
	Active           bool
}

// NewQuestionInput is one MCQ question with four options.
type NewQuestionInput struct {
	Text    string   `validate:"required"`
	Options []string `validate:"required,len=4,dive,required"`
	Correct int      `validate:"gte=0,lte=3"`
}

func invalid(err error) error {
	return &domain.ValidationError{Err: err}
}

func (s *Store) CreateStudent(ctx context.Context, in NewStudentInput) (domain.Student, error) {
	if err := validate.Struct(in); err != nil {
		return domain.Student{}, invalid(err)
	}

	student, err := s.api.CreateStudent(ctx, api.CreateStudentRequest{
		Name:     in.Name,
		Class:    in.Class,
		Email:    in.Email,
		Password: in.Password,
		ColorTag: in.ColorTag,
	})
	if err != nil {
		return domain.Student{}, err
	}

	s.mu.Lock()
	s.students = append(s.students, student)
	s.mu.Unlock()
	return student, nil
}

func (s *Store) DeleteStudent(ctx context.Context, studentID string) error {
	if err := s.api.DeleteStudent(ctx, studentID); err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.students[:0]
	for _, st := range s.students {
		if st.ID != studentID {
			kept = append(kept, st)
		}
	}
	s.students = kept
	s.mu.Unlock()
	return nil
}

func (s *Store) AddShopItem(ctx context.Context, in NewShopItemInput) (domain.ShopItem, error) {
	if err := validate.Struct(in); err != nil {
		return domain.ShopItem{}, invalid(err)
	}

	item, err := s.api.AddShopItem(ctx, domain.ShopItem{
		Name:     in.Name,
		Cost:     in.Cost,
		Category: in.Category,
		Emoji:    in.Emoji,
		Image:    in.Image,
		Tag:      in.Tag,
		Desc:     in.Desc,
	})
	if err != nil {
		return domain.ShopItem{}, err
	}

	s.mu.Lock()
	s.shopItems = append(s.shopItems, item)
	s.mu.Unlock()
	return item, nil
}

func (s *Store) RemoveShopItem(ctx context.Context, itemID string) error {
	if err := s.api.DeleteShopItem(ctx, itemID); err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.shopItems[:0]
	for _, it := range s.shopItems {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	s.shopItems = kept
	s.mu.Unlock()
	return nil
}

func (s *Store) CreateQuiz(ctx context.Context, in NewQuizInput) (domain.Quiz, error) {
	quiz, err := buildQuiz(in)
	if err != nil {
		return domain.Quiz{}, err
	}

	created, err := s.api.CreateQuiz(ctx, quiz)
	if err != nil {
		return domain.Quiz{}, err
	}

	s.mu.Lock()
	s.quizzes = append(s.quizzes, created)
	s.mu.Unlock()
	return created, nil
}

func (s *Store) UpdateQuiz(ctx context.Context, quizID string, in NewQuizInput) (domain.Quiz, error) {
	quiz, err := buildQuiz(in)
	if err != nil {
		return domain.Quiz{}, err
	}

	updated, err := s.api.UpdateQuiz(ctx, quizID, quiz)
	if err != nil {
		return domain.Quiz{}, err
	}

	s.mu.Lock()
	for i := range s.quizzes {
		if s.quizzes[i].ID == quizID {
			s.quizzes[i] = updated
		}
	}
	s.mu.Unlock()
	return updated, nil
}

func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	if err := s.api.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.quizzes[:0]
	for _, q := range s.quizzes {
		if q.ID != quizID {
			kept = append(kept, q)
		}
	}
	s.quizzes = kept
	s.mu.Unlock()
	return nil
}

func (s *Store) ToggleQuizActive(ctx context.Context, quizID string) (domain.Quiz, error) {
	updated, err := s.api.ToggleQuizActive(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}

	s.mu.Lock()
	for i := range s.quizzes {
		if s.quizzes[i].ID == quizID {
			s.quizzes[i] = updated
		}
	}
	s.mu.Unlock()
	return updated, nil
}

// QuizResults fetches the aggregated results for one quiz. Results are
// not cached; teachers always want the live view.
func (s *Store) QuizResults(ctx context.Context, quizID string) ([]domain.ResultRow, error) {
	return s.api.QuizResults(ctx, quizID)
}

func buildQuiz(in NewQuizInput) (domain.Quiz, error) {
	if err := validate.Struct(in); err != nil {
		return domain.Quiz{}, invalid(err)
	}
	questions := make([]domain.Question, 0, len(in.Questions))
	for i, q := range in.Questions {
		if q.Correct >= len(q.Options) {
			return domain.Quiz{}, &domain.ValidationError{
				Reason: fmt.Sprintf("question %d: correct option out of range", i+1),
			}
		}
		questions = append(questions, domain.Question{
			Text:    q.Text,
			Options: q.Options,
			Correct: q.Correct,
		})
	}
	return domain.Quiz{
		Title:            in.Title,
		Subject:          in.Subject,
		Class:            in.Class,
		MaxCoins:         in.MaxCoins,
		TimeLimitMinutes: in.TimeLimitMinutes,
		Questions:        questions,
		Active:           in.Active,
	}, nil
}
