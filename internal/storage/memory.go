package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/letsssgooo/dailyquiz/internal/calendar"
	"github.com/letsssgooo/dailyquiz/internal/domain/models"
)

// MemoryStorage реализует Storage в памяти.
type MemoryStorage struct {
	mu        sync.RWMutex
	questions []*models.Question // отсортированы по (created_at, id)
	byID      map[string]*models.Question
	progress  map[int64]*models.UserProgress
	totals    map[int64]int64
	answers   map[int64][]models.AnswerRecord
}

// NewMemoryStorage создаёт новый MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		byID:     make(map[string]*models.Question),
		progress: make(map[int64]*models.UserProgress),
		totals:   make(map[int64]int64),
		answers:  make(map[int64][]models.AnswerRecord),
	}
}

// AddQuestion сохраняет вопрос.
func (s *MemoryStorage) AddQuestion(_ context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[q.ID]; ok {
		return fmt.Errorf("question %s: %w", q.ID, ErrAlreadyExists)
	}

	stored := *q
	stored.Answers = append([]string(nil), q.Answers...)

	s.byID[stored.ID] = &stored
	s.questions = append(s.questions, &stored)
	sort.SliceStable(s.questions, func(i, j int) bool {
		return s.questions[i].Before(s.questions[j])
	})

	return nil
}

// GetQuestionByID возвращает вопрос по ID.
func (s *MemoryStorage) GetQuestionByID(_ context.Context, id string) (*models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("question %s: %w", id, ErrNotFound)
	}
	return copyQuestion(q), nil
}

// GetEarliestQuestion возвращает первый вопрос пула.
func (s *MemoryStorage) GetEarliestQuestion(_ context.Context) (*models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.questions) == 0 {
		return nil, fmt.Errorf("earliest question: %w", ErrNotFound)
	}
	return copyQuestion(s.questions[0]), nil
}

// GetNextQuestionAfter возвращает вопрос, следующий за q.
func (s *MemoryStorage) GetNextQuestionAfter(_ context.Context, q *models.Question) (*models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := sort.Search(len(s.questions), func(i int) bool {
		return q.Before(s.questions[i])
	})
	if i == len(s.questions) {
		return nil, fmt.Errorf("question after %s: %w", q.ID, ErrNotFound)
	}
	return copyQuestion(s.questions[i]), nil
}

// GetProgress возвращает прогресс пользователя.
func (s *MemoryStorage) GetProgress(_ context.Context, userID int64) (*models.UserProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progress[userID]
	if !ok {
		return nil, fmt.Errorf("progress of user %d: %w", userID, ErrNotFound)
	}
	return p.Clone(), nil
}

// CreateProgress создает прогресс пользователя.
func (s *MemoryStorage) CreateProgress(
	_ context.Context,
	userID int64,
	nextQuestionID *string,
) (*models.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.progress[userID]; ok {
		return nil, fmt.Errorf("progress of user %d: %w", userID, ErrAlreadyExists)
	}

	p := &models.UserProgress{UserID: userID, NextQuestionID: nextQuestionID}
	s.progress[userID] = p.Clone()

	return p, nil
}

// UpdateProgress перезаписывает прогресс пользователя.
func (s *MemoryStorage) UpdateProgress(_ context.Context, p *models.UserProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.progress[p.UserID]; !ok {
		return fmt.Errorf("progress of user %d: %w", p.UserID, ErrNotFound)
	}
	s.progress[p.UserID] = p.Clone()

	return nil
}

// AssignNextQuestion назначает следующий вопрос, если он еще не назначен.
func (s *MemoryStorage) AssignNextQuestion(_ context.Context, userID int64, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progress[userID]
	if !ok {
		return fmt.Errorf("progress of user %d: %w", userID, ErrNotFound)
	}
	if p.NextQuestionID != nil {
		return fmt.Errorf("next question of user %d: %w", userID, ErrAlreadyExists)
	}
	p.NextQuestionID = &questionID

	return nil
}

// GetTotalPoints возвращает общий счет пользователя.
func (s *MemoryStorage) GetTotalPoints(_ context.Context, userID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.totals[userID], nil
}

// AddTotalPoints прибавляет delta к общему счету.
func (s *MemoryStorage) AddTotalPoints(_ context.Context, userID int64, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totals[userID] += delta
	return nil
}

// CommitAnswer применяет результат ответа под одной блокировкой.
func (s *MemoryStorage) CommitAnswer(_ context.Context, c AnswerCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID := c.Progress.UserID

	current, ok := s.progress[userID]
	if !ok {
		return fmt.Errorf("progress of user %d: %w", userID, ErrNotFound)
	}
	if calendar.Equal(current.LastQuizDate, c.Today) {
		return fmt.Errorf("user %d on %s: %w", userID, c.Today, ErrAlreadyAnswered)
	}

	s.progress[userID] = c.Progress.Clone()
	if c.PointsDelta != 0 {
		s.totals[userID] += c.PointsDelta
	}
	s.answers[userID] = append(s.answers[userID], c.Record)

	return nil
}

// ListAnswers возвращает последние ответы пользователя.
func (s *MemoryStorage) ListAnswers(_ context.Context, userID int64, limit int) ([]models.AnswerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		return []models.AnswerRecord{}, nil
	}

	history := s.answers[userID]
	result := make([]models.AnswerRecord, 0, min(limit, len(history)))
	for i := len(history) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, history[i])
	}

	return result, nil
}

// Close ничего не делает.
func (s *MemoryStorage) Close() error {
	return nil
}

func copyQuestion(q *models.Question) *models.Question {
	c := *q
	c.Answers = append([]string(nil), q.Answers...)
	return &c
}
