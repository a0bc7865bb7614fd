package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/letsssgooo/dailyquiz/internal/domain/models"
	"github.com/letsssgooo/dailyquiz/internal/storage"
)

// questionPack - формат файла с вопросами.
type questionPack struct {
	Questions []packQuestion `json:"questions"`
}

type packQuestion struct {
	ID                 string     `json:"id"`
	Question           string     `json:"question"`
	Answers            []string   `json:"answers"`
	CorrectAnswerIndex *int       `json:"correct_answer_index"`
	Category           string     `json:"category"`
	Points             int        `json:"points"`
	CreatedAt          *time.Time `json:"created_at"`
}

// questionNamespace - пространство имен uuid для вопросов без явного id.
var questionNamespace = uuid.MustParse("6f1c2a9e-4b7d-4e0a-9c3f-2d8e5b1a7c40")

// LoadQuestions парсит JSON с пакетом вопросов и проверяет его.
// Вопросам без id назначается uuid, вычисленный из текста и вариантов ответа,
// поэтому повторная загрузка того же пакета не создает дублей. Вопросам без
// created_at назначается время base, сдвинутое на порядковый номер.
func LoadQuestions(data []byte, base time.Time) ([]*models.Question, error) {
	pack := &questionPack{}
	if err := json.Unmarshal(data, pack); err != nil {
		return nil, fmt.Errorf("%w: cannot parse question pack: %w", ErrInvalidInput, err)
	}

	if err := isCorrectPack(pack); err != nil {
		return nil, fmt.Errorf("%w: cannot load question pack, %w", ErrInvalidInput, err)
	}

	base = base.UTC().Truncate(time.Millisecond)
	questions := make([]*models.Question, 0, len(pack.Questions))
	seen := make(map[string]struct{}, len(pack.Questions))

	for i, pq := range pack.Questions {
		q := &models.Question{
			ID:                 pq.ID,
			Text:               pq.Question,
			Answers:            pq.Answers,
			CorrectAnswerIndex: *pq.CorrectAnswerIndex,
			Category:           models.Category(pq.Category),
			Points:             pq.Points,
			CreatedAt:          base.Add(time.Duration(i) * time.Millisecond),
		}
		if q.ID == "" {
			q.ID = contentID(q)
		}
		if q.Category == "" {
			q.Category = models.CategoryGeneral
		}
		if pq.CreatedAt != nil {
			q.CreatedAt = pq.CreatedAt.UTC()
		}
		if _, ok := seen[q.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate question %q in %d question", ErrInvalidInput, q.ID, i)
		}
		seen[q.ID] = struct{}{}

		questions = append(questions, q)
	}

	return questions, nil
}

func contentID(q *models.Question) string {
	content := q.Text + "\x00" + strings.Join(q.Answers, "\x00")
	return uuid.NewSHA1(questionNamespace, []byte(content)).String()
}

// isCorrectPack проверяет на корректность пакет вопросов
func isCorrectPack(pack *questionPack) error {
	if len(pack.Questions) == 0 {
		return fmt.Errorf("need at least one question")
	}

	for i, question := range pack.Questions {
		if question.Question == "" {
			return fmt.Errorf("missing field question of %d question", i)
		}

		if len(question.Answers) < 2 {
			return fmt.Errorf("amount of answers must be at least two in %d question", i)
		}

		if question.CorrectAnswerIndex == nil {
			return fmt.Errorf("missing field correct_answer_index of %d question", i)
		}

		correct := *question.CorrectAnswerIndex
		if correct < 0 || correct >= len(question.Answers) {
			return fmt.Errorf("index of correct answer in %d question is out of range", i)
		}

		if question.Points < 0 {
			return fmt.Errorf("points must not be negative in %d question", i)
		}

		switch models.Category(question.Category) {
		case "", models.CategoryDeFi, models.CategoryNFT, models.CategoryDAO, models.CategoryGeneral:
		default:
			return fmt.Errorf("unknown category %q in %d question", question.Category, i)
		}
	}

	return nil
}

// Seed сохраняет вопросы из пакета в хранилище. Уже существующие
// вопросы (с тем же id) пропускаются. Возвращает число добавленных.
func Seed(ctx context.Context, repo storage.QuestionRepository, questions []*models.Question) (int, error) {
	added := 0
	for _, q := range questions {
		err := repo.AddQuestion(ctx, q)
		if errors.Is(err, storage.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return added, storageErr("add question "+q.ID, err)
		}
		added++
	}
	return added, nil
}
