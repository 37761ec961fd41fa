package grading

import (
	"fmt"
	"strings"

	"github.com/vytor/lessonplay/internal/models"
)

// Result is the outcome of grading one answer.
type Result struct {
	Correct bool
	Points  float64
}

// Strategy grades one question type.
type Strategy interface {
	Grade(body models.QuestionBody, answer models.Answer) bool
}

// Evaluator decides whether an answer is correct for its question.
type Evaluator interface {
	Evaluate(q models.Question, answer models.Answer) (Result, error)
}

type Option func(*config)

type config struct {
	blankEditDistance int
}

// WithBlankEditDistance allows typos in fill-in-the-blanks answers.
func WithBlankEditDistance(n int) Option { return func(c *config) { c.blankEditDistance = n } }

type evaluator struct {
	strategies map[models.QuestionType]Strategy
}

// NewEvaluator installs a strategy for each question type.
func NewEvaluator(opts ...Option) Evaluator {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	return &evaluator{
		strategies: map[models.QuestionType]Strategy{
			models.QuestionSingleChoice:    singleChoiceStrategy{},
			models.QuestionMultipleChoice:  multipleChoiceStrategy{},
			models.QuestionFillInTheBlanks: blanksStrategy{maxEdit: cfg.blankEditDistance},
			models.QuestionText:            textStrategy{},
		},
	}
}

func (e *evaluator) Evaluate(q models.Question, answer models.Answer) (Result, error) {
	if answer.QuestionID != "" && answer.QuestionID != q.ID {
		return Result{}, fmt.Errorf("answer for %q given to question %q", answer.QuestionID, q.ID)
	}
	if q.Body == nil {
		return Result{}, fmt.Errorf("question %q has no body", q.ID)
	}
	s, ok := e.strategies[q.Body.Kind()]
	if !ok {
		return Result{}, fmt.Errorf("no strategy for question type %q", q.Body.Kind())
	}
	res := Result{Correct: s.Grade(q.Body, answer)}
	if res.Correct {
		res.Points = q.Points
	}
	return res, nil
}

type singleChoiceStrategy struct{}

func (singleChoiceStrategy) Grade(body models.QuestionBody, answer models.Answer) bool {
	b, ok := body.(models.SingleChoice)
	if !ok || answer.OptionID == "" {
		return false
	}
	return answer.OptionID == b.CorrectOptionID
}

type multipleChoiceStrategy struct{}

func (multipleChoiceStrategy) Grade(body models.QuestionBody, answer models.Answer) bool {
	b, ok := body.(models.MultipleChoice)
	if !ok || len(answer.OptionIDs) == 0 {
		return false
	}
	want := toSet(b.CorrectOptionIDs)
	got := toSet(answer.OptionIDs)
	if len(want) != len(got) {
		return false
	}
	for id := range got {
		if _, ok := want[id]; !ok {
			return false
		}
	}
	return true
}

type blanksStrategy struct{ maxEdit int }

func (s blanksStrategy) Grade(body models.QuestionBody, answer models.Answer) bool {
	b, ok := body.(models.FillInTheBlanks)
	if !ok || len(b.Blanks) == 0 {
		return false
	}
	for _, blank := range b.Blanks {
		if !matchesAny(answer.Blanks[blank.ID], blank.Accepted, s.maxEdit) {
			return false
		}
	}
	return true
}

type textStrategy struct{}

func (textStrategy) Grade(body models.QuestionBody, answer models.Answer) bool {
	b, ok := body.(models.TextResponse)
	if !ok {
		return false
	}
	// Reflection prompts accept anything the learner writes.
	if len(b.Accepted) == 0 {
		return strings.TrimSpace(answer.Text) != ""
	}
	return matchesAny(answer.Text, b.Accepted, b.MaxEditDistance)
}

func toSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}
