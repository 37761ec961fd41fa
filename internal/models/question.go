package models

import (
	"encoding/json"
	"fmt"
)

// QuestionType is the closed set of knowledge-check formats.
type QuestionType string

const (
	QuestionSingleChoice    QuestionType = "scq"
	QuestionMultipleChoice  QuestionType = "mcq"
	QuestionFillInTheBlanks QuestionType = "fillInTheBlanks"
	QuestionText            QuestionType = "text"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionSingleChoice, QuestionMultipleChoice, QuestionFillInTheBlanks, QuestionText:
		return true
	}
	return false
}

// Option is one selectable choice of a choice question.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// QuestionBody is the type-specific part of a question. Exactly four
// implementations exist, one per QuestionType.
type QuestionBody interface {
	Kind() QuestionType
	sealed()
}

type SingleChoice struct {
	Options         []Option `json:"options"`
	CorrectOptionID string   `json:"correctOptionId"`
}

type MultipleChoice struct {
	Options          []Option `json:"options"`
	CorrectOptionIDs []string `json:"correctOptionIds"`
}

// Blank is one gap in a fill-in-the-blanks template, referenced as {{id}}.
type Blank struct {
	ID       string   `json:"id"`
	Accepted []string `json:"accepted"`
}

type FillInTheBlanks struct {
	Template string  `json:"template"`
	Blanks   []Blank `json:"blanks"`
}

// TextResponse is a free-text question. With no accepted answers any
// non-blank response counts as correct.
type TextResponse struct {
	Accepted        []string `json:"accepted,omitempty"`
	MaxEditDistance int      `json:"maxEditDistance,omitempty"`
}

func (SingleChoice) Kind() QuestionType    { return QuestionSingleChoice }
func (MultipleChoice) Kind() QuestionType  { return QuestionMultipleChoice }
func (FillInTheBlanks) Kind() QuestionType { return QuestionFillInTheBlanks }
func (TextResponse) Kind() QuestionType    { return QuestionText }

func (SingleChoice) sealed()    {}
func (MultipleChoice) sealed()  {}
func (FillInTheBlanks) sealed() {}
func (TextResponse) sealed()    {}

// Question is a gating knowledge check embedded at TriggerTime seconds.
type Question struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	Prompt      string       `json:"prompt"`
	TriggerTime float64      `json:"triggerTime"`
	Closeable   bool         `json:"closeable"`
	Points      float64      `json:"points"`
	Body        QuestionBody `json:"-"`
}

type questionJSON struct {
	ID          string          `json:"id"`
	Type        QuestionType    `json:"type"`
	Prompt      string          `json:"prompt"`
	TriggerTime float64         `json:"triggerTime"`
	Closeable   bool            `json:"closeable"`
	Points      float64         `json:"points"`
	Body        json.RawMessage `json:"body,omitempty"`
}

func (q Question) MarshalJSON() ([]byte, error) {
	var body json.RawMessage
	if q.Body != nil {
		b, err := json.Marshal(q.Body)
		if err != nil {
			return nil, err
		}
		body = b
	}
	typ := q.Type
	if q.Body != nil {
		typ = q.Body.Kind()
	}
	return json.Marshal(questionJSON{
		ID:          q.ID,
		Type:        typ,
		Prompt:      q.Prompt,
		TriggerTime: q.TriggerTime,
		Closeable:   q.Closeable,
		Points:      q.Points,
		Body:        body,
	})
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var raw questionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var body QuestionBody
	switch raw.Type {
	case QuestionSingleChoice:
		var b SingleChoice
		if err := decodeBody(raw.Body, &b); err != nil {
			return err
		}
		body = b
	case QuestionMultipleChoice:
		var b MultipleChoice
		if err := decodeBody(raw.Body, &b); err != nil {
			return err
		}
		body = b
	case QuestionFillInTheBlanks:
		var b FillInTheBlanks
		if err := decodeBody(raw.Body, &b); err != nil {
			return err
		}
		body = b
	case QuestionText:
		var b TextResponse
		if err := decodeBody(raw.Body, &b); err != nil {
			return err
		}
		body = b
	default:
		return fmt.Errorf("question %q: unknown type %q", raw.ID, raw.Type)
	}

	*q = Question{
		ID:          raw.ID,
		Type:        raw.Type,
		Prompt:      raw.Prompt,
		TriggerTime: raw.TriggerTime,
		Closeable:   raw.Closeable,
		Points:      raw.Points,
		Body:        body,
	}
	return nil
}

func decodeBody(raw json.RawMessage, into any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, into)
}

// QuestionView is the learner-facing projection of a question: no answer keys.
type QuestionView struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	Prompt      string       `json:"prompt"`
	TriggerTime float64      `json:"triggerTime"`
	Closeable   bool         `json:"closeable"`
	Points      float64      `json:"points"`
	Options     []Option     `json:"options,omitempty"`
	Template    string       `json:"template,omitempty"`
	BlankIDs    []string     `json:"blankIds,omitempty"`
}

// Public strips the correct answers from q.
func (q Question) Public() QuestionView {
	v := QuestionView{
		ID:          q.ID,
		Type:        q.Type,
		Prompt:      q.Prompt,
		TriggerTime: q.TriggerTime,
		Closeable:   q.Closeable,
		Points:      q.Points,
	}
	switch b := q.Body.(type) {
	case SingleChoice:
		v.Options = append([]Option(nil), b.Options...)
	case MultipleChoice:
		v.Options = append([]Option(nil), b.Options...)
	case FillInTheBlanks:
		v.Template = b.Template
		for _, blank := range b.Blanks {
			v.BlankIDs = append(v.BlankIDs, blank.ID)
		}
	}
	return v
}
