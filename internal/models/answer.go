package models

import "time"

// Answer is a learner's response. Only the field matching the question's
// type is read.
type Answer struct {
	QuestionID string            `json:"questionId"`
	OptionID   string            `json:"optionId,omitempty"`
	OptionIDs  []string          `json:"optionIds,omitempty"`
	Blanks     map[string]string `json:"blanks,omitempty"`
	Text       string            `json:"text,omitempty"`
}

// AnswerMeta is the scoring context sent with an answer.
type AnswerMeta struct {
	VideoType    VideoType    `json:"videoType"`
	QuestionType QuestionType `json:"questionType"`
	Correct      bool         `json:"correct"`
	Points       float64      `json:"points"`
	Timestamp    float64      `json:"timestamp"`
	Attempt      int          `json:"attempt"`
}

// AnswerSubmission is the payload of a remote answer submit.
type AnswerSubmission struct {
	VideoID    string     `json:"videoId"`
	CourseID   string     `json:"courseId,omitempty"`
	QuestionID string     `json:"questionId"`
	Answer     Answer     `json:"answer"`
	Meta       AnswerMeta `json:"meta"`
}

// SubmissionRecord is the progress service's acknowledgment of an answer.
type SubmissionRecord struct {
	ID          string    `json:"id"`
	QuestionID  string    `json:"questionId"`
	Correct     bool      `json:"correct"`
	SubmittedAt time.Time `json:"submittedAt"`
}
