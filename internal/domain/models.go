package domain

import (
	"strings"
	"time"
)

// Mode selects how a session's question pool is built.
type Mode string

const (
	// ModeFresh draws from the bank filtered by chapter.
	ModeFresh Mode = "fresh"
	// ModeRetry draws from the user's previously missed questions.
	ModeRetry Mode = "retry"
)

// Labels are the four admissible answer labels, in bank column order.
var Labels = []string{"A", "B", "C", "D"}

// QuestionKey identifies a question across the bank, ledgers, and audit log.
type QuestionKey struct {
	Chapter string `json:"chapter"`
	Number  string `json:"number"`
}

// Option is one answer choice carrying its original bank label.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// QuestionRecord is one row of the question bank.
type QuestionRecord struct {
	Chapter      string   `json:"chapter"`
	Number       string   `json:"number"`
	Text         string   `json:"text"`
	Options      []Option `json:"options"` // A..D in bank order
	CorrectLabel string   `json:"correctLabel"`
	Explanation  string   `json:"explanation"`
}

// Key returns the record's identity key.
func (q QuestionRecord) Key() QuestionKey {
	return QuestionKey{Chapter: q.Chapter, Number: q.Number}
}

// OptionText returns the text stored under a label, or "" if absent.
func (q QuestionRecord) OptionText(label string) string {
	for _, opt := range q.Options {
		if opt.Label == label {
			return opt.Text
		}
	}
	return ""
}

// HasValidAnswer reports whether the correct label is one of A-D.
// Rows failing this are excluded from selection rather than failing a session.
func (q QuestionRecord) HasValidAnswer() bool {
	for _, l := range Labels {
		if q.CorrectLabel == l {
			return true
		}
	}
	return false
}

// AnswerRecord captures one finalized answer. Created at most once per
// question per session and never mutated afterwards; Correct is derived at
// creation time and must not be recomputed from a later option shuffle.
type AnswerRecord struct {
	User         string    `json:"user"`
	Chapter      string    `json:"chapter"`
	Number       string    `json:"number"`
	QuestionText string    `json:"questionText"`
	ChosenLabel  string    `json:"chosenLabel"`
	ChosenText   string    `json:"chosenText"`
	CorrectLabel string    `json:"correctLabel"`
	CorrectText  string    `json:"correctText"`
	Explanation  string    `json:"explanation"`
	Correct      bool      `json:"correct"`
	RecordedAt   time.Time `json:"recordedAt"`
}

// Key returns the identity key of the answered question.
func (a AnswerRecord) Key() QuestionKey {
	return QuestionKey{Chapter: a.Chapter, Number: a.Number}
}

// WrongAnswerEntry is one row of the wrong-answer ledger. At most one row
// may exist per (user, chapter, number), with usernames compared
// case-insensitively.
type WrongAnswerEntry struct {
	User         string
	Chapter      string
	Number       string
	QuestionText string
	ChosenLabel  string
	ChosenText   string
	CorrectLabel string
	CorrectText  string
	Explanation  string
	RecordedAt   time.Time
}

// Key returns the ledger dedup key with the username lowercased.
func (e WrongAnswerEntry) Key() LedgerKey {
	return LedgerKey{User: strings.ToLower(e.User), Chapter: e.Chapter, Number: e.Number}
}

// AttemptEntry is one row of the attempt ledger; Count only ever grows.
type AttemptEntry struct {
	User    string
	Chapter string
	Number  string
	Count   int
}

// Key returns the ledger dedup key with the username lowercased.
func (e AttemptEntry) Key() LedgerKey {
	return LedgerKey{User: strings.ToLower(e.User), Chapter: e.Chapter, Number: e.Number}
}

// LedgerKey identifies a ledger row: (normalized user, chapter, number).
type LedgerKey struct {
	User    string
	Chapter string
	Number  string
}

// AuditEntry records one field-level change applied by the bank editor.
// Edits that leave a field unchanged produce no entry.
type AuditEntry struct {
	At       time.Time `json:"at"`
	Chapter  string    `json:"chapter"`
	Number   string    `json:"number"`
	Field    string    `json:"field"`
	OldValue string    `json:"oldValue"`
	NewValue string    `json:"newValue"`
}

// LedgerKeyFor builds the ledger key for a user's answer to a question.
func LedgerKeyFor(user string, key QuestionKey) LedgerKey {
	return LedgerKey{User: strings.ToLower(user), Chapter: key.Chapter, Number: key.Number}
}
