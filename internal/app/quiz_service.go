package app

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"quizbank-service/internal/domain"
)

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	Put(key string, session *Session)
	Get(key string) (*Session, bool)
	Delete(key string)
}

// BankRepository loads the current question bank view (from cache/backing store).
// Invalidate drops any cached view so the next Load sees fresh rows.
type BankRepository interface {
	Load(ctx context.Context) ([]domain.QuestionRecord, error)
	Invalidate()
}

// BankEditor applies a field edit to one bank row and reports what changed.
type BankEditor interface {
	Update(ctx context.Context, key domain.QuestionKey, fields map[string]string) ([]domain.AuditEntry, error)
}

// WrongLedger is the durable record of previously missed questions.
type WrongLedger interface {
	Append(entries []domain.WrongAnswerEntry) error
	Keys(user string) ([]domain.QuestionKey, error)
	Clear(user string) error
	Export(w io.Writer) error
}

// AttemptLedger counts completed answer events per (user, question).
type AttemptLedger interface {
	Bump(user string, key domain.QuestionKey) error
	Export(w io.Writer) error
}

// AuditLog is the append-only change log for bank edits.
type AuditLog interface {
	Append(entries []domain.AuditEntry) error
	Export(w io.Writer) error
}

// QuizService contains the quiz and admin use cases.
type QuizService struct {
	sessions SessionRepository
	bank     BankRepository
	editor   BankEditor
	wrong    WrongLedger
	attempts AttemptLedger
	audit    AuditLog

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizService(sessions SessionRepository, bank BankRepository, editor BankEditor, wrong WrongLedger, attempts AttemptLedger, audit AuditLog) *QuizService {
	return &QuizService{
		sessions: sessions,
		bank:     bank,
		editor:   editor,
		wrong:    wrong,
		attempts: attempts,
		audit:    audit,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// QuestionView is a question as shown to the user: options in the session's
// fixed display order, correct label withheld.
type QuestionView struct {
	Chapter string          `json:"chapter"`
	Number  string          `json:"number"`
	Text    string          `json:"text"`
	Options []domain.Option `json:"options"`
}

// SessionView is the renderable snapshot of a session.
type SessionView struct {
	Key       string         `json:"key"`
	User      string         `json:"user"`
	Mode      domain.Mode    `json:"mode"`
	Questions []QuestionView `json:"questions"`
	Answered  int            `json:"answered"`
	Total     int            `json:"total"`
	Completed bool           `json:"completed"`
}

// AnswerOutcome reports the effect of one answer event. Recorded is false
// when the event replayed an already-answered question. LedgerError carries a
// persistence failure without discarding the user's result.
type AnswerOutcome struct {
	Record      domain.AnswerRecord `json:"record"`
	Recorded    bool                `json:"recorded"`
	Answered    int                 `json:"answered"`
	Total       int                 `json:"total"`
	Completed   bool                `json:"completed"`
	Correct     int                 `json:"correct,omitempty"`
	LedgerError string              `json:"ledgerError,omitempty"`
}

// ResultView is the final score with the per-question records.
type ResultView struct {
	Total   int                   `json:"total"`
	Correct int                   `json:"correct"`
	Records []domain.AnswerRecord `json:"records"`
}

// Start builds a new session for the key, replacing any previous one
// wholesale. The question list and per-question option order are fixed here
// and survive every later interaction.
func (s *QuizService) Start(ctx context.Context, sessionKey, user string, mode domain.Mode, chapters []string, count int) (SessionView, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return SessionView{}, domain.ErrUsernameRequired
	}

	bank, err := s.bank.Load(ctx)
	if err != nil {
		return SessionView{}, err
	}

	var wrongKeys []domain.QuestionKey
	if mode == domain.ModeRetry {
		wrongKeys, err = s.wrong.Keys(user)
		if err != nil {
			return SessionView{}, err
		}
	}

	s.rndMu.Lock()
	questions, err := selectQuestions(mode, chapters, count, bank, wrongKeys, s.rnd)
	if err != nil {
		s.rndMu.Unlock()
		return SessionView{}, err
	}
	session := NewSession(sessionKey, user, mode, chapters, count, questions, s.rnd)
	s.rndMu.Unlock()

	s.sessions.Put(sessionKey, session)
	return s.viewOf(sessionKey, session), nil
}

// Answer applies one answer event to a session. Replays of an already
// answered question return the stored record untouched. The completing event
// also triggers the one-time ledger flush: one wrong-answer row per missed
// question (deduplicated against history) and one attempt increment per
// question.
func (s *QuizService) Answer(ctx context.Context, sessionKey string, key domain.QuestionKey, chosenLabel string) (AnswerOutcome, error) {
	session, ok := s.sessions.Get(sessionKey)
	if !ok {
		return AnswerOutcome{}, domain.ErrSessionNotFound
	}

	rec, recorded, err := session.Record(key, chosenLabel)
	if err != nil {
		return AnswerOutcome{}, err
	}

	answered, total := session.Answered()
	outcome := AnswerOutcome{
		Record:    rec,
		Recorded:  recorded,
		Answered:  answered,
		Total:     total,
		Completed: session.AllAnswered(),
	}
	if outcome.Completed {
		if _, correct, err := session.Score(); err == nil {
			outcome.Correct = correct
		}
		if session.markFlushed() {
			if err := s.flushLedgers(session); err != nil {
				outcome.LedgerError = err.Error()
			}
		}
	}
	return outcome, nil
}

// flushLedgers persists the side effects of a completed session. A failure
// is reported to the caller but the in-memory score stands.
func (s *QuizService) flushLedgers(session *Session) error {
	records := session.Records()

	var missed []domain.WrongAnswerEntry
	for _, rec := range records {
		if rec.Correct {
			continue
		}
		missed = append(missed, domain.WrongAnswerEntry{
			User:         rec.User,
			Chapter:      rec.Chapter,
			Number:       rec.Number,
			QuestionText: rec.QuestionText,
			ChosenLabel:  rec.ChosenLabel,
			ChosenText:   rec.ChosenText,
			CorrectLabel: rec.CorrectLabel,
			CorrectText:  rec.CorrectText,
			Explanation:  rec.Explanation,
			RecordedAt:   rec.RecordedAt,
		})
	}

	var errs []error
	if len(missed) > 0 {
		if err := s.wrong.Append(missed); err != nil {
			errs = append(errs, err)
		}
	}
	for _, rec := range records {
		if err := s.attempts.Bump(rec.User, rec.Key()); err != nil {
			errs = append(errs, err)
			break
		}
	}
	return errors.Join(errs...)
}

// Result returns the score once every question has been answered.
func (s *QuizService) Result(_ context.Context, sessionKey string) (ResultView, error) {
	session, ok := s.sessions.Get(sessionKey)
	if !ok {
		return ResultView{}, domain.ErrSessionNotFound
	}
	total, correct, err := session.Score()
	if err != nil {
		return ResultView{}, err
	}
	return ResultView{Total: total, Correct: correct, Records: session.Records()}, nil
}

// Restart re-runs selection with the session's original settings and resets
// all answer and shuffle state.
func (s *QuizService) Restart(ctx context.Context, sessionKey string) (SessionView, error) {
	session, ok := s.sessions.Get(sessionKey)
	if !ok {
		return SessionView{}, domain.ErrSessionNotFound
	}
	chapters, count := session.Settings()
	return s.Start(ctx, sessionKey, session.User(), session.Mode(), chapters, count)
}

// End drops the session.
func (s *QuizService) End(_ context.Context, sessionKey string) {
	s.sessions.Delete(sessionKey)
}

// View returns the current snapshot of a session.
func (s *QuizService) View(_ context.Context, sessionKey string) (SessionView, error) {
	session, ok := s.sessions.Get(sessionKey)
	if !ok {
		return SessionView{}, domain.ErrSessionNotFound
	}
	return s.viewOf(sessionKey, session), nil
}

func (s *QuizService) viewOf(sessionKey string, session *Session) SessionView {
	questions := session.Questions()
	views := make([]QuestionView, len(questions))
	for i, q := range questions {
		views[i] = QuestionView{
			Chapter: q.Chapter,
			Number:  q.Number,
			Text:    q.Text,
			Options: session.ShuffleFor(i),
		}
	}
	answered, total := session.Answered()
	return SessionView{
		Key:       sessionKey,
		User:      session.User(),
		Mode:      session.Mode(),
		Questions: views,
		Answered:  answered,
		Total:     total,
		Completed: session.AllAnswered(),
	}
}

// Search returns bank rows whose question text contains the keyword; an
// empty keyword returns the whole bank.
func (s *QuizService) Search(ctx context.Context, keyword string) ([]domain.QuestionRecord, error) {
	bank, err := s.bank.Load(ctx)
	if err != nil {
		return nil, err
	}
	if keyword == "" {
		return bank, nil
	}
	var out []domain.QuestionRecord
	for _, q := range bank {
		if strings.Contains(q.Text, keyword) {
			out = append(out, q)
		}
	}
	return out, nil
}

// Question returns one bank row by identity key.
func (s *QuizService) Question(ctx context.Context, key domain.QuestionKey) (domain.QuestionRecord, error) {
	bank, err := s.bank.Load(ctx)
	if err != nil {
		return domain.QuestionRecord{}, err
	}
	for _, q := range bank {
		if q.Key() == key {
			return q, nil
		}
	}
	return domain.QuestionRecord{}, domain.ErrQuestionNotFound
}

// UpdateQuestion applies a field edit to one bank row, appends one audit
// entry per changed field, and invalidates the cached bank view. Callers are
// expected to have passed the admin gate; the core never sees the passphrase.
func (s *QuizService) UpdateQuestion(ctx context.Context, key domain.QuestionKey, fields map[string]string) ([]domain.AuditEntry, error) {
	entries, err := s.editor.Update(ctx, key, fields)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		if err := s.audit.Append(entries); err != nil {
			return entries, err
		}
		s.bank.Invalidate()
	}
	return entries, nil
}

// ClearWrong removes one user's wrong-answer rows, or the whole ledger when
// user is empty.
func (s *QuizService) ClearWrong(_ context.Context, user string) error {
	return s.wrong.Clear(user)
}

// ExportWrong streams the wrong-answer ledger as CSV.
func (s *QuizService) ExportWrong(w io.Writer) error { return s.wrong.Export(w) }

// ExportAttempts streams the attempt ledger as CSV.
func (s *QuizService) ExportAttempts(w io.Writer) error { return s.attempts.Export(w) }

// ExportAudit streams the bank edit audit log as CSV.
func (s *QuizService) ExportAudit(w io.Writer) error { return s.audit.Export(w) }
