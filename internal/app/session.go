package app

import (
	"math/rand"
	"sync"
	"time"

	"quizbank-service/internal/domain"
)

// Session is the persistent state of one user's quiz attempt. Every
// interaction is applied through its methods; handlers re-read state here
// instead of rebuilding it, so a repeated event cannot overwrite or
// double-count a finalized answer.
type Session struct {
	key       string
	user      string
	mode      domain.Mode
	chapters  []string
	count     int
	createdAt time.Time
	now       func() time.Time

	mu        sync.RWMutex
	questions []domain.QuestionRecord
	shuffles  [][]domain.Option
	answers   map[domain.QuestionKey]domain.AnswerRecord
	flushed   bool
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(key, user string, mode domain.Mode, chapters []string, count int, questions []domain.QuestionRecord, rnd *rand.Rand) *Session {
	return newSessionWithClock(key, user, mode, chapters, count, questions, rnd, time.Now)
}

// newSessionWithClock allows deterministic timestamps in tests.
func newSessionWithClock(key, user string, mode domain.Mode, chapters []string, count int, questions []domain.QuestionRecord, rnd *rand.Rand, now func() time.Time) *Session {
	s := &Session{
		key:       key,
		user:      user,
		mode:      mode,
		chapters:  append([]string(nil), chapters...),
		count:     count,
		createdAt: now(),
		now:       now,
		answers:   make(map[domain.QuestionKey]domain.AnswerRecord),
	}
	s.resetLocked(questions, rnd)
	return s
}

// resetLocked installs a fresh question list: answers are dropped and every
// question gets its display order fixed once. Callers must hold mu or have
// exclusive access.
func (s *Session) resetLocked(questions []domain.QuestionRecord, rnd *rand.Rand) {
	s.questions = questions
	s.shuffles = make([][]domain.Option, len(questions))
	for i, q := range questions {
		opts := make([]domain.Option, len(q.Options))
		copy(opts, q.Options)
		rnd.Shuffle(len(opts), func(a, b int) {
			opts[a], opts[b] = opts[b], opts[a]
		})
		s.shuffles[i] = opts
	}
	s.answers = make(map[domain.QuestionKey]domain.AnswerRecord)
	s.flushed = false
}

// Restart replaces the question list wholesale and re-enters the unanswered
// state with the same session settings.
func (s *Session) Restart(questions []domain.QuestionRecord, rnd *rand.Rand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked(questions, rnd)
}

// User returns the session's username.
func (s *Session) User() string { return s.user }

// Mode returns the selection mode the session was started with.
func (s *Session) Mode() domain.Mode { return s.mode }

// Settings returns the chapter filter and requested count used at start.
func (s *Session) Settings() ([]string, int) {
	return append([]string(nil), s.chapters...), s.count
}

// Questions returns the session's ordered question list.
func (s *Session) Questions() []domain.QuestionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuestionRecord, len(s.questions))
	copy(out, s.questions)
	return out
}

// ShuffleFor returns the fixed display order for one question. Repeated calls
// return the identical permutation for the session's lifetime, so the screen
// never reorders options between interactions.
func (s *Session) ShuffleFor(index int) []domain.Option {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.shuffles) {
		return nil
	}
	out := make([]domain.Option, len(s.shuffles[index]))
	copy(out, s.shuffles[index])
	return out
}

// Record captures the user's choice for one question. If an answer already
// exists for the key the stored record is returned unchanged and recorded is
// false: replays of the same interaction are absorbed, never re-derived.
func (s *Session) Record(key domain.QuestionKey, chosenLabel string) (rec domain.AnswerRecord, recorded bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.answers[key]; ok {
		return existing, false, nil
	}

	var question *domain.QuestionRecord
	for i := range s.questions {
		if s.questions[i].Key() == key {
			question = &s.questions[i]
			break
		}
	}
	if question == nil {
		return domain.AnswerRecord{}, false, domain.ErrQuestionNotFound
	}

	chosenText := ""
	found := false
	for _, opt := range question.Options {
		if opt.Label == chosenLabel {
			chosenText = opt.Text
			found = true
			break
		}
	}
	if !found {
		return domain.AnswerRecord{}, false, domain.ErrChoiceNotFound
	}

	rec = domain.AnswerRecord{
		User:         s.user,
		Chapter:      question.Chapter,
		Number:       question.Number,
		QuestionText: question.Text,
		ChosenLabel:  chosenLabel,
		ChosenText:   chosenText,
		CorrectLabel: question.CorrectLabel,
		CorrectText:  question.OptionText(question.CorrectLabel),
		Explanation:  question.Explanation,
		Correct:      chosenLabel == question.CorrectLabel,
		RecordedAt:   s.now(),
	}
	s.answers[key] = rec
	return rec, true, nil
}

// AllAnswered reports whether every question in the session has a recorded
// answer.
func (s *Session) AllAnswered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allAnsweredLocked()
}

func (s *Session) allAnsweredLocked() bool {
	return len(s.questions) > 0 && len(s.answers) == len(s.questions)
}

// Answered returns the number of recorded answers and the question total.
func (s *Session) Answered() (answered, total int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.answers), len(s.questions)
}

// Score computes (total, correct) once every question is answered; it is
// never partial.
func (s *Session) Score() (total, correct int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.allAnsweredLocked() {
		return 0, 0, domain.ErrSessionNotComplete
	}
	for _, rec := range s.answers {
		if rec.Correct {
			correct++
		}
	}
	return len(s.questions), correct, nil
}

// Records returns the recorded answers in question order.
func (s *Session) Records() []domain.AnswerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AnswerRecord, 0, len(s.answers))
	for _, q := range s.questions {
		if rec, ok := s.answers[q.Key()]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// markFlushed flips the one-shot ledger flag; it returns true only for the
// first caller after completion, so ledgers are written exactly once per
// completed session no matter how many events replay.
func (s *Session) markFlushed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.allAnsweredLocked() || s.flushed {
		return false
	}
	s.flushed = true
	return true
}
