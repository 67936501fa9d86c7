package ledger

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"

	"quizbank-service/internal/domain"
)

var wrongHeader = []string{
	"user", "chapter", "question_number", "question_text",
	"chosen_label", "chosen_text", "correct_label", "correct_text",
	"explanation", "timestamp",
}

// WrongStore is the wrong-answer ledger: at most one row per
// (user, chapter, question_number), usernames compared case-insensitively.
type WrongStore struct {
	path string
	mu   sync.Mutex
}

func NewWrongStore(path string) *WrongStore {
	return &WrongStore{path: path}
}

// Append merges new missed-question entries into the ledger. Entries whose
// key already has a row (from any earlier session) are skipped, so re-missing
// a question never duplicates it.
func (s *WrongStore) Append(entries []domain.WrongAnswerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readLocked()
	if err != nil {
		return err
	}
	seen := make(map[domain.LedgerKey]struct{}, len(existing))
	for _, e := range existing {
		seen[e.Key()] = struct{}{}
	}

	appended := false
	for _, e := range entries {
		if _, ok := seen[e.Key()]; ok {
			continue
		}
		seen[e.Key()] = struct{}{}
		existing = append(existing, e)
		appended = true
	}
	if !appended {
		return nil
	}
	return s.writeLocked(existing)
}

// Keys returns the user's distinct missed-question keys.
func (s *WrongStore) Keys(user string) ([]domain.QuestionKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	user = strings.ToLower(strings.TrimSpace(user))
	seen := make(map[domain.QuestionKey]struct{})
	var keys []domain.QuestionKey
	for _, e := range entries {
		if strings.ToLower(e.User) != user {
			continue
		}
		k := domain.QuestionKey{Chapter: e.Chapter, Number: e.Number}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys, nil
}

// Clear removes one user's rows (case-insensitive), or deletes the whole
// ledger file when user is empty.
func (s *WrongStore) Clear(user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user = strings.ToLower(strings.TrimSpace(user))
	if user == "" {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}

	entries, err := s.readLocked()
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if strings.ToLower(e.User) != user {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}
	return s.writeLocked(kept)
}

// Export copies the raw ledger file to w.
func (s *WrongStore) Export(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return exportFile(s.path, w)
}

func (s *WrongStore) readLocked() ([]domain.WrongAnswerEntry, error) {
	rows, err := readRows(s.path)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.WrongAnswerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.WrongAnswerEntry{
			User:         cell(row, 0),
			Chapter:      cell(row, 1),
			Number:       cell(row, 2),
			QuestionText: cell(row, 3),
			ChosenLabel:  cell(row, 4),
			ChosenText:   cell(row, 5),
			CorrectLabel: cell(row, 6),
			CorrectText:  cell(row, 7),
			Explanation:  cell(row, 8),
			RecordedAt:   parseTime(cell(row, 9)),
		})
	}
	return entries, nil
}

func (s *WrongStore) writeLocked(entries []domain.WrongAnswerEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.User, e.Chapter, e.Number, e.QuestionText,
			e.ChosenLabel, e.ChosenText, e.CorrectLabel, e.CorrectText,
			e.Explanation, e.RecordedAt.Format(timeLayout),
		})
	}
	return writeRows(s.path, wrongHeader, rows)
}
