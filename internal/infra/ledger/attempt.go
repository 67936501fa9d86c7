package ledger

import (
	"io"
	"strconv"
	"sync"

	"quizbank-service/internal/domain"
)

var attemptHeader = []string{"user", "chapter", "question_number", "count"}

// AttemptStore counts completed answer events per (user, chapter,
// question_number); counts only ever grow, by exactly one per event.
type AttemptStore struct {
	path string
	mu   sync.Mutex
}

func NewAttemptStore(path string) *AttemptStore {
	return &AttemptStore{path: path}
}

// Bump increments the row for the key in place, or inserts it with count 1.
func (s *AttemptStore) Bump(user string, key domain.QuestionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readLocked()
	if err != nil {
		return err
	}

	target := domain.LedgerKeyFor(user, key)
	found := false
	for i := range entries {
		if entries[i].Key() == target {
			entries[i].Count++
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, domain.AttemptEntry{
			User:    user,
			Chapter: key.Chapter,
			Number:  key.Number,
			Count:   1,
		})
	}
	return s.writeLocked(entries)
}

// Count returns the stored count for the key, zero when absent.
func (s *AttemptStore) Count(user string, key domain.QuestionKey) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readLocked()
	if err != nil {
		return 0, err
	}
	target := domain.LedgerKeyFor(user, key)
	for _, e := range entries {
		if e.Key() == target {
			return e.Count, nil
		}
	}
	return 0, nil
}

// Export copies the raw ledger file to w.
func (s *AttemptStore) Export(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return exportFile(s.path, w)
}

func (s *AttemptStore) readLocked() ([]domain.AttemptEntry, error) {
	rows, err := readRows(s.path)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.AttemptEntry, 0, len(rows))
	for _, row := range rows {
		count, _ := strconv.Atoi(cell(row, 3))
		entries = append(entries, domain.AttemptEntry{
			User:    cell(row, 0),
			Chapter: cell(row, 1),
			Number:  cell(row, 2),
			Count:   count,
		})
	}
	return entries, nil
}

func (s *AttemptStore) writeLocked(entries []domain.AttemptEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.User, e.Chapter, e.Number, strconv.Itoa(e.Count)})
	}
	return writeRows(s.path, attemptHeader, rows)
}
