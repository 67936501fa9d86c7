package ledger

import (
	"io"
	"sync"

	"quizbank-service/internal/domain"
)

var auditHeader = []string{"timestamp", "chapter", "question_number", "field", "old_value", "new_value"}

// AuditStore is the append-only change log for bank edits.
type AuditStore struct {
	path string
	mu   sync.Mutex
}

func NewAuditStore(path string) *AuditStore {
	return &AuditStore{path: path}
}

// Append adds one row per entry; existing rows are never rewritten.
func (s *AuditStore) Append(entries []domain.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := readRows(s.path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		rows = append(rows, []string{
			e.At.Format(timeLayout), e.Chapter, e.Number, e.Field, e.OldValue, e.NewValue,
		})
	}
	return writeRows(s.path, auditHeader, rows)
}

// Entries returns the full change log in file order.
func (s *AuditStore) Entries() ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := readRows(s.path)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.AuditEntry{
			At:       parseTime(cell(row, 0)),
			Chapter:  cell(row, 1),
			Number:   cell(row, 2),
			Field:    cell(row, 3),
			OldValue: cell(row, 4),
			NewValue: cell(row, 5),
		})
	}
	return entries, nil
}

// Export copies the raw log file to w.
func (s *AuditStore) Export(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return exportFile(s.path, w)
}
