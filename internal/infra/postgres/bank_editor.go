package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quizbank-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// editable maps field names accepted by Update to their table columns.
var editable = map[string]string{
	"A":           "option_a",
	"B":           "option_b",
	"C":           "option_c",
	"D":           "option_d",
	"explanation": "explanation",
}

// BankEditor applies admin edits to the Postgres-backed bank. The row is
// locked for the duration of the edit so the audit diff matches what was
// actually replaced.
type BankEditor struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewBankEditor(pool *pgxpool.Pool) *BankEditor {
	return &BankEditor{pool: pool, now: time.Now}
}

func (e *BankEditor) Update(ctx context.Context, key domain.QuestionKey, fields map[string]string) ([]domain.AuditEntry, error) {
	for name := range fields {
		if _, ok := editable[name]; !ok {
			return nil, fmt.Errorf("field %q is not editable", name)
		}
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin edit: %w", err)
	}
	defer tx.Rollback(ctx)

	var a, b, c, d, explanation string
	err = tx.QueryRow(ctx, `
		SELECT option_a, option_b, option_c, option_d, explanation
		FROM questions
		WHERE chapter=$1 AND question_number=$2
		FOR UPDATE`, key.Chapter, key.Number).Scan(&a, &b, &c, &d, &explanation)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read question: %w", err)
	}

	current := map[string]string{"A": a, "B": b, "C": c, "D": d, "explanation": explanation}
	at := e.now()
	var entries []domain.AuditEntry
	for _, name := range []string{"A", "B", "C", "D", "explanation"} {
		value, ok := fields[name]
		if !ok || current[name] == value {
			continue
		}
		query := fmt.Sprintf(`UPDATE questions SET %s=$1 WHERE chapter=$2 AND question_number=$3`, editable[name])
		if _, err := tx.Exec(ctx, query, value, key.Chapter, key.Number); err != nil {
			return nil, fmt.Errorf("update %s: %w", name, err)
		}
		entries = append(entries, domain.AuditEntry{
			At:       at,
			Chapter:  key.Chapter,
			Number:   key.Number,
			Field:    name,
			OldValue: current[name],
			NewValue: value,
		})
	}

	if len(entries) == 0 {
		return nil, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit edit: %w", err)
	}
	return entries, nil
}
