package postgres

import (
	"context"
	"fmt"

	"quizbank-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// BankLoader loads question rows from Postgres.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) Load(ctx context.Context) ([]domain.QuestionRecord, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT chapter, question_number, question_text,
		       option_a, option_b, option_c, option_d,
		       correct_label, explanation
		FROM questions
		ORDER BY chapter, question_number`)
	if err != nil {
		return nil, fmt.Errorf("load bank: %w", err)
	}
	defer rows.Close()

	var records []domain.QuestionRecord
	for rows.Next() {
		var q domain.QuestionRecord
		var a, b, c, d string
		if err := rows.Scan(&q.Chapter, &q.Number, &q.Text, &a, &b, &c, &d, &q.CorrectLabel, &q.Explanation); err != nil {
			return nil, fmt.Errorf("scan bank row: %w", err)
		}
		q.Options = []domain.Option{
			{Label: "A", Text: a},
			{Label: "B", Text: b},
			{Label: "C", Text: c},
			{Label: "D", Text: d},
		}
		records = append(records, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read bank rows: %w", err)
	}
	return records, nil
}
