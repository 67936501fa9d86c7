package memory

import (
	"context"

	"quizbank-service/internal/domain"
)

// StaticBankLoader serves a fixed set of question rows (useful for tests/demos).
type StaticBankLoader struct {
	records []domain.QuestionRecord
}

func NewStaticBankLoader(records []domain.QuestionRecord) *StaticBankLoader {
	return &StaticBankLoader{records: records}
}

func (l *StaticBankLoader) Load(_ context.Context) ([]domain.QuestionRecord, error) {
	out := make([]domain.QuestionRecord, len(l.records))
	copy(out, l.records)
	return out, nil
}
