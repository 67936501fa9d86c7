// Package xlsx reads and edits the spreadsheet question bank.
package xlsx

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"quizbank-service/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Bank column layout, by fixed position after a single header row.
const (
	colChapter = iota
	colNumber
	colText
	colOptionA
	colOptionB
	colOptionC
	colOptionD
	colReserved
	colCorrect
	colExplanation

	columnCount = colExplanation + 1
)

// Editable field names accepted by Update.
const (
	FieldOptionA     = "A"
	FieldOptionB     = "B"
	FieldOptionC     = "C"
	FieldOptionD     = "D"
	FieldExplanation = "explanation"
)

var fieldColumns = map[string]int{
	FieldOptionA:     colOptionA,
	FieldOptionB:     colOptionB,
	FieldOptionC:     colOptionC,
	FieldOptionD:     colOptionD,
	FieldExplanation: colExplanation,
}

// Bank loads question rows from an xlsx workbook and applies admin edits in
// place. A single mutex serializes file access: the workbook is shared by
// every session, so reads must never observe a half-written save.
type Bank struct {
	path  string
	sheet string
	now   func() time.Time
	mu    sync.Mutex
}

func NewBank(path, sheet string) *Bank {
	return &Bank{path: path, sheet: sheet, now: time.Now}
}

// Load reads every question row in sheet order. Rows with a blank chapter or
// number are skipped; short rows are padded so trailing empty cells (which
// excelize trims) do not fail the schema.
func (b *Bank) Load(_ context.Context) ([]domain.QuestionRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := excelize.OpenFile(b.path)
	if err != nil {
		return nil, fmt.Errorf("open bank %s: %w", b.path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(b.sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", b.sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("bank sheet %s is empty", b.sheet)
	}
	if len(rows[0]) < columnCount {
		return nil, fmt.Errorf("bank header has %d columns, need %d", len(rows[0]), columnCount)
	}

	records := make([]domain.QuestionRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		row = pad(row, columnCount)
		chapter := strings.TrimSpace(row[colChapter])
		number := strings.TrimSpace(row[colNumber])
		if chapter == "" || number == "" {
			continue
		}
		records = append(records, domain.QuestionRecord{
			Chapter: chapter,
			Number:  number,
			Text:    row[colText],
			Options: []domain.Option{
				{Label: "A", Text: row[colOptionA]},
				{Label: "B", Text: row[colOptionB]},
				{Label: "C", Text: row[colOptionC]},
				{Label: "D", Text: row[colOptionD]},
			},
			CorrectLabel: strings.TrimSpace(row[colCorrect]),
			Explanation:  row[colExplanation],
		})
	}
	return records, nil
}

// Update rewrites the changed cells of one row, located by exact string match
// on the chapter and number columns, and reports one audit entry per field
// whose value actually changed. Unknown field names are rejected.
func (b *Bank) Update(_ context.Context, key domain.QuestionKey, fields map[string]string) ([]domain.AuditEntry, error) {
	for name := range fields {
		if _, ok := fieldColumns[name]; !ok {
			return nil, fmt.Errorf("field %q is not editable", name)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := excelize.OpenFile(b.path)
	if err != nil {
		return nil, fmt.Errorf("open bank %s: %w", b.path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(b.sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", b.sheet, err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrQuestionNotFound
	}

	rowIndex := -1
	for i, row := range rows[1:] {
		row = pad(row, columnCount)
		if strings.TrimSpace(row[colChapter]) == key.Chapter && strings.TrimSpace(row[colNumber]) == key.Number {
			rowIndex = i + 1
			break
		}
	}
	if rowIndex < 0 {
		return nil, domain.ErrQuestionNotFound
	}

	row := pad(rows[rowIndex], columnCount)
	at := b.now()
	var entries []domain.AuditEntry
	for _, name := range []string{FieldOptionA, FieldOptionB, FieldOptionC, FieldOptionD, FieldExplanation} {
		value, ok := fields[name]
		if !ok {
			continue
		}
		col := fieldColumns[name]
		if row[col] == value {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, rowIndex+1)
		if err != nil {
			return nil, fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetCellStr(b.sheet, cell, value); err != nil {
			return nil, fmt.Errorf("set cell %s: %w", cell, err)
		}
		entries = append(entries, domain.AuditEntry{
			At:       at,
			Chapter:  key.Chapter,
			Number:   key.Number,
			Field:    name,
			OldValue: row[col],
			NewValue: value,
		})
	}

	if len(entries) == 0 {
		return nil, nil
	}
	if err := f.Save(); err != nil {
		return nil, fmt.Errorf("save bank %s: %w", b.path, err)
	}
	return entries, nil
}

func pad(row []string, n int) []string {
	if len(row) >= n {
		return row
	}
	padded := make([]string, n)
	copy(padded, row)
	return padded
}
