package postgres

import (
	"github.com/uptrace/bun"

	"quizbank-service/internal/domain"
)

// QuestionRow is the bun mapping for the questions table, used by the xlsx
// import path.
type QuestionRow struct {
	bun.BaseModel `bun:"table:questions"`

	Chapter      string `bun:"chapter,pk"`
	Number       string `bun:"question_number,pk"`
	Text         string `bun:"question_text"`
	OptionA      string `bun:"option_a"`
	OptionB      string `bun:"option_b"`
	OptionC      string `bun:"option_c"`
	OptionD      string `bun:"option_d"`
	CorrectLabel string `bun:"correct_label"`
	Explanation  string `bun:"explanation"`
}

// RowFromRecord converts a bank record into its table row.
func RowFromRecord(q domain.QuestionRecord) QuestionRow {
	return QuestionRow{
		Chapter:      q.Chapter,
		Number:       q.Number,
		Text:         q.Text,
		OptionA:      q.OptionText("A"),
		OptionB:      q.OptionText("B"),
		OptionC:      q.OptionText("C"),
		OptionD:      q.OptionText("D"),
		CorrectLabel: q.CorrectLabel,
		Explanation:  q.Explanation,
	}
}
