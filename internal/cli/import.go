package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"quizbank-service/internal/config"
	pgbank "quizbank-service/internal/infra/postgres"
	"quizbank-service/internal/infra/xlsx"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewImportCmd loads the xlsx question bank and upserts its rows into
// Postgres.
func NewImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Import the xlsx question bank into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), *configPath)
		},
	}
}

func runImport(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Bank.PostgresURL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	path := cfg.Bank.Path
	if path == "" {
		path = defaultBankPath
	}
	sheet := cfg.Bank.Sheet
	if sheet == "" {
		sheet = defaultBankSheet
	}
	records, err := xlsx.NewBank(path, sheet).Load(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("bank file %s has no question rows", path)
	}

	rows := make([]pgbank.QuestionRow, 0, len(records))
	for _, q := range records {
		rows = append(rows, pgbank.RowFromRecord(q))
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Bank.PostgresURL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	_, err = db.NewInsert().
		Model(&rows).
		On("CONFLICT (chapter, question_number) DO UPDATE").
		Set("question_text = EXCLUDED.question_text").
		Set("option_a = EXCLUDED.option_a").
		Set("option_b = EXCLUDED.option_b").
		Set("option_c = EXCLUDED.option_c").
		Set("option_d = EXCLUDED.option_d").
		Set("correct_label = EXCLUDED.correct_label").
		Set("explanation = EXCLUDED.explanation").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert questions: %w", err)
	}
	log.Printf("imported %d questions from %s", len(rows), path)
	return nil
}
