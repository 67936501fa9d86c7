package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

const createQuestionsSQL = `
CREATE TABLE IF NOT EXISTS questions (
	chapter         text NOT NULL,
	question_number text NOT NULL,
	question_text   text NOT NULL DEFAULT '',
	option_a        text NOT NULL DEFAULT '',
	option_b        text NOT NULL DEFAULT '',
	option_c        text NOT NULL DEFAULT '',
	option_d        text NOT NULL DEFAULT '',
	correct_label   text NOT NULL DEFAULT '',
	explanation     text NOT NULL DEFAULT '',
	PRIMARY KEY (chapter, question_number)
)`

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createQuestionsSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS questions`)
			return err
		},
	)
}
