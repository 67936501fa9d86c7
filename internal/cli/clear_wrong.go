package cli

import (
	"log"
	"path/filepath"

	"quizbank-service/internal/config"
	"quizbank-service/internal/infra/ledger"
	"github.com/spf13/cobra"
)

// NewClearWrongCmd removes wrong-answer records from the shell: one user's
// rows with --user, or the whole ledger without it.
func NewClearWrongCmd(configPath *string) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "clear-wrong",
		Short: "Clear wrong-answer records (per user, or all)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			dir := cfg.Ledger.Dir
			if dir == "" {
				dir = defaultLedgerDir
			}
			store := ledger.NewWrongStore(filepath.Join(dir, "wrong_answers.csv"))
			if err := store.Clear(user); err != nil {
				return err
			}
			if user == "" {
				log.Printf("wrong-answer ledger deleted")
			} else {
				log.Printf("wrong-answer records cleared for %s", user)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "only clear this user's records")
	return cmd
}
