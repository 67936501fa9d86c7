package app_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"quizbank-service/internal/app"
	"quizbank-service/internal/domain"
	"quizbank-service/internal/infra/bank"
	"quizbank-service/internal/infra/ledger"
	"quizbank-service/internal/infra/memory"
)

func TestStartCapsAtPoolSize(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	// CH1 covers sections 1-1 (2 questions) and 1-2 (1 question).
	view, err := service.Start(ctx, "s1", "alice", domain.ModeFresh, []string{"CH1"}, 5)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if len(view.Questions) != 3 {
		t.Fatalf("expected 3 questions (pool size), got %d", len(view.Questions))
	}
	seen := make(map[domain.QuestionKey]struct{})
	for _, q := range view.Questions {
		key := domain.QuestionKey{Chapter: q.Chapter, Number: q.Number}
		if _, ok := seen[key]; ok {
			t.Fatalf("question %v selected twice", key)
		}
		seen[key] = struct{}{}
	}
}

func TestStartExcludesInvalidAnswerKeys(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	// Section 3-1 holds only the row whose correct label is not A-D.
	_, err := service.Start(ctx, "s1", "alice", domain.ModeFresh, []string{"CH3"}, 5)
	if err != domain.ErrEmptyPool {
		t.Fatalf("expected empty pool, got %v", err)
	}
}

func TestStartValidation(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	if _, err := service.Start(ctx, "s1", "  ", domain.ModeFresh, []string{"CH1"}, 5); err != domain.ErrUsernameRequired {
		t.Fatalf("expected username error, got %v", err)
	}
	if _, err := service.Start(ctx, "s1", "alice", domain.ModeFresh, nil, 5); err != domain.ErrEmptyPool {
		t.Fatalf("expected empty pool without chapters, got %v", err)
	}
	if _, err := service.Start(ctx, "s1", "alice", domain.ModeRetry, nil, 5); err != domain.ErrNoWrongRecords {
		t.Fatalf("expected no-wrong-records error, got %v", err)
	}
}

func TestAnswerIsIdempotent(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	view, err := service.Start(ctx, "s1", "alice", domain.ModeFresh, []string{"CH1"}, 5)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	q := view.Questions[0]
	key := domain.QuestionKey{Chapter: q.Chapter, Number: q.Number}

	first, err := service.Answer(ctx, "s1", key, "A")
	if err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if !first.Recorded {
		t.Fatalf("expected first answer to be recorded")
	}

	// A replayed event with a different label must not touch the record.
	second, err := service.Answer(ctx, "s1", key, "B")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if second.Recorded {
		t.Fatalf("expected replay to be a no-op")
	}
	if second.Record.ChosenLabel != "A" || second.Record != first.Record {
		t.Fatalf("replay altered the stored record: %+v", second.Record)
	}
	if second.Answered != 1 {
		t.Fatalf("expected 1 answered after replay, got %d", second.Answered)
	}
}

func TestCompletedSessionScoresAndFlushesOnce(t *testing.T) {
	ctx := context.Background()
	service, stores := newTestService(t)

	view, err := service.Start(ctx, "s1", "alice", domain.ModeFresh, []string{"CH1"}, 5)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Answer Q1 and Q3 correctly, Q2 wrong.
	var wrongKey domain.QuestionKey
	for i, q := range view.Questions {
		key := domain.QuestionKey{Chapter: q.Chapter, Number: q.Number}
		label := correctLabelFor(key)
		if i == 1 {
			label = wrongLabelFor(key)
			wrongKey = key
		}
		if _, err := service.Answer(ctx, "s1", key, label); err != nil {
			t.Fatalf("answer %d failed: %v", i, err)
		}
	}

	result, err := service.Result(ctx, "s1")
	if err != nil {
		t.Fatalf("result failed: %v", err)
	}
	if result.Total != 3 || result.Correct != 2 {
		t.Fatalf("expected score (3,2), got (%d,%d)", result.Total, result.Correct)
	}

	keys, err := stores.wrong.Keys("alice")
	if err != nil {
		t.Fatalf("wrong keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != wrongKey {
		t.Fatalf("expected exactly one wrong row for %v, got %v", wrongKey, keys)
	}
	for _, q := range view.Questions {
		key := domain.QuestionKey{Chapter: q.Chapter, Number: q.Number}
		count, err := stores.attempts.Count("alice", key)
		if err != nil {
			t.Fatalf("attempt count: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected attempt count 1 for %v, got %d", key, count)
		}
	}

	// Replaying the final answer must not flush the ledgers again.
	if _, err := service.Answer(ctx, "s1", wrongKey, correctLabelFor(wrongKey)); err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	count, _ := stores.attempts.Count("alice", wrongKey)
	if count != 1 {
		t.Fatalf("expected attempt count still 1 after replay, got %d", count)
	}
}

func TestResultBeforeCompletion(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	if _, err := service.Start(ctx, "s1", "alice", domain.ModeFresh, []string{"CH1"}, 5); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := service.Result(ctx, "s1"); err != domain.ErrSessionNotComplete {
		t.Fatalf("expected not-complete error, got %v", err)
	}
	if _, err := service.Result(ctx, "unknown"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session-not-found, got %v", err)
	}
}

func TestRetryModeDrawsFromWrongLedger(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	// Complete a session answering everything wrong to seed the ledger.
	view, err := service.Start(ctx, "s1", "alice", domain.ModeFresh, []string{"CH1"}, 2)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	for _, q := range view.Questions {
		key := domain.QuestionKey{Chapter: q.Chapter, Number: q.Number}
		if _, err := service.Answer(ctx, "s1", key, wrongLabelFor(key)); err != nil {
			t.Fatalf("answer failed: %v", err)
		}
	}

	// Retry with no chapter filter returns exactly the missed questions.
	retry, err := service.Start(ctx, "s2", "alice", domain.ModeRetry, nil, 10)
	if err != nil {
		t.Fatalf("retry start failed: %v", err)
	}
	if len(retry.Questions) != 2 {
		t.Fatalf("expected 2 retry questions, got %d", len(retry.Questions))
	}
	missed := make(map[domain.QuestionKey]struct{})
	for _, q := range view.Questions {
		missed[domain.QuestionKey{Chapter: q.Chapter, Number: q.Number}] = struct{}{}
	}
	for _, q := range retry.Questions {
		key := domain.QuestionKey{Chapter: q.Chapter, Number: q.Number}
		if _, ok := missed[key]; !ok {
			t.Fatalf("retry question %v was never missed", key)
		}
	}

	// A chapter filter that excludes every missed question empties the pool.
	if _, err := service.Start(ctx, "s3", "alice", domain.ModeRetry, []string{"CH2"}, 10); err != domain.ErrEmptyPool {
		t.Fatalf("expected empty retry pool for CH2, got %v", err)
	}
}

func TestRestartReplacesSessionState(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	view, err := service.Start(ctx, "s1", "alice", domain.ModeFresh, []string{"CH1"}, 5)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	q := view.Questions[0]
	key := domain.QuestionKey{Chapter: q.Chapter, Number: q.Number}
	if _, err := service.Answer(ctx, "s1", key, "A"); err != nil {
		t.Fatalf("answer failed: %v", err)
	}

	restarted, err := service.Restart(ctx, "s1")
	if err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if restarted.Answered != 0 {
		t.Fatalf("expected no answers after restart, got %d", restarted.Answered)
	}
	if restarted.User != "alice" || len(restarted.Questions) != 3 {
		t.Fatalf("expected same settings after restart, got %+v", restarted)
	}

	service.End(ctx, "s1")
	if _, err := service.View(ctx, "s1"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session gone after end, got %v", err)
	}
}

type testStores struct {
	wrong    *ledger.WrongStore
	attempts *ledger.AttemptStore
	audit    *ledger.AuditStore
}

func newTestService(t *testing.T) (*app.QuizService, testStores) {
	t.Helper()
	dir := t.TempDir()
	stores := testStores{
		wrong:    ledger.NewWrongStore(filepath.Join(dir, "wrong_answers.csv")),
		attempts: ledger.NewAttemptStore(filepath.Join(dir, "attempts.csv")),
		audit:    ledger.NewAuditStore(filepath.Join(dir, "bank_audit.csv")),
	}
	repo := bank.NewRepository(memory.NewStaticBankLoader(sampleBank()), time.Minute)
	service := app.NewQuizService(memory.NewSessionStore(), repo, nil, stores.wrong, stores.attempts, stores.audit)
	return service, stores
}

// sampleBank holds CH1 sections 1-1 (2 questions) and 1-2 (1 question), one
// CH2 question, and one row with a broken answer key under 3-1.
func sampleBank() []domain.QuestionRecord {
	return []domain.QuestionRecord{
		makeQuestion("1-1", "1", "A"),
		makeQuestion("1-1", "2", "B"),
		makeQuestion("1-2", "1", "C"),
		makeQuestion("2-1", "1", "D"),
		makeQuestion("3-1", "9", "E"),
	}
}

func makeQuestion(chapter, number, correct string) domain.QuestionRecord {
	return domain.QuestionRecord{
		Chapter: chapter,
		Number:  number,
		Text:    "question " + chapter + "/" + number,
		Options: []domain.Option{
			{Label: "A", Text: "first"},
			{Label: "B", Text: "second"},
			{Label: "C", Text: "third"},
			{Label: "D", Text: "fourth"},
		},
		CorrectLabel: correct,
		Explanation:  "because " + correct,
	}
}

func correctLabelFor(key domain.QuestionKey) string {
	for _, q := range sampleBank() {
		if q.Key() == key {
			return q.CorrectLabel
		}
	}
	return ""
}

func wrongLabelFor(key domain.QuestionKey) string {
	correct := correctLabelFor(key)
	for _, l := range domain.Labels {
		if l != correct {
			return l
		}
	}
	return "A"
}
