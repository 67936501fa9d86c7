package app

import (
	"math/rand"

	"quizbank-service/internal/domain"
)

// selectQuestions builds the ordered question list for one session.
//
// Fresh mode filters the bank by the chapter sections; retry mode keeps only
// questions the user has previously missed (further restricted by chapters
// when any are given). Rows whose correct label is not A-D never enter a
// pool. Sampling is uniform without replacement: every eligible record has
// equal probability and none repeats, with the result capped at
// min(count, pool size).
func selectQuestions(mode domain.Mode, chapters []string, count int, bank []domain.QuestionRecord, wrongKeys []domain.QuestionKey, rnd *rand.Rand) ([]domain.QuestionRecord, error) {
	sections := domain.SectionsFor(chapters)

	var pool []domain.QuestionRecord
	switch mode {
	case domain.ModeRetry:
		if len(wrongKeys) == 0 {
			return nil, domain.ErrNoWrongRecords
		}
		missed := make(map[domain.QuestionKey]struct{}, len(wrongKeys))
		for _, k := range wrongKeys {
			missed[k] = struct{}{}
		}
		for _, q := range bank {
			if !q.HasValidAnswer() {
				continue
			}
			if _, ok := missed[q.Key()]; !ok {
				continue
			}
			if len(chapters) > 0 {
				if _, ok := sections[q.Chapter]; !ok {
					continue
				}
			}
			pool = append(pool, q)
		}
	default:
		for _, q := range bank {
			if !q.HasValidAnswer() {
				continue
			}
			if _, ok := sections[q.Chapter]; !ok {
				continue
			}
			pool = append(pool, q)
		}
	}

	if len(pool) == 0 {
		return nil, domain.ErrEmptyPool
	}

	rnd.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if count > 0 && count < len(pool) {
		pool = pool[:count]
	}
	return pool, nil
}
