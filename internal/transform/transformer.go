package transform

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/cuongbtq/quizforge/internal/domain"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// AnswersPerQuestion is the fixed width of every multiple-choice question
const AnswersPerQuestion = 4

var (
	agreePool = []string{
		"Correct",
		"That's right",
		"True",
		"Yes, that's accurate",
		"Absolutely",
	}
	disagreePool = []string{
		"Incorrect",
		"Not true",
		"False",
		"No, that's wrong",
		"That's not accurate",
	}
	distractorPools = [][]string{
		{
			"Partially true",
			"Only in some cases",
			"It depends on the context",
			"Mostly, with exceptions",
			"Half right",
		},
		{
			"Cannot be determined",
			"Not enough information",
			"Neither, it is a matter of opinion",
			"Both, depending on interpretation",
			"Unclear from the material",
		},
	}
)

// AgreePool returns the phrases used for the "the statement holds" option
func AgreePool() []string { return agreePool }

// DisagreePool returns the phrases used for the "the statement does not hold" option
func DisagreePool() []string { return disagreePool }

// DistractorPools returns the candidate pools for the two wrong-in-kind options
func DistractorPools() [][]string { return distractorPools }

// Transformer converts true/false facts into four-option questions
type Transformer struct {
	logger *slog.Logger
	mu     sync.Mutex
	rng    *rand.Rand
}

// New creates a Transformer with a time-seeded random source
func New(logger *slog.Logger) *Transformer {
	return NewWithSource(logger, rand.NewSource(time.Now().UnixNano()))
}

// NewWithSource creates a Transformer with an explicit random source
func NewWithSource(logger *slog.Logger, src rand.Source) *Transformer {
	return &Transformer{
		logger: logger,
		rng:    rand.New(src),
	}
}

// Transform converts every fact it receives. A shortfall against requested is
// logged as a warning; the caller gets fewer questions instead of an error.
func (t *Transformer) Transform(facts []domain.Fact, requested int) []domain.Question {
	if len(facts) < requested {
		t.logger.Warn("Backend returned fewer facts than requested",
			slog.Int("requested", requested),
			slog.Int("received", len(facts)),
		)
	}

	return lo.Map(facts, func(f domain.Fact, _ int) domain.Question {
		return t.toQuestion(f)
	})
}

func (t *Transformer) toQuestion(f domain.Fact) domain.Question {
	t.mu.Lock()
	defer t.mu.Unlock()

	agree := domain.Answer{ID: uuid.NewString(), Text: pick(t.rng, agreePool)}
	disagree := domain.Answer{ID: uuid.NewString(), Text: pick(t.rng, disagreePool)}

	pool := distractorPools[t.rng.Intn(len(distractorPools))]
	i, j := distinctPair(t.rng, len(pool))
	d1 := domain.Answer{ID: uuid.NewString(), Text: pool[i]}
	d2 := domain.Answer{ID: uuid.NewString(), Text: pool[j]}

	correct, loser := agree, disagree
	if !f.Truth() {
		correct, loser = disagree, agree
	}

	answers := []domain.Answer{agree, disagree, d1, d2}
	shuffle(t.rng, answers)

	truth := truthWord(f.Truth())
	incorrect := map[string]string{
		loser.ID: fmt.Sprintf("This statement is %s. %s", truth, f.Explanation),
		d1.ID:    fmt.Sprintf("The statement is either true or false, with no partial truth. It is %s. %s", truth, f.Explanation),
		d2.ID:    fmt.Sprintf("The statement is either true or false, with no partial truth. It is %s. %s", truth, f.Explanation),
	}

	return domain.Question{
		ID:                    f.ID,
		Text:                  f.Text,
		Answers:               answers,
		CorrectAnswerID:       correct.ID,
		Explanation:           f.Explanation,
		IncorrectExplanations: incorrect,
	}
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}

// distinctPair samples two different indices in [0, n) by rejection
func distinctPair(rng *rand.Rand, n int) (int, int) {
	i := rng.Intn(n)
	j := rng.Intn(n)
	for j == i {
		j = rng.Intn(n)
	}
	return i, j
}

// shuffle is an in-place Fisher-Yates permutation
func shuffle(rng *rand.Rand, answers []domain.Answer) {
	for i := len(answers) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		answers[i], answers[j] = answers[j], answers[i]
	}
}

func truthWord(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
