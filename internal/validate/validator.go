package validate

import (
	"fmt"
	"log/slog"

	"github.com/cuongbtq/quizforge/internal/domain"
	"github.com/samber/lo"
)

const (
	stageFacts     = "true/false"
	stageQuestions = "multiple-choice"
)

// Outcome describes a successful multiple-choice validation
type Outcome struct {
	// Repaired is true when missing incorrect explanations were filled in
	Repaired bool
	// RepairedQuestions lists the ids of questions that were modified
	RepairedQuestions []string
}

// Validator checks both intermediate and final quiz shapes
type Validator struct {
	logger *slog.Logger
}

// New creates a Validator
func New(logger *slog.Logger) *Validator {
	return &Validator{logger: logger}
}

// ValidateFacts checks the backend's true/false output. Fewer facts than
// requested is logged, not rejected.
func (v *Validator) ValidateFacts(facts []domain.Fact, requested int) error {
	if len(facts) == 0 {
		return &domain.ValidationError{Stage: stageFacts, Index: -1, Reason: "no facts produced"}
	}

	for i, f := range facts {
		switch {
		case f.ID == "":
			return &domain.ValidationError{Stage: stageFacts, Index: i, Reason: "missing id"}
		case f.Text == "":
			return &domain.ValidationError{Stage: stageFacts, Index: i, Reason: "missing text"}
		case f.IsTrue == nil:
			return &domain.ValidationError{Stage: stageFacts, Index: i, Reason: "missing boolean isTrue"}
		case f.Explanation == "":
			return &domain.ValidationError{Stage: stageFacts, Index: i, Reason: "missing explanation"}
		}
	}

	if len(facts) < requested {
		v.logger.Warn("Fewer facts than requested",
			slog.Int("requested", requested),
			slog.Int("received", len(facts)),
		)
	}
	return nil
}

// ValidateQuestions checks the final multiple-choice shape. Missing incorrect
// explanations are the only defect repaired, in place; everything else fails.
func (v *Validator) ValidateQuestions(questions []domain.Question) (Outcome, error) {
	var outcome Outcome

	if len(questions) == 0 {
		return outcome, &domain.ValidationError{Stage: stageQuestions, Index: -1, Reason: "no questions"}
	}

	for i := range questions {
		q := &questions[i]
		if err := checkQuestion(q, i); err != nil {
			return Outcome{}, err
		}

		if repairExplanations(q) {
			outcome.Repaired = true
			outcome.RepairedQuestions = append(outcome.RepairedQuestions, q.ID)
		}
	}

	if outcome.Repaired {
		v.logger.Info("Filled missing incorrect explanations",
			slog.Int("questions", len(outcome.RepairedQuestions)),
		)
	}
	return outcome, nil
}

func checkQuestion(q *domain.Question, i int) error {
	fail := func(reason string) error {
		return &domain.ValidationError{Stage: stageQuestions, Index: i, Reason: reason}
	}

	switch {
	case q.ID == "":
		return fail("missing id")
	case q.Text == "":
		return fail("missing text")
	case q.Explanation == "":
		return fail("missing explanation")
	case q.CorrectAnswerID == "":
		return fail("missing correctAnswerId")
	case len(q.Answers) != 4:
		return fail(fmt.Sprintf("expected 4 answers, got %d", len(q.Answers)))
	}

	for j, a := range q.Answers {
		if a.ID == "" || a.Text == "" {
			return fail(fmt.Sprintf("answer %d is missing id or text", j))
		}
	}

	if _, ok := q.CorrectAnswer(); !ok {
		return fail("correctAnswerId does not match any answer")
	}
	return nil
}

func repairExplanations(q *domain.Question) bool {
	correct, _ := q.CorrectAnswer()
	wrong := lo.Filter(q.Answers, func(a domain.Answer, _ int) bool {
		return a.ID != q.CorrectAnswerID
	})

	repaired := false
	for _, a := range wrong {
		if q.IncorrectExplanations[a.ID] != "" {
			continue
		}
		if q.IncorrectExplanations == nil {
			q.IncorrectExplanations = make(map[string]string, len(wrong))
		}
		q.IncorrectExplanations[a.ID] = fmt.Sprintf("This answer is incorrect. The correct answer is %q.", correct.Text)
		repaired = true
	}
	return repaired
}
