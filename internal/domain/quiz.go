package domain

import "time"

// Answer is one option of a multiple-choice question
type Answer struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is a playable multiple-choice question with exactly four answers
type Question struct {
	ID                    string            `json:"id"`
	Text                  string            `json:"text"`
	Answers               []Answer          `json:"answers"`
	CorrectAnswerID       string            `json:"correctAnswerId"`
	Explanation           string            `json:"explanation"`
	IncorrectExplanations map[string]string `json:"incorrectExplanations,omitempty"`
}

// CorrectAnswer returns the answer referenced by CorrectAnswerID
func (q *Question) CorrectAnswer() (Answer, bool) {
	for _, a := range q.Answers {
		if a.ID == q.CorrectAnswerID {
			return a, true
		}
	}
	return Answer{}, false
}

// StoredTime is t in UTC at the microsecond precision of the durable store.
// Keyset cursors compare these values, so every copy of a quiz must agree.
func StoredTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Quiz is a titled, owned list of questions
type Quiz struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Difficulty Difficulty `json:"difficulty"`
	CreatedAt  time.Time  `json:"created_at"`
	UserID     string     `json:"user_id"`
	Questions  []Question `json:"questions"`
}

// Fact is the true/false statement produced by the generation backend
type Fact struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	IsTrue      *bool  `json:"isTrue"`
	Explanation string `json:"explanation"`
}

// Truth returns the fact's truth value; callers validate IsTrue first
func (f Fact) Truth() bool {
	return f.IsTrue != nil && *f.IsTrue
}
