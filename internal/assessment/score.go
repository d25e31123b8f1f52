// Package assessment implements vendor risk questionnaires: loading and
// validating the static configuration, scoring answers into compliance and
// risk scores, the step-by-step answering wizard, and storage of finalized
// assessments.
package assessment

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrEmptyQuestionnaire means the questionnaire has no scoreable capacity.
	ErrEmptyQuestionnaire = errors.New("questionnaire has no questions")
	// ErrUnknownQuestion means an answer references a question that does not exist.
	ErrUnknownQuestion = errors.New("unknown question")
	// ErrUnknownOption means an answer is not one of the question's options.
	ErrUnknownOption = errors.New("answer is not a configured option")
)

// Score converts answers into a 0-100 compliance score and its complementary
// risk score.
//
// Choosing option i of a question with n options earns weight*(n-i) points;
// the compliance score is the rounded percentage of earned points over the
// maximum. Unanswered questions earn nothing. Answers that reference unknown
// questions or options are rejected.
func Score(q *Questionnaire, answers Answers) (Result, error) {
	if err := CheckAnswers(q, answers); err != nil {
		return Result{}, err
	}

	res := Result{Sections: make([]SectionScore, 0, len(q.Sections))}
	for _, s := range q.Sections {
		ss := SectionScore{Title: s.Title, Questions: len(s.Questions)}
		for _, question := range s.Questions {
			ss.MaxPoints += question.MaxPoints()

			answer, ok := answers[question.ID]
			if !ok {
				continue
			}
			if question.OptionIndex(answer) < 0 {
				continue
			}
			ss.Points += question.Points(answer)
			ss.Answered++
		}
		ss.Compliance = percentage(ss.Points, ss.MaxPoints)

		res.TotalPoints += ss.Points
		res.MaxPoints += ss.MaxPoints
		res.Answered += ss.Answered
		res.Questions += ss.Questions
		res.Sections = append(res.Sections, ss)
	}

	if res.MaxPoints == 0 {
		return Result{}, ErrEmptyQuestionnaire
	}

	res.ComplianceScore = percentage(res.TotalPoints, res.MaxPoints)
	res.RiskScore = 100 - res.ComplianceScore
	res.Posture = PostureFor(res.ComplianceScore)
	return res, nil
}

// CheckAnswers verifies that every answer names a known question and one of
// its configured options.
func CheckAnswers(q *Questionnaire, answers Answers) error {
	for id, answer := range answers {
		question, ok := q.Question(id)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownQuestion, id)
		}
		if question.OptionIndex(answer) < 0 {
			return fmt.Errorf("%w: question %q, answer %q", ErrUnknownOption, id, answer)
		}
	}
	return nil
}

func percentage(points, max int) int {
	if max == 0 {
		return 0
	}
	return int(math.Round(100 * float64(points) / float64(max)))
}
