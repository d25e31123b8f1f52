package assessment

import (
	"errors"
	"fmt"
)

// Question looks up a question by ID across all sections.
func (q *Questionnaire) Question(id string) (Question, bool) {
	for _, s := range q.Sections {
		for _, question := range s.Questions {
			if question.ID == id {
				return question, true
			}
		}
	}
	return Question{}, false
}

// QuestionCount returns the number of questions across all sections.
func (q *Questionnaire) QuestionCount() int {
	n := 0
	for _, s := range q.Sections {
		n += len(s.Questions)
	}
	return n
}

// Validate checks the structure scoring relies on and returns
// every violation found.
func (q *Questionnaire) Validate() error {
	var errs []error
	if q.ID == "" {
		errs = append(errs, errors.New("questionnaire id is required"))
	}
	if q.QuestionCount() == 0 {
		errs = append(errs, ErrEmptyQuestionnaire)
	}

	seen := make(map[string]bool)
	for si, s := range q.Sections {
		if s.Title == "" {
			errs = append(errs, fmt.Errorf("section %d: title is required", si))
		}
		for _, question := range s.Questions {
			errs = append(errs, validateQuestion(s.Title, question, seen)...)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("questionnaire %q: %w", q.ID, errors.Join(errs...))
}

func validateQuestion(section string, question Question, seen map[string]bool) []error {
	var errs []error
	where := fmt.Sprintf("section %q question %q", section, question.ID)

	switch {
	case question.ID == "":
		errs = append(errs, fmt.Errorf("section %q: question id is required", section))
	case seen[question.ID]:
		errs = append(errs, fmt.Errorf("%s: duplicate id", where))
	default:
		seen[question.ID] = true
	}
	if question.Text == "" {
		errs = append(errs, fmt.Errorf("%s: text is required", where))
	}
	if question.Weight <= 0 {
		errs = append(errs, fmt.Errorf("%s: weight must be positive, got %d", where, question.Weight))
	}
	if len(question.Options) < 2 {
		errs = append(errs, fmt.Errorf("%s: at least two options are required", where))
	}

	options := make(map[string]bool, len(question.Options))
	for _, o := range question.Options {
		if o == "" {
			errs = append(errs, fmt.Errorf("%s: empty option", where))
			continue
		}
		if options[o] {
			errs = append(errs, fmt.Errorf("%s: duplicate option %q", where, o))
		}
		options[o] = true
	}
	return errs
}
