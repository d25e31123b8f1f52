package assessment

// Wizard tracks an in-progress assessment: the current section and the
// answers selected so far. It lives only while the user is answering; the
// finished Result is what gets persisted.
type Wizard struct {
	q       *Questionnaire
	step    int
	answers Answers
}

// NewWizard starts an empty assessment on the first section.
func NewWizard(q *Questionnaire) *Wizard {
	return &Wizard{q: q, answers: Answers{}}
}

// Step returns the zero-based index of the current section.
func (w *Wizard) Step() int { return w.step }

// Steps returns the number of sections.
func (w *Wizard) Steps() int { return len(w.q.Sections) }

// Section returns the current section.
func (w *Wizard) Section() Section {
	if len(w.q.Sections) == 0 {
		return Section{}
	}
	return w.q.Sections[w.step]
}

// IsLast reports whether the current section is the final one.
func (w *Wizard) IsLast() bool {
	return w.step >= len(w.q.Sections)-1
}

// Next advances to the next section. It returns false on the last section.
func (w *Wizard) Next() bool {
	if w.IsLast() {
		return false
	}
	w.step++
	return true
}

// Prev goes back one section. It returns false on the first section.
func (w *Wizard) Prev() bool {
	if w.step == 0 {
		return false
	}
	w.step--
	return true
}

// Select records option as the answer to questionID, replacing any previous
// answer.
func (w *Wizard) Select(questionID, option string) error {
	if err := CheckAnswers(w.q, Answers{questionID: option}); err != nil {
		return err
	}
	w.answers[questionID] = option
	return nil
}

// Clear removes the answer to questionID.
func (w *Wizard) Clear(questionID string) {
	delete(w.answers, questionID)
}

// SectionComplete reports whether every question of the current section has
// an answer.
func (w *Wizard) SectionComplete() bool {
	for _, question := range w.Section().Questions {
		if _, ok := w.answers[question.ID]; !ok {
			return false
		}
	}
	return true
}

// Answers returns a copy of the answers selected so far.
func (w *Wizard) Answers() Answers {
	return w.answers.Clone()
}

// Score scores the answers selected so far.
func (w *Wizard) Score() (Result, error) {
	return Score(w.q, w.answers)
}
