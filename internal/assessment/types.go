package assessment

import "time"

// Questionnaire is a static, weighted, multi-section multiple-choice
// structure used to evaluate a third-party vendor. It is loaded from YAML
// and never mutated after loading.
type Questionnaire struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Version     string    `yaml:"version" json:"version,omitempty"`
	Description string    `yaml:"description" json:"description,omitempty"`
	Sections    []Section `yaml:"sections" json:"sections"`
}

// Section is a named group of questions (e.g. "Information Security").
type Section struct {
	Title     string     `yaml:"title" json:"title"`
	Questions []Question `yaml:"questions" json:"questions"`
}

// Question is a weighted multiple-choice question. Options are ordered from
// the most favorable answer to the least favorable one.
type Question struct {
	ID      string   `yaml:"id" json:"id"`
	Text    string   `yaml:"text" json:"text"`
	Weight  int      `yaml:"weight" json:"weight"`
	Options []string `yaml:"options" json:"options"`
}

// MaxPoints is the contribution of the question when its first option is chosen.
func (q Question) MaxPoints() int {
	return q.Weight * len(q.Options)
}

// Points is what answering option earns: weight times the options ranked at
// or below it. Unknown options earn nothing.
func (q Question) Points(option string) int {
	idx := q.OptionIndex(option)
	if idx < 0 {
		return 0
	}
	return q.Weight * (len(q.Options) - idx)
}

// OptionIndex returns the position of option in the question's options, or -1.
func (q Question) OptionIndex(option string) int {
	for i, o := range q.Options {
		if o == option {
			return i
		}
	}
	return -1
}

// Answers maps a question ID to the selected option. Missing entries are
// unanswered questions.
type Answers map[string]string

// Clone returns an independent copy of the answers.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Posture is a coarse risk rating derived from the compliance score.
type Posture string

const (
	PostureLow      Posture = "low"
	PostureModerate Posture = "moderate"
	PostureHigh     Posture = "high"
	PostureCritical Posture = "critical"
)

// PostureFor maps a compliance score to a risk posture.
func PostureFor(compliance int) Posture {
	switch {
	case compliance >= 90:
		return PostureLow
	case compliance >= 70:
		return PostureModerate
	case compliance >= 50:
		return PostureHigh
	default:
		return PostureCritical
	}
}

// SectionScore is the scoring breakdown for one section.
type SectionScore struct {
	Title      string `json:"title"`
	Points     int    `json:"points"`
	MaxPoints  int    `json:"max_points"`
	Compliance int    `json:"compliance"`
	Answered   int    `json:"answered"`
	Questions  int    `json:"questions"`
}

// Result is the outcome of scoring a set of answers.
type Result struct {
	ComplianceScore int            `json:"compliance_score"`
	RiskScore       int            `json:"risk_score"`
	Posture         Posture        `json:"posture"`
	TotalPoints     int            `json:"total_points"`
	MaxPoints       int            `json:"max_points"`
	Answered        int            `json:"answered"`
	Questions       int            `json:"questions"`
	Sections        []SectionScore `json:"sections"`
}

// Record is a finalized, persisted assessment of a vendor.
type Record struct {
	ID              string    `json:"id"`
	VendorID        string    `json:"vendor_id"`
	QuestionnaireID string    `json:"questionnaire_id"`
	Answers         Answers   `json:"answers"`
	Result          Result    `json:"result"`
	AssessedBy      string    `json:"assessed_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
