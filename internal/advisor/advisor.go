// Package advisor turns a scored assessment into a remediation plan: the
// questions where the vendor lost the most points, plus a short written
// plan from the AI router when one is configured.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/p-n-ai/pai-grc/internal/ai"
	"github.com/p-n-ai/pai-grc/internal/assessment"
)

// Plan sources.
const (
	SourceAI    = "ai"
	SourceRules = "rules"
)

const defaultMaxGaps = 5

// Gap is a question where the vendor did not give the best answer.
type Gap struct {
	Section    string `json:"section"`
	QuestionID string `json:"question_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer,omitempty"`
	Target     string `json:"target"`
	Points     int    `json:"points"`
	MaxPoints  int    `json:"max_points"`
}

// Lost is how many points choosing the best option would recover.
func (g Gap) Lost() int {
	return g.MaxPoints - g.Points
}

// Plan is a remediation plan for one assessment.
type Plan struct {
	VendorID        string             `json:"vendor_id"`
	AssessmentID    string             `json:"assessment_id"`
	ComplianceScore int                `json:"compliance_score"`
	Posture         assessment.Posture `json:"posture"`
	Gaps            []Gap              `json:"gaps"`
	Summary         string             `json:"summary"`
	Source          string             `json:"source"`
}

// Completer is the part of the AI router the advisor needs.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error)
	HasProvider() bool
}

// Advisor builds remediation plans.
type Advisor struct {
	ai      Completer
	budget  ai.Budget
	maxGaps int
}

// Option configures an Advisor.
type Option func(*Advisor)

// WithBudget caps AI token usage per user.
func WithBudget(b ai.Budget) Option {
	return func(a *Advisor) {
		a.budget = b
	}
}

// WithMaxGaps sets how many gaps a plan lists.
func WithMaxGaps(n int) Option {
	return func(a *Advisor) {
		if n > 0 {
			a.maxGaps = n
		}
	}
}

// New creates an advisor. A nil completer produces rule-based plans only.
func New(c Completer, opts ...Option) *Advisor {
	a := &Advisor{ai: c, maxGaps: defaultMaxGaps}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Remediation builds the plan for rec on behalf of user. AI failures fall
// back to the rule-based summary.
func (a *Advisor) Remediation(ctx context.Context, user string, q *assessment.Questionnaire, rec assessment.Record) (Plan, error) {
	if q == nil {
		return Plan{}, fmt.Errorf("questionnaire is nil")
	}
	if rec.QuestionnaireID != "" && rec.QuestionnaireID != q.ID {
		return Plan{}, fmt.Errorf("assessment %s was scored against %q, not %q", rec.ID, rec.QuestionnaireID, q.ID)
	}

	gaps := Gaps(q, rec.Answers)
	if len(gaps) > a.maxGaps {
		gaps = gaps[:a.maxGaps]
	}

	plan := Plan{
		VendorID:        rec.VendorID,
		AssessmentID:    rec.ID,
		ComplianceScore: rec.Result.ComplianceScore,
		Posture:         rec.Result.Posture,
		Gaps:            gaps,
		Summary:         rulesSummary(rec, gaps),
		Source:          SourceRules,
	}
	if len(gaps) == 0 || !a.canUseAI(user) {
		return plan, nil
	}

	resp, err := a.ai.Complete(ctx, ai.CompletionRequest{
		Task:        ai.TaskRemediation,
		MaxTokens:   600,
		Temperature: 0.2,
		Messages: []ai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(q, rec, gaps)},
		},
	})
	if err != nil {
		slog.Warn("AI remediation failed, using rule-based plan", "vendor_id", rec.VendorID, "error", err)
		return plan, nil
	}
	if a.budget != nil {
		if err := a.budget.Record(user, resp.TotalTokens()); err != nil {
			slog.Warn("failed to record AI usage", "user", user, "error", err)
		}
	}

	if text := strings.TrimSpace(resp.Content); text != "" {
		plan.Summary = text
		plan.Source = SourceAI
	}
	return plan, nil
}

func (a *Advisor) canUseAI(user string) bool {
	if a.ai == nil || !a.ai.HasProvider() {
		return false
	}
	if a.budget != nil && !a.budget.Allow(user) {
		slog.Info("AI budget exhausted, using rule-based plan", "user", user)
		return false
	}
	return true
}

// Gaps lists every question not answered with its best option, largest
// point loss first. Ties keep questionnaire order.
func Gaps(q *assessment.Questionnaire, answers assessment.Answers) []Gap {
	var gaps []Gap
	for _, s := range q.Sections {
		for _, qu := range s.Questions {
			g := Gap{
				Section:    s.Title,
				QuestionID: qu.ID,
				Question:   qu.Text,
				Target:     qu.Options[0],
				MaxPoints:  qu.MaxPoints(),
			}
			if opt, ok := answers[qu.ID]; ok {
				if qu.OptionIndex(opt) >= 0 {
					g.Answer = opt
					g.Points = qu.Points(opt)
				}
			}
			if g.Lost() > 0 {
				gaps = append(gaps, g)
			}
		}
	}
	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].Lost() > gaps[j].Lost()
	})
	return gaps
}
