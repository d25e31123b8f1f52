package advisor_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-grc/internal/advisor"
	"github.com/p-n-ai/pai-grc/internal/ai"
	"github.com/p-n-ai/pai-grc/internal/assessment"
)

func testQuestionnaire() *assessment.Questionnaire {
	return &assessment.Questionnaire{
		ID:   "vendor-risk",
		Name: "Vendor Risk",
		Sections: []assessment.Section{
			{Title: "Information Security", Questions: []assessment.Question{
				{ID: "encryption", Text: "Is data encrypted at rest?", Weight: 10, Options: []string{"Always", "Mostly", "Sometimes", "Rarely", "Never"}},
				{ID: "mfa", Text: "Is MFA enforced?", Weight: 5, Options: []string{"Yes", "No"}},
			}},
			{Title: "Business Continuity", Questions: []assessment.Question{
				{ID: "dr", Text: "Is the DR plan tested?", Weight: 2, Options: []string{"Yearly", "Never"}},
			}},
		},
	}
}

func testRecord(t *testing.T, q *assessment.Questionnaire, answers assessment.Answers) assessment.Record {
	t.Helper()
	result, err := assessment.Score(q, answers)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	return assessment.Record{ID: "rec-1", VendorID: "acme", QuestionnaireID: q.ID, Answers: answers, Result: result}
}

type fakeRouter struct {
	*ai.MockProvider
	enabled bool
}

func (f fakeRouter) HasProvider() bool { return f.enabled }

func TestGaps(t *testing.T) {
	q := testQuestionnaire()
	gaps := advisor.Gaps(q, assessment.Answers{"encryption": "Sometimes", "mfa": "Yes"})

	// encryption loses 20, dr (unanswered) loses 4, mfa is best.
	if len(gaps) != 2 {
		t.Fatalf("Gaps() = %d, want 2: %+v", len(gaps), gaps)
	}
	if gaps[0].QuestionID != "encryption" || gaps[0].Lost() != 20 {
		t.Errorf("gaps[0] = %+v, want encryption losing 20", gaps[0])
	}
	if gaps[1].QuestionID != "dr" || gaps[1].Answer != "" || gaps[1].Lost() != 4 {
		t.Errorf("gaps[1] = %+v, want unanswered dr losing 4", gaps[1])
	}
}

func TestGaps_AllBest(t *testing.T) {
	q := testQuestionnaire()
	gaps := advisor.Gaps(q, assessment.Answers{"encryption": "Always", "mfa": "Yes", "dr": "Yearly"})
	if len(gaps) != 0 {
		t.Errorf("Gaps() = %+v, want none", gaps)
	}
}

func TestRemediation_RulesWithoutProvider(t *testing.T) {
	q := testQuestionnaire()
	rec := testRecord(t, q, assessment.Answers{"encryption": "Never"})

	plan, err := advisor.New(nil).Remediation(context.Background(), "alice", q, rec)
	if err != nil {
		t.Fatalf("Remediation() error = %v", err)
	}
	if plan.Source != advisor.SourceRules {
		t.Errorf("Source = %q, want rules", plan.Source)
	}
	if len(plan.Gaps) != 3 {
		t.Errorf("Gaps = %d, want 3", len(plan.Gaps))
	}
	if !strings.Contains(plan.Summary, `move from "Never" to "Always" (+40 points)`) {
		t.Errorf("Summary = %q, want encryption line", plan.Summary)
	}
}

func TestRemediation_UsesAI(t *testing.T) {
	q := testQuestionnaire()
	rec := testRecord(t, q, assessment.Answers{"encryption": "Rarely", "mfa": "No"})
	mock := ai.NewMockProvider("1. Enable encryption at rest.\n2. Enforce MFA.")

	plan, err := advisor.New(fakeRouter{mock, true}).Remediation(context.Background(), "alice", q, rec)
	if err != nil {
		t.Fatalf("Remediation() error = %v", err)
	}
	if plan.Source != advisor.SourceAI {
		t.Errorf("Source = %q, want ai", plan.Source)
	}
	if !strings.HasPrefix(plan.Summary, "1. Enable encryption") {
		t.Errorf("Summary = %q", plan.Summary)
	}
	if mock.LastRequest == nil || mock.LastRequest.Task != ai.TaskRemediation {
		t.Fatal("AI request not sent as remediation task")
	}
	prompt := mock.LastRequest.Messages[1].Content
	if !strings.Contains(prompt, "Is MFA enforced?") || !strings.Contains(prompt, "(unanswered)") {
		t.Errorf("prompt missing gaps:\n%s", prompt)
	}
}

func TestRemediation_AIFailureFallsBack(t *testing.T) {
	q := testQuestionnaire()
	rec := testRecord(t, q, assessment.Answers{})
	mock := &ai.MockProvider{Err: errors.New("rate limited")}

	plan, err := advisor.New(fakeRouter{mock, true}).Remediation(context.Background(), "alice", q, rec)
	if err != nil {
		t.Fatalf("Remediation() error = %v", err)
	}
	if plan.Source != advisor.SourceRules {
		t.Errorf("Source = %q, want rules", plan.Source)
	}
}

func TestRemediation_BudgetExhausted(t *testing.T) {
	q := testQuestionnaire()
	rec := testRecord(t, q, assessment.Answers{})
	mock := ai.NewMockProvider("plan")
	budget := ai.NewMemoryBudget(10)
	a := advisor.New(fakeRouter{mock, true}, advisor.WithBudget(budget))

	first, _ := a.Remediation(context.Background(), "alice", q, rec)
	if first.Source != advisor.SourceAI {
		t.Fatalf("first Source = %q, want ai", first.Source)
	}
	// The mock reports more than 10 tokens, which uses up the budget.
	second, _ := a.Remediation(context.Background(), "alice", q, rec)
	if second.Source != advisor.SourceRules {
		t.Errorf("second Source = %q, want rules once budget is spent", second.Source)
	}
	if mock.Calls != 1 {
		t.Errorf("AI calls = %d, want 1", mock.Calls)
	}
}

func TestRemediation_NoGapsSkipsAI(t *testing.T) {
	q := testQuestionnaire()
	rec := testRecord(t, q, assessment.Answers{"encryption": "Always", "mfa": "Yes", "dr": "Yearly"})
	mock := ai.NewMockProvider("unused")

	plan, err := advisor.New(fakeRouter{mock, true}).Remediation(context.Background(), "alice", q, rec)
	if err != nil {
		t.Fatalf("Remediation() error = %v", err)
	}
	if mock.Calls != 0 {
		t.Errorf("AI calls = %d, want 0", mock.Calls)
	}
	if !strings.Contains(plan.Summary, "No remediation needed") {
		t.Errorf("Summary = %q", plan.Summary)
	}
}

func TestRemediation_MaxGaps(t *testing.T) {
	q := testQuestionnaire()
	rec := testRecord(t, q, assessment.Answers{})

	plan, _ := advisor.New(nil, advisor.WithMaxGaps(1)).Remediation(context.Background(), "alice", q, rec)
	if len(plan.Gaps) != 1 || plan.Gaps[0].QuestionID != "encryption" {
		t.Errorf("Gaps = %+v, want only encryption", plan.Gaps)
	}
}

func TestRemediation_QuestionnaireMismatch(t *testing.T) {
	q := testQuestionnaire()
	rec := testRecord(t, q, assessment.Answers{})
	rec.QuestionnaireID = "other"

	if _, err := advisor.New(nil).Remediation(context.Background(), "alice", q, rec); err == nil {
		t.Error("Remediation() should reject a record scored against another questionnaire")
	}
}
