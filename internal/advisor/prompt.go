package advisor

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-grc/internal/assessment"
)

const systemPrompt = `You are a third-party risk analyst. Given a vendor's weakest questionnaire answers, write a short remediation plan.
Use at most one numbered line per gap, in the order given. Each line names the control to fix and a concrete next step for the vendor.
Do not invent facts about the vendor. Plain text only.`

func userPrompt(q *assessment.Questionnaire, rec assessment.Record, gaps []Gap) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Questionnaire: %s\n", q.Name)
	fmt.Fprintf(&b, "Vendor: %s\n", rec.VendorID)
	fmt.Fprintf(&b, "Compliance score: %d/100 (%s risk)\n\n", rec.Result.ComplianceScore, rec.Result.Posture)
	b.WriteString("Gaps:\n")
	for i, g := range gaps {
		answer := g.Answer
		if answer == "" {
			answer = "(unanswered)"
		}
		fmt.Fprintf(&b, "%d. [%s] %s\n   Current answer: %s\n   Best answer: %s\n", i+1, g.Section, g.Question, answer, g.Target)
	}
	return b.String()
}

func rulesSummary(rec assessment.Record, gaps []Gap) string {
	if len(gaps) == 0 {
		return fmt.Sprintf("Vendor %s gave the best answer to every question. No remediation needed.", rec.VendorID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Vendor %s scored %d/100 (%s risk). Address these gaps first:\n", rec.VendorID, rec.Result.ComplianceScore, rec.Result.Posture)
	for i, g := range gaps {
		if g.Answer == "" {
			fmt.Fprintf(&b, "%d. [%s] %s: answer the question, target %q (+%d points)\n", i+1, g.Section, g.Question, g.Target, g.Lost())
			continue
		}
		fmt.Fprintf(&b, "%d. [%s] %s: move from %q to %q (+%d points)\n", i+1, g.Section, g.Question, g.Answer, g.Target, g.Lost())
	}
	return strings.TrimRight(b.String(), "\n")
}
