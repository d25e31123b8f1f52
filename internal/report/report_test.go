package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-grc/internal/assessment"
	"github.com/p-n-ai/pai-grc/internal/report"
)

func testQuestionnaire() *assessment.Questionnaire {
	return &assessment.Questionnaire{
		ID:   "vendor-risk",
		Name: "Vendor Risk",
		Sections: []assessment.Section{
			{Title: "Information Security", Questions: []assessment.Question{
				{ID: "q1", Text: "Do you encrypt data at rest?", Weight: 10, Options: []string{"A", "B", "C", "D", "E"}},
			}},
			{Title: "Business Continuity", Questions: []assessment.Question{
				{ID: "q2", Text: "Is there a tested DR plan?", Weight: 5, Options: []string{"Yes", "No"}},
			}},
		},
	}
}

func TestWriteAssessment(t *testing.T) {
	q := testQuestionnaire()
	answers := assessment.Answers{"q1": "C"}
	result, err := assessment.Score(q, answers)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	rec := assessment.Record{
		ID:              "rec-1",
		VendorID:        "acme",
		QuestionnaireID: q.ID,
		Answers:         answers,
		Result:          result,
		AssessedBy:      "alice",
		CreatedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	var buf bytes.Buffer
	if err := report.WriteAssessment(&buf, q, rec); err != nil {
		t.Fatalf("WriteAssessment() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{report.SummarySheet, report.SectionsSheet, report.AnswersSheet}
	if len(sheets) != len(want) {
		t.Fatalf("sheets = %v, want %v", sheets, want)
	}
	for i := range want {
		if sheets[i] != want[i] {
			t.Errorf("sheet[%d] = %q, want %q", i, sheets[i], want[i])
		}
	}

	if v, _ := f.GetCellValue(report.SummarySheet, "B1"); v != "acme" {
		t.Errorf("vendor cell = %q, want acme", v)
	}
	if v, _ := f.GetCellValue(report.SummarySheet, "B7"); v != "50" {
		t.Errorf("compliance cell = %q, want 50", v)
	}
	if v, _ := f.GetCellValue(report.SummarySheet, "B8"); v != "50" {
		t.Errorf("risk cell = %q, want 50", v)
	}

	rows, err := f.GetRows(report.AnswersSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("answers rows = %d, want header + 2", len(rows))
	}
	if rows[1][1] != "q1" || rows[1][4] != "C" || rows[1][5] != "30" {
		t.Errorf("q1 row = %v, want answer C worth 30", rows[1])
	}

	sections, _ := f.GetRows(report.SectionsSheet)
	if len(sections) != 3 || sections[2][0] != "Business Continuity" {
		t.Errorf("sections rows = %v", sections)
	}
}

func TestWriteAssessment_NilQuestionnaire(t *testing.T) {
	var buf bytes.Buffer
	if err := report.WriteAssessment(&buf, nil, assessment.Record{}); err == nil {
		t.Error("WriteAssessment() should error for nil questionnaire")
	}
}
