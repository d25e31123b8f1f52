// Package report exports vendor assessments as Excel workbooks.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-grc/internal/assessment"
)

// Sheet names in the generated workbook.
const (
	SummarySheet  = "Summary"
	SectionsSheet = "Sections"
	AnswersSheet  = "Answers"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// WriteAssessment renders rec, scored against q, as an XLSX workbook with
// a summary, a per-section breakdown and every question's answer.
func WriteAssessment(w io.Writer, q *assessment.Questionnaire, rec assessment.Record) error {
	if q == nil {
		return fmt.Errorf("questionnaire is nil")
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDE4EE"}},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("renaming summary sheet: %w", err)
	}
	if err := writeSummary(f, q, rec, header); err != nil {
		return err
	}
	if err := writeSections(f, rec, header); err != nil {
		return err
	}
	if err := writeAnswers(f, q, rec, header); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, q *assessment.Questionnaire, rec assessment.Record, header int) error {
	r := rec.Result
	rows := [][]any{
		{"Vendor", rec.VendorID},
		{"Questionnaire", fmt.Sprintf("%s (%s)", q.Name, q.ID)},
		{"Version", q.Version},
		{"Assessment ID", rec.ID},
		{"Assessed by", rec.AssessedBy},
		{"Assessed at", rec.CreatedAt.Format(timeLayout)},
		{"Compliance score", r.ComplianceScore},
		{"Risk score", r.RiskScore},
		{"Posture", string(r.Posture)},
		{"Points", fmt.Sprintf("%d / %d", r.TotalPoints, r.MaxPoints)},
		{"Answered", fmt.Sprintf("%d / %d", r.Answered, r.Questions)},
	}
	if err := setRows(f, SummarySheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "A1", fmt.Sprintf("A%d", len(rows)), header); err != nil {
		return fmt.Errorf("styling summary: %w", err)
	}
	return f.SetColWidth(SummarySheet, "A", "B", 28)
}

func writeSections(f *excelize.File, rec assessment.Record, header int) error {
	if _, err := f.NewSheet(SectionsSheet); err != nil {
		return fmt.Errorf("creating sections sheet: %w", err)
	}
	rows := [][]any{{"Section", "Points", "Max points", "Compliance", "Answered", "Questions"}}
	for _, s := range rec.Result.Sections {
		rows = append(rows, []any{s.Title, s.Points, s.MaxPoints, s.Compliance, s.Answered, s.Questions})
	}
	if err := setRows(f, SectionsSheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(SectionsSheet, "A1", "F1", header); err != nil {
		return fmt.Errorf("styling sections: %w", err)
	}
	return f.SetColWidth(SectionsSheet, "A", "A", 36)
}

func writeAnswers(f *excelize.File, q *assessment.Questionnaire, rec assessment.Record, header int) error {
	if _, err := f.NewSheet(AnswersSheet); err != nil {
		return fmt.Errorf("creating answers sheet: %w", err)
	}
	rows := [][]any{{"Section", "Question ID", "Question", "Weight", "Answer", "Points", "Max points"}}
	for _, s := range q.Sections {
		for _, qu := range s.Questions {
			answer, points := "", 0
			if opt, ok := rec.Answers[qu.ID]; ok {
				answer, points = opt, qu.Points(opt)
			}
			rows = append(rows, []any{s.Title, qu.ID, qu.Text, qu.Weight, answer, points, qu.MaxPoints()})
		}
	}
	if err := setRows(f, AnswersSheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(AnswersSheet, "A1", "G1", header); err != nil {
		return fmt.Errorf("styling answers: %w", err)
	}
	if err := f.SetColWidth(AnswersSheet, "C", "C", 60); err != nil {
		return fmt.Errorf("sizing answers: %w", err)
	}
	return f.SetColWidth(AnswersSheet, "E", "E", 30)
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
