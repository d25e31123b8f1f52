package assessment_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-grc/internal/assessment"
)

const vendorRiskYAML = `id: vendor-risk
name: Vendor Risk
version: "2026.1"
description: Baseline third-party questionnaire.
sections:
  - title: Information Security
    questions:
      - id: encryption
        text: Is customer data encrypted at rest?
        weight: 10
        options: [Always, Mostly, Sometimes, Rarely, Never]
  - title: Privacy
    questions:
      - id: dpa
        text: Has a data processing agreement been signed?
        weight: 4
        options: ["Yes", "No"]
`

const cloudYAML = `id: cloud
name: Cloud Provider
sections:
  - title: Resilience
    questions:
      - id: regions
        text: Are workloads deployed across regions?
        weight: 2
        options: ["Yes", "No"]
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vendor-risk.yaml", vendorRiskYAML)
	writeFile(t, dir, "nested/cloud.yml", cloudYAML)
	writeFile(t, dir, "README.md", "not a questionnaire")

	c, err := assessment.LoadCatalog(dir, "vendor-risk")
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	if ids := c.IDs(); len(ids) != 2 || ids[0] != "cloud" || ids[1] != "vendor-risk" {
		t.Errorf("IDs() = %v, want [cloud vendor-risk]", ids)
	}
	if c.DefaultID() != "vendor-risk" {
		t.Errorf("DefaultID() = %q, want vendor-risk", c.DefaultID())
	}

	q, err := c.Get("")
	if err != nil {
		t.Fatalf("Get(default) error = %v", err)
	}
	if q.Version != "2026.1" || len(q.Sections) != 2 {
		t.Errorf("default questionnaire = %+v", q)
	}
	if got := q.Sections[0].Questions[0].Options; len(got) != 5 || got[0] != "Always" {
		t.Errorf("options = %v", got)
	}

	if _, err := c.Get("missing"); !errors.Is(err, assessment.ErrQuestionnaireNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrQuestionnaireNotFound", err)
	}
	if n := len(c.All()); n != 2 {
		t.Errorf("All() = %d, want 2", n)
	}
}

func TestLoadCatalog_DefaultsToLowestID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vendor-risk.yaml", vendorRiskYAML)
	writeFile(t, dir, "cloud.yaml", cloudYAML)

	c, err := assessment.LoadCatalog(dir, "")
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if c.DefaultID() != "cloud" {
		t.Errorf("DefaultID() = %q, want cloud", c.DefaultID())
	}
}

func TestLoadCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "invalid yaml",
			content: "id: [unterminated",
			wantErr: "parse yaml",
		},
		{
			name:    "zero weight",
			content: strings.Replace(vendorRiskYAML, "weight: 10", "weight: 0", 1),
			wantErr: "invalid questionnaire",
		},
		{
			name:    "single option",
			content: strings.Replace(vendorRiskYAML, `["Yes", "No"]`, `["Yes"]`, 1),
			wantErr: "invalid questionnaire",
		},
		{
			name:    "duplicate options",
			content: strings.Replace(vendorRiskYAML, `["Yes", "No"]`, `["Yes", "Yes"]`, 1),
			wantErr: "invalid questionnaire",
		},
		{
			name:    "unknown field",
			content: vendorRiskYAML + "owner: security-team\n",
			wantErr: "invalid questionnaire",
		},
		{
			name:    "section without questions",
			content: "id: empty\nname: Empty\nsections:\n  - title: Nothing\n    questions: []\n",
			wantErr: "invalid questionnaire",
		},
		{
			name:    "duplicate question ids across sections",
			content: strings.Replace(vendorRiskYAML, "id: dpa", "id: encryption", 1),
			wantErr: "duplicate id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "q.yaml", tt.content)

			_, err := assessment.LoadCatalog(dir, "")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadCatalog() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadCatalog_UnknownDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vendor-risk.yaml", vendorRiskYAML)

	if _, err := assessment.LoadCatalog(dir, "cloud"); !errors.Is(err, assessment.ErrQuestionnaireNotFound) {
		t.Errorf("LoadCatalog() error = %v, want ErrQuestionnaireNotFound", err)
	}
}

func TestNewCatalog_DuplicateIDs(t *testing.T) {
	if _, err := assessment.NewCatalog("", singleQuestion(), singleQuestion()); err == nil {
		t.Error("NewCatalog() should reject duplicate questionnaire ids")
	}
}

func TestLoadCatalog_SampleQuestionnaires(t *testing.T) {
	c, err := assessment.LoadCatalog(filepath.Join("..", "..", "questionnaires"), "")
	if err != nil {
		t.Fatalf("LoadCatalog(questionnaires/) error = %v", err)
	}
	if len(c.IDs()) == 0 {
		t.Error("no sample questionnaires loaded")
	}
}
