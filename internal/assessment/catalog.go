package assessment

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed questionnaire.schema.json
var questionnaireSchema string

var schemaLoader = gojsonschema.NewStringLoader(questionnaireSchema)

// ErrQuestionnaireNotFound is returned when a questionnaire ID is not loaded.
var ErrQuestionnaireNotFound = errors.New("questionnaire not found")

// Catalog holds the loaded questionnaires. It is read-only after
// construction; returned questionnaires must not be modified.
type Catalog struct {
	questionnaires map[string]*Questionnaire
	defaultID      string
}

// NewCatalog validates and indexes the given questionnaires. An empty
// defaultID selects the lowest questionnaire ID.
func NewCatalog(defaultID string, qs ...*Questionnaire) (*Catalog, error) {
	c := &Catalog{questionnaires: make(map[string]*Questionnaire, len(qs))}
	for _, q := range qs {
		if err := q.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.questionnaires[q.ID]; dup {
			return nil, fmt.Errorf("duplicate questionnaire id %q", q.ID)
		}
		c.questionnaires[q.ID] = q
	}
	if err := c.setDefault(defaultID); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadCatalog loads every YAML questionnaire under dir. Each document is
// checked against the questionnaire JSON schema and the rules scoring relies on;
// any invalid file fails the whole load.
func LoadCatalog(dir, defaultID string) (*Catalog, error) {
	var qs []*Questionnaire
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}
		q, err := loadQuestionnaire(path)
		if err != nil {
			return err
		}
		qs = append(qs, q)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading questionnaires: %w", err)
	}

	c, err := NewCatalog(defaultID, qs...)
	if err != nil {
		return nil, fmt.Errorf("loading questionnaires: %w", err)
	}

	slog.Info("questionnaires loaded", "dir", dir, "count", len(qs), "default", c.defaultID)
	return c, nil
}

func loadQuestionnaire(path string) (*Questionnaire, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: parse yaml: %w", path, err)
	}
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("%s: schema validation: %w", path, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%s: invalid questionnaire: %s", path, strings.Join(msgs, "; "))
	}

	var q Questionnaire
	if err := yaml.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("%s: decode questionnaire: %w", path, err)
	}
	return &q, nil
}

func (c *Catalog) setDefault(id string) error {
	if id != "" {
		if _, ok := c.questionnaires[id]; !ok {
			return fmt.Errorf("default %w: %q", ErrQuestionnaireNotFound, id)
		}
		c.defaultID = id
		return nil
	}
	if ids := c.IDs(); len(ids) > 0 {
		c.defaultID = ids[0]
	}
	return nil
}

// Get returns the questionnaire with the given ID. An empty ID selects the
// default questionnaire.
func (c *Catalog) Get(id string) (*Questionnaire, error) {
	if id == "" {
		id = c.defaultID
	}
	q, ok := c.questionnaires[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrQuestionnaireNotFound, id)
	}
	return q, nil
}

// DefaultID returns the ID used when none is requested.
func (c *Catalog) DefaultID() string {
	return c.defaultID
}

// IDs returns the loaded questionnaire IDs in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.questionnaires))
	for id := range c.questionnaires {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns the loaded questionnaires sorted by ID.
func (c *Catalog) All() []*Questionnaire {
	ids := c.IDs()
	out := make([]*Questionnaire, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.questionnaires[id])
	}
	return out
}
