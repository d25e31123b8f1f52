package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-grc/internal/audit"
)

// Cache stores the latest assessment of each vendor. Misses are reported
// with found == false, not an error.
type Cache interface {
	GetJSON(ctx context.Context, key string, v any) (found bool, err error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ServiceConfig holds dependencies for the assessment service.
type ServiceConfig struct {
	Catalog  *Catalog
	Store    Store
	Cache    Cache // optional
	CacheTTL time.Duration
	Audit    audit.Logger
}

// Service scores and records vendor assessments.
type Service struct {
	catalog  *Catalog
	store    Store
	cache    Cache
	cacheTTL time.Duration
	audit    audit.Logger
}

// NewService creates an assessment service.
func NewService(cfg ServiceConfig) *Service {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	logger := cfg.Audit
	if logger == nil {
		logger = audit.NopLogger{}
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = time.Hour
	}
	return &Service{
		catalog:  cfg.Catalog,
		store:    store,
		cache:    cfg.Cache,
		cacheTTL: ttl,
		audit:    logger,
	}
}

// Catalog returns the questionnaires the service scores against.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// SubmitRequest is a completed assessment to score and record.
type SubmitRequest struct {
	VendorID        string
	QuestionnaireID string
	Answers         Answers
	AssessedBy      string
}

// Preview scores answers without recording anything.
func (s *Service) Preview(questionnaireID string, answers Answers) (Result, error) {
	q, err := s.catalog.Get(questionnaireID)
	if err != nil {
		return Result{}, err
	}
	return Score(q, answers)
}

// Submit scores the answers and records the finalized assessment.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (Record, error) {
	if req.VendorID == "" {
		return Record{}, fmt.Errorf("%w: vendor id is required", ErrInvalidRequest)
	}
	q, err := s.catalog.Get(req.QuestionnaireID)
	if err != nil {
		return Record{}, err
	}
	result, err := Score(q, req.Answers)
	if err != nil {
		return Record{}, err
	}

	rec, err := s.store.Save(ctx, Record{
		VendorID:        req.VendorID,
		QuestionnaireID: q.ID,
		Answers:         req.Answers,
		Result:          result,
		AssessedBy:      req.AssessedBy,
	})
	if err != nil {
		return Record{}, fmt.Errorf("saving assessment: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, latestKey(req.VendorID), rec, s.cacheTTL); err != nil {
			slog.Warn("failed to cache latest assessment", "vendor_id", req.VendorID, "error", err)
		}
	}

	if err := s.audit.Log(ctx, audit.Event{
		Actor:    req.AssessedBy,
		Action:   "assessment.submitted",
		Resource: VendorResource(req.VendorID),
		Data: map[string]any{
			"assessment_id":    rec.ID,
			"questionnaire_id": q.ID,
			"compliance_score": result.ComplianceScore,
			"risk_score":       result.RiskScore,
			"posture":          string(result.Posture),
		},
	}); err != nil {
		slog.Warn("failed to log audit event", "assessment_id", rec.ID, "error", err)
	}

	slog.Info("assessment recorded",
		"vendor_id", rec.VendorID,
		"assessment_id", rec.ID,
		"compliance_score", result.ComplianceScore,
		"posture", result.Posture,
	)
	return rec, nil
}

// Latest returns the vendor's most recent assessment, reading through the cache.
func (s *Service) Latest(ctx context.Context, vendorID string) (Record, error) {
	key := latestKey(vendorID)
	if s.cache != nil {
		var rec Record
		found, err := s.cache.GetJSON(ctx, key, &rec)
		if err != nil {
			slog.Warn("assessment cache read failed", "vendor_id", vendorID, "error", err)
		} else if found {
			return rec, nil
		}
	}

	rec, err := s.store.Latest(ctx, vendorID)
	if err != nil {
		return Record{}, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, rec, s.cacheTTL); err != nil {
			slog.Warn("failed to cache latest assessment", "vendor_id", vendorID, "error", err)
		}
	}
	return rec, nil
}

// Get returns a recorded assessment by id.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.store.Get(ctx, id)
}

// History returns up to limit of the vendor's assessments, newest first.
func (s *Service) History(ctx context.Context, vendorID string, limit int) ([]Record, error) {
	return s.store.List(ctx, vendorID, limit)
}

// ErrInvalidRequest marks malformed submissions.
var ErrInvalidRequest = errors.New("invalid request")

// VendorResource is the audit/comment resource name of a vendor.
func VendorResource(vendorID string) string {
	return "vendor:" + vendorID
}

func latestKey(vendorID string) string {
	return "grc:assessment:latest:" + vendorID
}
