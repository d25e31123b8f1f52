package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

const recordColumns = `id::text, vendor_id, questionnaire_id, answers, compliance_score, risk_score,
	posture, total_points, max_points, answered, questions, sections, assessed_by, created_at`

// PostgresStore is a PostgreSQL-backed Store implementation using the
// vendor_assessments table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed assessment store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if rec.VendorID == "" {
		return Record{}, fmt.Errorf("vendor_id is required")
	}

	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return Record{}, fmt.Errorf("marshal answers: %w", err)
	}
	sections, err := json.Marshal(rec.Result.Sections)
	if err != nil {
		return Record{}, fmt.Errorf("marshal sections: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	r := rec.Result
	err = s.pool.QueryRow(ctx,
		`INSERT INTO vendor_assessments
		   (vendor_id, questionnaire_id, answers, compliance_score, risk_score, posture,
		    total_points, max_points, answered, questions, sections, assessed_by, created_at)
		 VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12, $13)
		 RETURNING id::text, created_at`,
		rec.VendorID,
		rec.QuestionnaireID,
		string(answers),
		r.ComplianceScore,
		r.RiskScore,
		string(r.Posture),
		r.TotalPoints,
		r.MaxPoints,
		r.Answered,
		r.Questions,
		string(sections),
		nullIfEmpty(rec.AssessedBy),
		createdAt,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("insert assessment: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Record{}, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+`
		 FROM vendor_assessments
		 WHERE id = $1::uuid`,
		id,
	)
	return scanRecord(row)
}

func (s *PostgresStore) Latest(ctx context.Context, vendorID string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+`
		 FROM vendor_assessments
		 WHERE vendor_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		vendorID,
	)
	return scanRecord(row)
}

func (s *PostgresStore) List(ctx context.Context, vendorID string, limit int) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+`
		 FROM vendor_assessments
		 WHERE vendor_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		vendorID,
		limitArg,
	)
	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessments: %w", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var answers, sections []byte
	var posture string
	var assessedBy *string

	err := row.Scan(
		&rec.ID,
		&rec.VendorID,
		&rec.QuestionnaireID,
		&answers,
		&rec.Result.ComplianceScore,
		&rec.Result.RiskScore,
		&posture,
		&rec.Result.TotalPoints,
		&rec.Result.MaxPoints,
		&rec.Result.Answered,
		&rec.Result.Questions,
		&sections,
		&assessedBy,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("scan assessment: %w", err)
	}

	rec.Result.Posture = Posture(posture)
	if assessedBy != nil {
		rec.AssessedBy = *assessedBy
	}
	if err := json.Unmarshal(answers, &rec.Answers); err != nil {
		return Record{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	if len(sections) > 0 {
		if err := json.Unmarshal(sections, &rec.Result.Sections); err != nil {
			return Record{}, fmt.Errorf("unmarshal sections: %w", err)
		}
	}
	return rec, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
