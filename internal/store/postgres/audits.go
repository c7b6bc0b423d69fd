package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Bahjat/site-audit/internal/model"
	"github.com/Bahjat/site-audit/internal/store"
)

var _ store.Repository = (*Store)(nil)

func (s *Store) Create(ctx context.Context, a *model.AuditRequest) error {
	scores, err := marshalScores(a.Scores)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO audit_requests (id, url, domain, status, created_at, updated_at, error_message, scores, narrative_summary)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8::jsonb, $9)
	`, a.ID, a.URL, a.Domain, string(a.Status), a.CreatedAt, a.UpdatedAt, a.ErrorMessage, scores, a.NarrativeSummary)
	return err
}

func (s *Store) Load(ctx context.Context, id string) (*model.AuditRequest, error) {
	if uuid.Validate(id) != nil {
		return nil, store.ErrNotFound
	}
	var (
		a      model.AuditRequest
		status string
		scores []byte
	)
	err := s.Pool.QueryRow(ctx, `
		SELECT id::text, url, domain, status, created_at, updated_at, completed_at,
		       processing_time, error_message, scores, narrative_summary
		FROM audit_requests
		WHERE id = $1::uuid
	`, id).Scan(&a.ID, &a.URL, &a.Domain, &status, &a.CreatedAt, &a.UpdatedAt, &a.CompletedAt,
		&a.ProcessingTime, &a.ErrorMessage, &scores, &a.NarrativeSummary)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Status = model.Status(status)

	if len(scores) > 0 {
		a.Scores = &model.Scores{}
		if err := json.Unmarshal(scores, a.Scores); err != nil {
			return nil, fmt.Errorf("decode scores: %w", err)
		}
	}

	rows, err := s.Pool.Query(ctx, `SELECT category, result FROM audit_results WHERE audit_id = $1::uuid`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			category string
			raw      []byte
			res      model.ScanResult
		)
		if err := rows.Scan(&category, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, fmt.Errorf("decode %s result: %w", category, err)
		}
		// Rows written with plain string issues decode without a page URL.
		for i := range res.Issues {
			if res.Issues[i].Location.URL == "" {
				res.Issues[i].Location.URL = a.URL
			}
		}
		if a.Results == nil {
			a.Results = make(map[model.Category]model.ScanResult)
		}
		a.Results[model.Category(category)] = res
	}
	return &a, rows.Err()
}

// Save updates the record and replaces its per-category results in one
// transaction.
func (s *Store) Save(ctx context.Context, a *model.AuditRequest) error {
	if uuid.Validate(a.ID) != nil {
		return store.ErrNotFound
	}
	scores, err := marshalScores(a.Scores)
	if err != nil {
		return err
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE audit_requests
		SET url=$2, domain=$3, status=$4, updated_at=$5, completed_at=$6, processing_time=$7,
		    error_message=$8, scores=$9::jsonb, narrative_summary=$10
		WHERE id=$1::uuid
	`, a.ID, a.URL, a.Domain, string(a.Status), a.UpdatedAt, a.CompletedAt, a.ProcessingTime,
		a.ErrorMessage, scores, a.NarrativeSummary)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM audit_results WHERE audit_id=$1::uuid`, a.ID); err != nil {
		return err
	}
	if len(a.Results) > 0 {
		batch := &pgx.Batch{}
		for _, c := range model.Categories {
			res, ok := a.Results[c]
			if !ok {
				continue
			}
			raw, err := json.Marshal(res)
			if err != nil {
				return fmt.Errorf("encode %s result: %w", c, err)
			}
			batch.Queue(`
				INSERT INTO audit_results (audit_id, category, score, result)
				VALUES ($1::uuid, $2, $3, $4::jsonb)
			`, a.ID, string(c), res.Score, string(raw))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert results: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ClaimPending stamps claimed_at on up to limit pending audits. Rows locked
// by a concurrent claimer are skipped.
func (s *Store) ClaimPending(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.Pool.Query(ctx, `
		UPDATE audit_requests SET claimed_at = now()
		WHERE id IN (
			SELECT id FROM audit_requests
			WHERE status = 'pending'
			  AND (claimed_at IS NULL OR claimed_at < now() - make_interval(secs => $2))
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT $1
		)
		RETURNING id::text
	`, limit, store.ClaimTTL.Seconds())
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) FailStale(ctx context.Context, olderThan time.Duration) (int, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE audit_requests
		SET status = 'failed',
		    error_message = $2,
		    processing_time = EXTRACT(EPOCH FROM now() - updated_at),
		    completed_at = now(),
		    updated_at = now()
		WHERE status = 'processing'
		  AND updated_at < now() - make_interval(secs => $1)
	`, olderThan.Seconds(), store.StaleMessage)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func marshalScores(s *model.Scores) (*string, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode scores: %w", err)
	}
	out := string(raw)
	return &out, nil
}
