package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/anchor/internal/adapters/driven/storage/ranking"
	"github.com/custodia-labs/anchor/internal/core/domain"
	"github.com/custodia-labs/anchor/internal/core/ports/driven"
)

var _ driven.KnowledgeStore = (*Store)(nil)

const knowledgeColumns = `id, scope_id, source_type, source_id, chunk_index, content, hash,
	model, dimension, embedding, updated_at`

const upsertRecord = `
	INSERT INTO knowledge (` + knowledgeColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(scope_id, source_type, source_id, chunk_index) DO UPDATE SET
		id = excluded.id,
		content = excluded.content,
		hash = excluded.hash,
		model = excluded.model,
		dimension = excluded.dimension,
		embedding = excluded.embedding,
		updated_at = excluded.updated_at`

// UpsertBatch writes all records in one transaction. A record replaces any
// existing record at the same scope, source and chunk index.
func (s *Store) UpsertBatch(ctx context.Context, records []domain.KnowledgeRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := validateRecords(records); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		return upsertRecords(ctx, tx, records)
	})
}

// ReplaceSource deletes the records of one source and writes the given set
// in the same transaction.
func (s *Store) ReplaceSource(ctx context.Context, src domain.SourceRef, records []domain.KnowledgeRecord) error {
	if src.ScopeID == "" || src.SourceID == "" {
		return fmt.Errorf("%w: source has no scope or id", domain.ErrInvalidInput)
	}
	if err := validateRecords(records); err != nil {
		return err
	}
	for i := range records {
		if records[i].Ref() != src {
			return fmt.Errorf("%w: record %d belongs to another source", domain.ErrInvalidInput, i)
		}
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM knowledge WHERE scope_id = ? AND source_type = ? AND source_id = ?",
			src.ScopeID, string(src.SourceType), src.SourceID,
		); err != nil {
			return fmt.Errorf("clearing source: %w", err)
		}
		return upsertRecords(ctx, tx, records)
	})
}

func validateRecords(records []domain.KnowledgeRecord) error {
	for i := range records {
		if records[i].ScopeID == "" || records[i].SourceID == "" {
			return fmt.Errorf("%w: record %d has no scope or source", domain.ErrInvalidInput, i)
		}
	}
	return nil
}

// inTx runs fn in a transaction and commits when it succeeds.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing records: %w", err)
	}
	return nil
}

func upsertRecords(ctx context.Context, tx *sql.Tx, records []domain.KnowledgeRecord) error {
	if len(records) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, upsertRecord)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		updatedAt := r.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now()
		}
		_, err := stmt.ExecContext(ctx,
			r.ID, r.ScopeID, string(r.SourceType), r.SourceID, r.ChunkIndex, r.Content, r.Hash,
			r.Model, r.Dimension, float32SliceToBytes(r.Vector), updatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting record %d: %w", i, err)
		}
	}
	return nil
}

// FindByHash returns a record in the scope with the hash and model.
func (s *Store) FindByHash(ctx context.Context, scopeID, hash, model string) (domain.KnowledgeRecord, bool, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+knowledgeColumns+" FROM knowledge WHERE scope_id = ? AND hash = ? AND model = ? LIMIT 1",
		scopeID, hash, model,
	)
	if err != nil {
		return domain.KnowledgeRecord{}, false, fmt.Errorf("finding hash: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return domain.KnowledgeRecord{}, false, err
	}
	if len(records) == 0 {
		return domain.KnowledgeRecord{}, false, nil
	}
	return records[0], true, nil
}

// SearchSimilar scans the scope and returns the records with the highest
// cosine similarity. Records of another dimension are skipped.
func (s *Store) SearchSimilar(
	ctx context.Context, scopeID string, query []float32, q domain.KnowledgeQuery,
) ([]domain.KnowledgeHit, error) {
	records, err := s.scopeRecords(ctx, scopeID, q, "dimension = ?", len(query))
	if err != nil {
		return nil, err
	}

	hits := make([]domain.KnowledgeHit, 0, len(records))
	for _, r := range records {
		if len(r.Vector) != len(query) {
			continue
		}
		hits = append(hits, domain.KnowledgeHit{Record: r, Score: ranking.Cosine(query, r.Vector)})
	}
	return ranking.Top(hits, q.Limit), nil
}

// SearchKeyword returns records containing any query term, scored by the
// fraction of terms matched.
func (s *Store) SearchKeyword(
	ctx context.Context, scopeID, query string, q domain.KnowledgeQuery,
) ([]domain.KnowledgeHit, error) {
	terms := ranking.Terms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	records, err := s.scopeRecords(ctx, scopeID, q, "")
	if err != nil {
		return nil, err
	}

	var hits []domain.KnowledgeHit
	for _, r := range records {
		if score := ranking.KeywordScore(terms, r.Content); score > 0 {
			hits = append(hits, domain.KnowledgeHit{Record: r, Score: score})
		}
	}
	return ranking.Top(hits, q.Limit), nil
}

// Sources lists the distinct sources with records in the scope, sorted.
func (s *Store) Sources(ctx context.Context, scopeID string) ([]domain.SourceRef, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT source_type, source_id FROM knowledge WHERE scope_id = ? ORDER BY source_type, source_id",
		scopeID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var refs []domain.SourceRef
	for rows.Next() {
		ref := domain.SourceRef{ScopeID: scopeID}
		var sourceType string
		if err := rows.Scan(&sourceType, &ref.SourceID); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		ref.SourceType = domain.EntityKind(sourceType)
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sources: %w", err)
	}
	return refs, nil
}

// DeleteSource removes all records of one source entity.
func (s *Store) DeleteSource(ctx context.Context, src domain.SourceRef) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM knowledge WHERE scope_id = ? AND source_type = ? AND source_id = ?",
		src.ScopeID, string(src.SourceType), src.SourceID,
	)
	if err != nil {
		return fmt.Errorf("deleting source: %w", err)
	}
	return nil
}

// Count returns the number of records in the scope.
func (s *Store) Count(ctx context.Context, scopeID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM knowledge WHERE scope_id = ?", scopeID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// scopeRecords loads the records of one scope that pass the source type filter
// and an optional extra condition.
func (s *Store) scopeRecords(
	ctx context.Context, scopeID string, q domain.KnowledgeQuery, cond string, condArgs ...any,
) ([]domain.KnowledgeRecord, error) {
	query := "SELECT " + knowledgeColumns + " FROM knowledge WHERE scope_id = ?"
	args := []any{scopeID}

	if len(q.SourceTypes) > 0 {
		placeholders := make([]string, len(q.SourceTypes))
		for i, k := range q.SourceTypes {
			placeholders[i] = "?"
			args = append(args, string(k))
		}
		query += " AND source_type IN (" + strings.Join(placeholders, ", ") + ")"
	}
	if cond != "" {
		query += " AND " + cond
		args = append(args, condArgs...)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]domain.KnowledgeRecord, error) {
	var records []domain.KnowledgeRecord
	for rows.Next() {
		var r domain.KnowledgeRecord
		var sourceType string
		var embedding []byte

		if err := rows.Scan(&r.ID, &r.ScopeID, &sourceType, &r.SourceID, &r.ChunkIndex,
			&r.Content, &r.Hash, &r.Model, &r.Dimension, &embedding, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.SourceType = domain.EntityKind(sourceType)
		r.Vector = bytesToFloat32Slice(embedding)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}
