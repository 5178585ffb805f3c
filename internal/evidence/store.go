package evidence

import (
	"context"
	"database/sql"
	"fmt"

	"CAMPUS-backend/internal/platform/apperr"
	"CAMPUS-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

func (s *Store) Insert(ctx context.Context, f *File) error {
	const q = `
		INSERT INTO evidence_files (evidence_ref, original_name, content_type, size_bytes, uploaded_by, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, q,
		f.EvidenceRef, f.OriginalName, f.ContentType, f.SizeBytes, f.UploadedBy, f.UploadedAt)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return apperr.ErrConflict("evidence ref already exists")
		}
		return apperr.FromDB(err, "failed to save evidence metadata")
	}
	return nil
}

func (s *Store) Get(ctx context.Context, ref string) (*File, error) {
	const q = `
		SELECT evidence_ref, original_name, content_type, size_bytes, uploaded_by, uploaded_at
		FROM evidence_files
		WHERE evidence_ref = ?
	`
	var f File
	err := s.db.QueryRowContext(ctx, q, ref).Scan(
		&f.EvidenceRef, &f.OriginalName, &f.ContentType, &f.SizeBytes, &f.UploadedBy, &f.UploadedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound(fmt.Sprintf("evidence %s not found", ref))
		}
		return nil, apperr.FromDB(err, "failed to get evidence metadata")
	}
	return &f, nil
}
