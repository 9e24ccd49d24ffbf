package mysql

import (
	"context"
	"database/sql"

	"github.com/delonixservices/crm/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// Repo is the document ledger: generated PDFs and e-mail dispatch attempts.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) RecordDocument(ctx context.Context, d domain.DocumentRecord) error {
	_, err := r.db.ExecContext(ctx, insertDocumentSQL,
		d.ID,
		d.ProposalID,
		d.Filename,
		d.SHA256,
		d.SizeBytes,
		d.Pages,
		d.CreatedAt.UTC(),
	)
	return err
}

func (r *Repo) RecordDispatch(ctx context.Context, d domain.DispatchRecord) error {
	_, err := r.db.ExecContext(ctx, insertDispatchSQL,
		d.ID,
		d.ProposalID,
		d.Recipient,
		d.Status,
		valStr(d.Error),
		d.CreatedAt.UTC(),
	)
	return err
}

// ListDocuments returns the newest documents and dispatches of a proposal,
// at most limit of each.
func (r *Repo) ListDocuments(ctx context.Context, proposalID string, limit int) (domain.DocumentsPage, error) {
	docs, err := r.listDocuments(ctx, proposalID, limit)
	if err != nil {
		return domain.DocumentsPage{}, err
	}
	ds, err := r.listDispatches(ctx, proposalID, limit)
	if err != nil {
		return domain.DocumentsPage{}, err
	}
	return domain.DocumentsPage{Documents: docs, Dispatches: ds}, nil
}

func (r *Repo) listDocuments(ctx context.Context, proposalID string, limit int) ([]domain.DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx, listDocumentsSQL, proposalID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.DocumentRecord{}
	for rows.Next() {
		var d domain.DocumentRecord
		if err := rows.Scan(&d.ID, &d.ProposalID, &d.Filename, &d.SHA256, &d.SizeBytes, &d.Pages, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repo) listDispatches(ctx context.Context, proposalID string, limit int) ([]domain.DispatchRecord, error) {
	rows, err := r.db.QueryContext(ctx, listDispatchesSQL, proposalID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.DispatchRecord{}
	for rows.Next() {
		var (
			d      domain.DispatchRecord
			errMsg sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.ProposalID, &d.Recipient, &d.Status, &errMsg, &d.CreatedAt); err != nil {
			return nil, err
		}
		if errMsg.Valid {
			s := errMsg.String
			d.Error = &s
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
