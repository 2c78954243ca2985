// Package sqlxrepos implements the repositories on top of a SQL database, through sqlx.
// Students are stored as JSON documents of the "students" collection so the table stays schemaless.
package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var errNoDocument = errors.New("document not found")

type documentRow struct {
	Seq       int64     `db:"seq"`
	ID        string    `db:"id"`
	Data      string    `db:"data"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// documents is one collection of the documents table.
type documents struct {
	db         *sqlx.DB
	collection string
	nowFunc    func() time.Time // mockable
}

func newDocuments(db *sqlx.DB, collection string) *documents {
	return &documents{db: db, collection: collection, nowFunc: time.Now}
}

func (docs *documents) insert(ctx context.Context, id string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding document")
	}
	now := docs.nowFunc().UTC()
	q := docs.db.Rebind(`INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`)
	if _, err = docs.db.ExecContext(ctx, q, docs.collection, id, string(data), now, now); err != nil {
		return errors.Wrap(err, "inserting document")
	}
	return nil
}

// all returns the documents in insertion order.
func (docs *documents) all(ctx context.Context) ([]documentRow, error) {
	var rows []documentRow
	q := docs.db.Rebind(`SELECT seq, id, data, created_at, updated_at FROM documents WHERE collection = ? ORDER BY seq`)
	if err := docs.db.SelectContext(ctx, &rows, q, docs.collection); err != nil {
		return nil, errors.Wrap(err, "selecting documents")
	}
	return rows, nil
}

func (docs *documents) get(ctx context.Context, id string) (documentRow, error) {
	var row documentRow
	q := docs.db.Rebind(`SELECT seq, id, data, created_at, updated_at FROM documents WHERE collection = ? AND id = ?`)
	if err := docs.db.GetContext(ctx, &row, q, docs.collection, id); err != nil {
		if err == sql.ErrNoRows {
			return documentRow{}, errNoDocument
		}
		return documentRow{}, errors.Wrap(err, "selecting document")
	}
	return row, nil
}

// replace overwrites the content of an existing document.
func (docs *documents) replace(ctx context.Context, id string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding document")
	}
	q := docs.db.Rebind(`UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?`)
	res, err := docs.db.ExecContext(ctx, q, string(data), docs.nowFunc().UTC(), docs.collection, id)
	if err != nil {
		return errors.Wrap(err, "updating document")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "updating document")
	}
	if n == 0 {
		return errNoDocument
	}
	return nil
}

func (docs *documents) delete(ctx context.Context, id string) error {
	q := docs.db.Rebind(`DELETE FROM documents WHERE collection = ? AND id = ?`)
	if _, err := docs.db.ExecContext(ctx, q, docs.collection, id); err != nil {
		return errors.Wrap(err, "deleting document")
	}
	return nil
}

func decode(row documentRow, v interface{}) error {
	if err := json.Unmarshal([]byte(row.Data), v); err != nil {
		return errors.Wrapf(err, "decoding document %s", row.ID)
	}
	return nil
}
