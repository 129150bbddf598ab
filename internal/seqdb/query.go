package seqdb

import (
	"context"
	"fmt"
)

// Collection summarizes one stored collection.
type Collection struct {
	Name        string
	Description string
	Entries     int
}

// Entry is a stored record as read back from the store.
type Entry struct {
	Name      string
	Accession string
	Version   int
	Length    int
	Alphabet  string
	Sequence  string
}

// Collections lists every collection with its entry count, ordered by name.
func (s *Server) Collections(ctx context.Context) ([]Collection, error) {
	if s.Closed() {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `SELECT d.name, d.description, COUNT(e.bioentry_id)
		FROM biodatabase d LEFT JOIN bioentry e ON e.biodatabase_id = d.biodatabase_id
		GROUP BY d.biodatabase_id, d.name, d.description
		ORDER BY d.name`)
	if err != nil {
		return nil, fmt.Errorf("select collections: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Collection
	for rows.Next() {
		var c Collection
		var desc *string
		if err := rows.Scan(&c.Name, &desc, &c.Entries); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		if desc != nil {
			c.Description = *desc
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	return out, nil
}

// Entries returns the records of the named collection in insertion order.
func (s *Server) Entries(ctx context.Context, collection string) ([]Entry, error) {
	if s.Closed() {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, s.d.rebind(`SELECT e.name, e.accession, e.version, q.length, q.alphabet, q.seq
		FROM bioentry e
		JOIN biodatabase d ON d.biodatabase_id = e.biodatabase_id
		JOIN biosequence q ON q.bioentry_id = e.bioentry_id
		WHERE d.name = ?
		ORDER BY e.bioentry_id`), collection)
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.Accession, &e.Version, &e.Length, &e.Alphabet, &e.Sequence); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}
