package sqlite

import (
	"context"

	"recipegraph/application/ports"
	"recipegraph/domain/core/valueobjects"
)

// SearchIndex implements ports.SearchIndex on the node_search FTS5 table.
type SearchIndex struct {
	q dbtx
}

var _ ports.SearchIndex = (*SearchIndex)(nil)

func (s *SearchIndex) Index(ctx context.Context, id valueobjects.NodeID, nodeType valueobjects.NodeType, content string) error {
	if err := s.Remove(ctx, id); err != nil {
		return err
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO node_search (node_id, node_type, content) VALUES (?, ?, ?)`,
		id.String(), nodeType.String(), content,
	)
	return storageErr("index node", err)
}

func (s *SearchIndex) Remove(ctx context.Context, id valueobjects.NodeID) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM node_search WHERE node_id = ?`, id.String())
	return storageErr("remove search entry", err)
}

// Search ranks by bm25 (lower is better in SQLite, so the score is its
// negation), breaking ties by most recent update and then by id.
func (s *SearchIndex) Search(ctx context.Context, criteria ports.SearchCriteria) ([]ports.SearchMatch, error) {
	if criteria.Match == "" || criteria.Limit <= 0 {
		return []ports.SearchMatch{}, nil
	}

	query := `
SELECT n.seq, n.id, n.type, COALESCE(n.node_key, ''), n.properties,
       v.status, v.version, n.created_at_utc, n.updated_at_utc,
       bm25(node_search) AS match_rank
FROM node_search
JOIN nodes n ON n.id = node_search.node_id
JOIN node_versions v ON v.node_id = n.id
 AND v.version = (SELECT MAX(version) FROM node_versions WHERE node_id = n.id)
WHERE node_search MATCH ? AND v.status = 'ACTIVE'`
	args := []any{criteria.Match}
	if criteria.Type != "" {
		query += ` AND node_search.node_type = ?`
		args = append(args, criteria.Type.String())
	}
	query += `
ORDER BY match_rank ASC, n.updated_at_utc DESC, n.id ASC
LIMIT ?`
	args = append(args, criteria.Limit)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("search", err)
	}
	defer rows.Close()

	matches := make([]ports.SearchMatch, 0)
	for rows.Next() {
		var rank float64
		node, err := scanNode(scanWithRank{rows: rows, rank: &rank})
		if err != nil {
			return nil, storageErr("search", err)
		}
		matches = append(matches, ports.SearchMatch{Node: node, Score: -rank})
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("search", err)
	}
	return matches, nil
}

// scanWithRank appends the rank column to the node columns scanNode reads.
type scanWithRank struct {
	rows rowScanner
	rank *float64
}

func (s scanWithRank) Scan(dest ...any) error {
	return s.rows.Scan(append(dest, s.rank)...)
}
