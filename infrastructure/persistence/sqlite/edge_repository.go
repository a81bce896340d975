package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"recipegraph/application/ports"
	"recipegraph/domain/core/entities"
	"recipegraph/domain/core/valueobjects"
	pkgerrors "recipegraph/pkg/errors"
)

const edgeColumns = `SELECT id, from_id, to_id, type, properties, created_at_utc FROM edges`

// EdgeRepository implements ports.EdgeRepository
type EdgeRepository struct {
	q dbtx
}

var _ ports.EdgeRepository = (*EdgeRepository)(nil)

func (r *EdgeRepository) Insert(ctx context.Context, edge *entities.Edge) error {
	var props any
	if len(edge.Properties) > 0 {
		raw, err := json.Marshal(edge.Properties)
		if err != nil {
			return pkgerrors.NewValidationError(fmt.Sprintf("edge properties are not serializable: %v", err))
		}
		props = string(raw)
	}

	res, err := r.q.ExecContext(ctx, `
INSERT INTO edges (from_id, to_id, type, properties, created_at_utc)
VALUES (?, ?, ?, ?, ?)`,
		edge.FromID.String(),
		edge.ToID.String(),
		edge.Type.String(),
		props,
		formatTime(edge.CreatedAt),
	)
	if err != nil {
		return storageErr("insert edge", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return storageErr("insert edge", err)
	}
	edge.ID = id
	return nil
}

func (r *EdgeRepository) GetByID(ctx context.Context, id int64) (*entities.Edge, error) {
	edge, err := scanEdge(r.q.QueryRowContext(ctx, edgeColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("edge", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, storageErr("get edge", err)
	}
	return edge, nil
}

func (r *EdgeRepository) GetMany(ctx context.Context, ids []int64) ([]*entities.Edge, error) {
	out := make([]*entities.Edge, 0, len(ids))
	for start := 0; start < len(ids); start += maxInParams {
		end := min(start+maxInParams, len(ids))
		chunk := ids[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		rows, err := r.q.QueryContext(ctx,
			edgeColumns+` WHERE id IN (`+placeholders(len(chunk))+`) ORDER BY id`, args...)
		if err != nil {
			return nil, storageErr("get edges", err)
		}
		edges, err := scanEdges(rows)
		if err != nil {
			return nil, storageErr("get edges", err)
		}
		out = append(out, edges...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *EdgeRepository) Find(ctx context.Context, filter ports.EdgeFilter) ([]*entities.Edge, error) {
	query := edgeColumns + ` WHERE 1 = 1`
	args := make([]any, 0, 4)
	if !filter.FromID.IsZero() {
		query += ` AND from_id = ?`
		args = append(args, filter.FromID.String())
	}
	if !filter.ToID.IsZero() {
		query += ` AND to_id = ?`
		args = append(args, filter.ToID.String())
	}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, filter.Type.String())
	}
	query += ` ORDER BY id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("find edges", err)
	}
	edges, err := scanEdges(rows)
	if err != nil {
		return nil, storageErr("find edges", err)
	}
	return edges, nil
}

func (r *EdgeRepository) Incident(ctx context.Context, nodeIDs []valueobjects.NodeID, limit int) ([]ports.EdgeRef, error) {
	seen := make(map[int64]bool)
	refs := make([]ports.EdgeRef, 0)

	for _, chunk := range chunkIDs(nodeIDs, maxInParams) {
		in := placeholders(len(chunk))
		args := append(idArgs(chunk), idArgs(chunk)...)
		args = append(args, limit)

		rows, err := r.q.QueryContext(ctx, `
SELECT id, from_id, to_id FROM edges
WHERE from_id IN (`+in+`) OR to_id IN (`+in+`)
ORDER BY id
LIMIT ?`, args...)
		if err != nil {
			return nil, storageErr("load incident edges", err)
		}

		for rows.Next() {
			var (
				ref      ports.EdgeRef
				from, to string
			)
			if err := rows.Scan(&ref.ID, &from, &to); err != nil {
				_ = rows.Close()
				return nil, storageErr("load incident edges", err)
			}
			if seen[ref.ID] {
				continue
			}
			seen[ref.ID] = true
			ref.FromID = valueobjects.RestoreNodeID(from)
			ref.ToID = valueobjects.RestoreNodeID(to)
			refs = append(refs, ref)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, storageErr("load incident edges", err)
		}
		_ = rows.Close()
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	if len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

func (r *EdgeRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM edges WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete edge", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return pkgerrors.NewNotFoundError("edge", strconv.FormatInt(id, 10))
	}
	return nil
}

func scanEdge(row rowScanner) (*entities.Edge, error) {
	var (
		edge            entities.Edge
		from, to, eType string
		props           sql.NullString
		createdRaw      string
	)
	if err := row.Scan(&edge.ID, &from, &to, &eType, &props, &createdRaw); err != nil {
		return nil, err
	}

	if props.Valid && props.String != "" {
		decoded, err := entities.DecodeProperties([]byte(props.String))
		if err != nil {
			return nil, fmt.Errorf("decode properties of edge %d: %v", edge.ID, err)
		}
		edge.Properties = decoded
	}
	createdAt, err := parseTime(createdRaw)
	if err != nil {
		return nil, fmt.Errorf("parse created_at of edge %d: %w", edge.ID, err)
	}

	edge.FromID = valueobjects.RestoreNodeID(from)
	edge.ToID = valueobjects.RestoreNodeID(to)
	edge.Type = valueobjects.EdgeType(eType)
	edge.CreatedAt = createdAt
	return &edge, nil
}

func scanEdges(rows *sql.Rows) ([]*entities.Edge, error) {
	defer rows.Close()

	edges := make([]*entities.Edge, 0)
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}
