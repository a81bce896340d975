package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"recipegraph/application/ports"
	"recipegraph/domain/core/entities"
	"recipegraph/domain/core/valueobjects"
	pkgerrors "recipegraph/pkg/errors"
)

// nodeColumns selects a node together with the status and version of its
// newest ledger row.
const nodeColumns = `
SELECT n.seq, n.id, n.type, COALESCE(n.node_key, ''), n.properties,
       v.status, v.version, n.created_at_utc, n.updated_at_utc
FROM nodes n
JOIN node_versions v ON v.node_id = n.id
 AND v.version = (SELECT MAX(version) FROM node_versions WHERE node_id = n.id)
`

// NodeRepository implements ports.NodeRepository
type NodeRepository struct {
	q dbtx
}

var _ ports.NodeRepository = (*NodeRepository)(nil)

func (r *NodeRepository) Insert(ctx context.Context, node *entities.Node) error {
	props, err := node.PropertiesJSON()
	if err != nil {
		return pkgerrors.NewValidationError(fmt.Sprintf("properties are not serializable: %v", err))
	}

	var key any
	if node.Key() != "" {
		key = node.Key()
	}

	res, err := r.q.ExecContext(ctx, `
INSERT INTO nodes (id, type, node_key, properties, created_at_utc, updated_at_utc)
VALUES (?, ?, ?, ?, ?, ?)`,
		node.ID().String(),
		node.Type().String(),
		key,
		string(props),
		formatTime(node.CreatedAt()),
		formatTime(node.UpdatedAt()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.NewConflictError(
				fmt.Sprintf("a %s node with key %q already exists", node.Type(), node.Key())).
				WithCode("DUPLICATE_KEY")
		}
		return storageErr("insert node", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return storageErr("insert node", err)
	}
	node.SetSeq(seq)
	return nil
}

func (r *NodeRepository) Update(ctx context.Context, node *entities.Node) error {
	props, err := node.PropertiesJSON()
	if err != nil {
		return pkgerrors.NewValidationError(fmt.Sprintf("properties are not serializable: %v", err))
	}

	res, err := r.q.ExecContext(ctx,
		`UPDATE nodes SET properties = ?, updated_at_utc = ? WHERE id = ?`,
		string(props), formatTime(node.UpdatedAt()), node.ID().String(),
	)
	if err != nil {
		return storageErr("update node", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return pkgerrors.NewNotFoundError("node", node.ID().String())
	}
	return nil
}

func (r *NodeRepository) GetByID(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error) {
	row := r.q.QueryRowContext(ctx, nodeColumns+` WHERE n.id = ?`, id.String())
	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("node", id.String())
	}
	if err != nil {
		return nil, storageErr("get node", err)
	}
	return node, nil
}

func (r *NodeRepository) GetByKey(ctx context.Context, nodeType valueobjects.NodeType, key string) (*entities.Node, error) {
	row := r.q.QueryRowContext(ctx, nodeColumns+` WHERE n.type = ? AND n.node_key = ?`, nodeType.String(), key)
	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError(string(nodeType), key)
	}
	if err != nil {
		return nil, storageErr("get node by key", err)
	}
	return node, nil
}

func (r *NodeRepository) GetMany(ctx context.Context, ids []valueobjects.NodeID) ([]*entities.Node, error) {
	out := make([]*entities.Node, 0, len(ids))
	for _, chunk := range chunkIDs(ids, maxInParams) {
		rows, err := r.q.QueryContext(ctx,
			nodeColumns+` WHERE n.id IN (`+placeholders(len(chunk))+`)`, idArgs(chunk)...)
		if err != nil {
			return nil, storageErr("get nodes", err)
		}
		nodes, err := scanNodes(rows)
		if err != nil {
			return nil, storageErr("get nodes", err)
		}
		out = append(out, nodes...)
	}
	return out, nil
}

func (r *NodeRepository) List(ctx context.Context, filter ports.NodeFilter) ([]*entities.Node, error) {
	query := nodeColumns + ` WHERE v.status = 'ACTIVE'`
	args := make([]any, 0, 3)
	if filter.Type != "" {
		query += ` AND n.type = ?`
		args = append(args, filter.Type.String())
	}
	if filter.AfterSeq > 0 {
		query += ` AND n.seq < ?`
		args = append(args, filter.AfterSeq)
	}
	query += ` ORDER BY n.seq DESC LIMIT ?`
	args = append(args, filter.Limit)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list nodes", err)
	}
	nodes, err := scanNodes(rows)
	if err != nil {
		return nil, storageErr("list nodes", err)
	}
	return nodes, nil
}

func (r *NodeRepository) ActiveSeqs(ctx context.Context, ids []valueobjects.NodeID) (map[valueobjects.NodeID]int64, error) {
	out := make(map[valueobjects.NodeID]int64, len(ids))
	for _, chunk := range chunkIDs(ids, maxInParams) {
		rows, err := r.q.QueryContext(ctx, `
SELECT n.id, n.seq
FROM nodes n
JOIN node_versions v ON v.node_id = n.id
 AND v.version = (SELECT MAX(version) FROM node_versions WHERE node_id = n.id)
WHERE v.status = 'ACTIVE' AND n.id IN (`+placeholders(len(chunk))+`)`, idArgs(chunk)...)
		if err != nil {
			return nil, storageErr("load node status", err)
		}
		for rows.Next() {
			var (
				id  string
				seq int64
			)
			if err := rows.Scan(&id, &seq); err != nil {
				_ = rows.Close()
				return nil, storageErr("load node status", err)
			}
			out[valueobjects.RestoreNodeID(id)] = seq
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, storageErr("load node status", err)
		}
		_ = rows.Close()
	}
	return out, nil
}

func (r *NodeRepository) Purge(ctx context.Context, id valueobjects.NodeID) (int, error) {
	var edges int
	if err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM edges WHERE from_id = ? OR to_id = ?`, id.String(), id.String(),
	).Scan(&edges); err != nil {
		return 0, storageErr("count node edges", err)
	}

	if _, err := r.q.ExecContext(ctx, `DELETE FROM node_search WHERE node_id = ?`, id.String()); err != nil {
		return 0, storageErr("purge search entry", err)
	}

	res, err := r.q.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id.String())
	if err != nil {
		return 0, storageErr("purge node", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, pkgerrors.NewNotFoundError("node", id.String())
	}
	return edges, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*entities.Node, error) {
	var (
		seq                    int64
		id, nodeType, key      string
		props, status          string
		version                int
		createdRaw, updatedRaw string
	)
	if err := row.Scan(&seq, &id, &nodeType, &key, &props, &status, &version, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	properties, err := entities.DecodeProperties([]byte(props))
	if err != nil {
		return nil, fmt.Errorf("decode properties of node %s: %v", id, err)
	}
	createdAt, err := parseTime(createdRaw)
	if err != nil {
		return nil, fmt.Errorf("parse created_at of node %s: %w", id, err)
	}
	updatedAt, err := parseTime(updatedRaw)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at of node %s: %w", id, err)
	}

	return entities.ReconstructNode(
		seq,
		valueobjects.RestoreNodeID(id),
		valueobjects.NodeType(nodeType),
		key,
		properties,
		entities.NodeStatus(status),
		version,
		createdAt,
		updatedAt,
	), nil
}

func scanNodes(rows *sql.Rows) ([]*entities.Node, error) {
	defer rows.Close()

	nodes := make([]*entities.Node, 0)
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}
