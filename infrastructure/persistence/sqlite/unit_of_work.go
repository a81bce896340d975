package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"recipegraph/application/ports"
	"recipegraph/domain/core/valueobjects"
)

// dbtx is the subset of *sql.Tx the repositories need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type unitOfWork struct {
	nodes    *NodeRepository
	edges    *EdgeRepository
	versions *VersionLedger
	search   *SearchIndex
}

func newUnitOfWork(q dbtx) *unitOfWork {
	return &unitOfWork{
		nodes:    &NodeRepository{q: q},
		edges:    &EdgeRepository{q: q},
		versions: &VersionLedger{q: q},
		search:   &SearchIndex{q: q},
	}
}

func (u *unitOfWork) NodeRepository() ports.NodeRepository { return u.nodes }
func (u *unitOfWork) EdgeRepository() ports.EdgeRepository { return u.edges }
func (u *unitOfWork) VersionLedger() ports.VersionLedger   { return u.versions }
func (u *unitOfWork) SearchIndex() ports.SearchIndex       { return u.search }

// maxInParams bounds the number of ids bound into one IN (...) list.
const maxInParams = 500

func chunkIDs(ids []valueobjects.NodeID, size int) [][]valueobjects.NodeID {
	var chunks [][]valueobjects.NodeID
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func idArgs(ids []valueobjects.NodeID) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}
	return args
}
