package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"recipegraph/application/ports"
	"recipegraph/domain/core/entities"
	"recipegraph/domain/core/valueobjects"
	pkgerrors "recipegraph/pkg/errors"
)

// VersionLedger implements ports.VersionLedger on the node_versions table.
// Rows are only ever inserted.
type VersionLedger struct {
	q dbtx
}

var _ ports.VersionLedger = (*VersionLedger)(nil)

func (l *VersionLedger) Append(ctx context.Context, record entities.VersionRecord) error {
	props, err := json.Marshal(record.Properties)
	if err != nil {
		return pkgerrors.NewValidationError(fmt.Sprintf("version snapshot is not serializable: %v", err))
	}
	if record.Properties == nil {
		props = []byte("{}")
	}

	_, err = l.q.ExecContext(ctx, `
INSERT INTO node_versions (node_id, version, status, properties, recorded_at_utc)
VALUES (?, ?, ?, ?, ?)`,
		record.NodeID.String(),
		record.Version,
		string(record.Status),
		string(props),
		formatTime(record.RecordedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.NewConflictError(
				fmt.Sprintf("node %s was modified concurrently; version %d already exists", record.NodeID, record.Version)).
				WithCode("CONCURRENT_MODIFICATION")
		}
		return storageErr("append version", err)
	}
	return nil
}

func (l *VersionLedger) History(ctx context.Context, id valueobjects.NodeID) ([]entities.VersionRecord, error) {
	rows, err := l.q.QueryContext(ctx, `
SELECT version, status, properties, recorded_at_utc
FROM node_versions
WHERE node_id = ?
ORDER BY version ASC`, id.String())
	if err != nil {
		return nil, storageErr("load history", err)
	}
	defer rows.Close()

	records := make([]entities.VersionRecord, 0)
	for rows.Next() {
		var (
			record      entities.VersionRecord
			status      string
			props       string
			recordedRaw string
		)
		if err := rows.Scan(&record.Version, &status, &props, &recordedRaw); err != nil {
			return nil, storageErr("load history", err)
		}
		record.NodeID = id
		record.Status = entities.NodeStatus(status)
		if record.Properties, err = entities.DecodeProperties([]byte(props)); err != nil {
			return nil, storageErr("load history", fmt.Errorf("decode version %d: %v", record.Version, err))
		}
		if record.RecordedAt, err = parseTime(recordedRaw); err != nil {
			return nil, storageErr("load history", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("load history", err)
	}

	if len(records) == 0 {
		return nil, pkgerrors.NewNotFoundError("node", id.String())
	}
	return records, nil
}
