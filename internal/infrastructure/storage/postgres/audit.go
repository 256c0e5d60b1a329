package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"glasserp/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm used for snapshots.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// defaultCompressThreshold is the snapshot size above which old/new data
// is stored zstd-compressed instead of as JSONB.
const defaultCompressThreshold = 10 * 1024

// auditRow is the sys_audit row layout.
type auditRow struct {
	audit.Entry
	OldDataJSON     []byte          `db:"old_data"`
	NewDataJSON     []byte          `db:"new_data"`
	DataCompressed  []byte          `db:"data_compressed"`
	CompressionAlgo CompressionAlgo `db:"compression_algo"`
}

type snapshotPair struct {
	Old json.RawMessage `json:"old,omitempty"`
	New json.RawMessage `json:"new,omitempty"`
}

// AuditStore implements audit.Repository over sys_audit.
type AuditStore struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditStore creates a new audit store.
func NewAuditStore(txManager *TxManager) (*AuditStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditStore{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: defaultCompressThreshold,
	}, nil
}

// Insert records an audit entry. Large snapshots are compressed.
func (s *AuditStore) Insert(ctx context.Context, e *audit.Entry) error {
	row := auditRow{Entry: *e, CompressionAlgo: CompressionNone}
	if len(e.OldData)+len(e.NewData) > s.compressThreshold {
		payload, err := json.Marshal(snapshotPair{Old: e.OldData, New: e.NewData})
		if err != nil {
			return fmt.Errorf("marshal snapshots: %w", err)
		}
		row.DataCompressed = s.encoder.EncodeAll(payload, nil)
		row.CompressionAlgo = CompressionZstd
	} else {
		row.OldDataJSON = nullableJSON(e.OldData)
		row.NewDataJSON = nullableJSON(e.NewData)
	}

	sql := `
		INSERT INTO sys_audit (
			id, user_id, user_name, user_role, action, module, record_id,
			old_data, new_data, data_compressed, compression_algo,
			ip, timestamp, date, month, year
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql,
		row.ID, row.UserID, row.UserName, row.UserRole, row.Action, row.Module, row.RecordID,
		row.OldDataJSON, row.NewDataJSON, row.DataCompressed, row.CompressionAlgo,
		row.IP, row.Timestamp, row.Date, row.Month, row.Year,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns entries newest first with the total match count.
func (s *AuditStore) List(ctx context.Context, f audit.Filter) ([]audit.Entry, int, error) {
	where := squirrel.And{}
	if f.UserID != "" {
		where = append(where, squirrel.Eq{"user_id": f.UserID})
	}
	if f.Module != "" {
		where = append(where, squirrel.Eq{"module": f.Module})
	}
	if f.Action != "" {
		where = append(where, squirrel.Eq{"action": f.Action})
	}
	if f.RecordID != "" {
		where = append(where, squirrel.Eq{"record_id": f.RecordID})
	}
	if f.From != nil {
		where = append(where, squirrel.GtOrEq{"timestamp": *f.From})
	}
	if f.To != nil {
		where = append(where, squirrel.Lt{"timestamp": *f.To})
	}

	q := s.txManager.GetQuerier(ctx)

	countSQL, countArgs, err := Builder().Select("COUNT(*)").From("sys_audit").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	sql, args, err := Builder().
		Select("id", "user_id", "user_name", "user_role", "action", "module", "record_id",
			"old_data", "new_data", "data_compressed", "compression_algo",
			"ip", "timestamp", "date", "month", "year").
		From("sys_audit").
		Where(where).
		OrderBy("timestamp DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(max(f.Skip, 0))).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	var rows []auditRow
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}

	entries := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := s.decode(row)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, nil
}

func (s *AuditStore) decode(row auditRow) (audit.Entry, error) {
	e := row.Entry
	if row.CompressionAlgo == CompressionZstd && len(row.DataCompressed) > 0 {
		payload, err := s.decoder.DecodeAll(row.DataCompressed, nil)
		if err != nil {
			return e, fmt.Errorf("decompress audit data: %w", err)
		}
		var pair snapshotPair
		if err := json.Unmarshal(payload, &pair); err != nil {
			return e, fmt.Errorf("unmarshal audit data: %w", err)
		}
		e.OldData, e.NewData = pair.Old, pair.New
		return e, nil
	}
	e.OldData = row.OldDataJSON
	e.NewData = row.NewDataJSON
	return e, nil
}

// ActivityCounts aggregates actions per local day, user, module and action.
func (s *AuditStore) ActivityCounts(ctx context.Context, from, to time.Time) ([]audit.ActivityCount, error) {
	counts := []audit.ActivityCount{}
	err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &counts, `
		SELECT date, user_id, MAX(user_name) AS user_name, MAX(user_role) AS user_role,
			   module, action, COUNT(*)::int AS count
		FROM sys_audit
		WHERE timestamp >= $1 AND timestamp < $2
		GROUP BY date, user_id, module, action
		ORDER BY date, user_id, module, action
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("audit activity counts: %w", err)
	}
	return counts, nil
}

func nullableJSON(b json.RawMessage) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
