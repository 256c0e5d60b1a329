package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/id"
	"glasserp/internal/domain"
	"glasserp/internal/domain/filter"
)

// TableConfig describes how a collection maps to its table.
type TableConfig struct {
	Table string
	// Entity is the name used in not-found and conflict errors.
	Entity string
	// SearchColumns are matched with ILIKE by ListFilter.Search.
	SearchColumns []string
	// DateColumn is bounded by ListFilter.From/To (default created_at).
	DateColumn string
	// DefaultOrder is used when the filter names none (default "created_at DESC").
	DefaultOrder string
	// Unique maps unique index names to the field reported in duplicate errors.
	Unique map[string]string
}

// BaseRepo provides CRUD for one collection stored as one table.
// Columns come from the struct's db tags; nested slices and maps are JSONB.
type BaseRepo[T any] struct {
	txm    *TxManager
	cfg    TableConfig
	cols   []string
	colSet map[string]struct{}
}

// NewBaseRepo creates a repository for T.
func NewBaseRepo[T any](txm *TxManager, cfg TableConfig) *BaseRepo[T] {
	cols := ExtractDBColumns[T]()
	set := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		set[c] = struct{}{}
	}
	if cfg.DateColumn == "" {
		cfg.DateColumn = "created_at"
	}
	if cfg.DefaultOrder == "" {
		cfg.DefaultOrder = "created_at DESC"
	}
	if cfg.Entity == "" {
		cfg.Entity = cfg.Table
	}
	return &BaseRepo[T]{txm: txm, cfg: cfg, cols: cols, colSet: set}
}

// Builder returns a new squirrel builder.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Querier returns the transaction in ctx or the pool.
func (r *BaseRepo[T]) Querier(ctx context.Context) Querier {
	return r.txm.GetQuerier(ctx)
}

// Columns returns the selected column list.
func (r *BaseRepo[T]) Columns() []string {
	return r.cols
}

// Select starts a SELECT over all columns.
func (r *BaseRepo[T]) Select() squirrel.SelectBuilder {
	return Builder().Select(r.cols...).From(r.cfg.Table)
}

// Create inserts a new row.
func (r *BaseRepo[T]) Create(ctx context.Context, entity *T) error {
	data := StructToMap(entity)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in %T", entity)
	}

	sql, args, err := Builder().Insert(r.cfg.Table).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return r.mapWriteErr(err)
	}
	return nil
}

// Update writes every mutable column with optimistic locking on version.
// On success the in-memory version is advanced.
func (r *BaseRepo[T]) Update(ctx context.Context, entity *T) error {
	data := StructToMap(entity)
	entityID, ok := data["id"]
	if !ok {
		return fmt.Errorf("%T has no id column", entity)
	}
	version, ok := data["version"].(int)
	if !ok {
		return fmt.Errorf("%T has no int version column", entity)
	}

	set := mutableColumns(data)
	sql, args, err := Builder().
		Update(r.cfg.Table).
		SetMap(set).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": entityID, "version": version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return r.mapWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.cfg.Entity, entityID)
	}
	bumpVersion(entity)
	return nil
}

// UpdateWhere writes every mutable column only while the stored row still
// satisfies expect (e.g. {"status": "approved"}). A failed predicate is
// reported as an invalid transition from the stored value.
func (r *BaseRepo[T]) UpdateWhere(ctx context.Context, entity *T, expect squirrel.Eq) error {
	data := StructToMap(entity)
	entityID, ok := data["id"]
	if !ok {
		return fmt.Errorf("%T has no id column", entity)
	}

	where := squirrel.Eq{"id": entityID}
	for k, v := range expect {
		where[k] = v
	}

	sql, args, err := Builder().
		Update(r.cfg.Table).
		SetMap(mutableColumns(data)).
		Set("version", squirrel.Expr("version + 1")).
		Where(where).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return r.mapWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return r.predicateFailed(ctx, entityID, expect)
	}
	bumpVersion(entity)
	return nil
}

func (r *BaseRepo[T]) predicateFailed(ctx context.Context, entityID any, expect squirrel.Eq) error {
	status, ok := expect["status"]
	if !ok {
		return apperror.NewConcurrentModification(r.cfg.Entity, entityID)
	}
	var current string
	err := r.Querier(ctx).QueryRow(ctx,
		"SELECT status FROM "+r.cfg.Table+" WHERE id = $1", entityID).Scan(&current)
	if err != nil {
		if pgxscan.NotFound(err) {
			return apperror.NewNotFound(r.cfg.Entity, entityID)
		}
		return fmt.Errorf("read %s status: %w", r.cfg.Table, err)
	}
	return apperror.NewConflict(fmt.Sprintf("%s status changed to %s, expected %v", r.cfg.Entity, current, status)).
		WithDetail("status", current)
}

// GetByID retrieves a row by id.
func (r *BaseRepo[T]) GetByID(ctx context.Context, entityID id.ID) (*T, error) {
	return r.FindOne(ctx, r.Select().Where(squirrel.Eq{"id": entityID}), entityID)
}

// GetForUpdate retrieves a row and locks it until the transaction ends.
func (r *BaseRepo[T]) GetForUpdate(ctx context.Context, entityID id.ID) (*T, error) {
	return r.FindOne(ctx, r.Select().Where(squirrel.Eq{"id": entityID}).Suffix("FOR UPDATE"), entityID)
}

// GetBy retrieves the single row where column = value.
func (r *BaseRepo[T]) GetBy(ctx context.Context, column string, value any) (*T, error) {
	return r.FindOne(ctx, r.Select().Where(squirrel.Eq{column: value}), value)
}

// FindOne executes q and scans one row. ref is reported in not-found errors.
func (r *BaseRepo[T]) FindOne(ctx context.Context, q squirrel.SelectBuilder, ref any) (*T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var entity T
	if err := pgxscan.Get(ctx, r.Querier(ctx), &entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(r.cfg.Entity, ref)
		}
		return nil, fmt.Errorf("get %s: %w", r.cfg.Table, err)
	}
	return &entity, nil
}

// FindAll executes q and scans every row.
func (r *BaseRepo[T]) FindAll(ctx context.Context, q squirrel.SelectBuilder) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var items []T
	if err := pgxscan.Select(ctx, r.Querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", r.cfg.Table, err)
	}
	return items, nil
}

// List retrieves rows with filtering and pagination.
func (r *BaseRepo[T]) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[T], error) {
	f = f.Normalize()
	result := domain.ListResult[T]{Limit: f.Limit, Skip: f.Skip, Items: []T{}}

	q, err := r.ApplyFilter(r.Select(), f)
	if err != nil {
		return result, err
	}

	countSQL, countArgs, err := Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := r.Querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count %s: %w", r.cfg.Table, err)
	}

	orderBy, err := r.parseOrderBy(f.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy, "id").Limit(uint64(f.Limit)).Offset(uint64(f.Skip))

	items, err := r.FindAll(ctx, q)
	if err != nil {
		return result, err
	}
	if items != nil {
		result.Items = items
	}
	return result, nil
}

// ApplyFilter adds search, date-range and field conditions to q.
// Field names are checked against the table's columns.
func (r *BaseRepo[T]) ApplyFilter(q squirrel.SelectBuilder, f domain.ListFilter) (squirrel.SelectBuilder, error) {
	if s := strings.TrimSpace(f.Search); s != "" && len(r.cfg.SearchColumns) > 0 {
		pattern := "%" + s + "%"
		or := squirrel.Or{}
		for _, col := range r.cfg.SearchColumns {
			or = append(or, squirrel.ILike{col: pattern})
		}
		q = q.Where(or)
	}
	if f.From != nil {
		q = q.Where(squirrel.GtOrEq{r.cfg.DateColumn: *f.From})
	}
	if f.To != nil {
		q = q.Where(squirrel.Lt{r.cfg.DateColumn: *f.To})
	}

	for _, item := range f.Filters {
		if _, ok := r.colSet[item.Field]; !ok {
			return q, apperror.NewFieldValidation(item.Field, "unknown filter field "+item.Field)
		}
		switch item.Operator {
		case filter.Equal, filter.InList, "":
			q = q.Where(squirrel.Eq{item.Field: item.Value})
		case filter.NotEqual, filter.NotInList:
			q = q.Where(squirrel.NotEq{item.Field: item.Value})
		case filter.Less:
			q = q.Where(squirrel.Lt{item.Field: item.Value})
		case filter.Greater:
			q = q.Where(squirrel.Gt{item.Field: item.Value})
		case filter.LessOrEqual:
			q = q.Where(squirrel.LtOrEq{item.Field: item.Value})
		case filter.GreaterOrEqual:
			q = q.Where(squirrel.GtOrEq{item.Field: item.Value})
		case filter.Contains:
			q = q.Where(squirrel.ILike{item.Field: fmt.Sprintf("%%%v%%", item.Value)})
		case filter.IsNull:
			q = q.Where(squirrel.Eq{item.Field: nil})
		case filter.IsNotNull:
			q = q.Where(squirrel.NotEq{item.Field: nil})
		default:
			return q, apperror.NewFieldValidation(item.Field, "unknown filter operator "+string(item.Operator))
		}
	}
	return q, nil
}

func (r *BaseRepo[T]) parseOrderBy(orderBy string) (string, error) {
	orderBy = strings.TrimSpace(orderBy)
	if orderBy == "" {
		return r.cfg.DefaultOrder, nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else {
		field = strings.TrimPrefix(orderBy, "+")
	}

	if _, ok := r.colSet[field]; !ok {
		return "", apperror.NewValidation("invalid order_by").WithDetail("order_by", orderBy)
	}
	return field + " " + direction, nil
}

func (r *BaseRepo[T]) mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		field := r.cfg.Unique[pgErr.ConstraintName]
		if field == "" {
			field = pgErr.ConstraintName
		}
		return apperror.NewDuplicate(r.cfg.Entity, field, "").WithCause(err)
	}
	return fmt.Errorf("write %s: %w", r.cfg.Table, err)
}

// IsUniqueViolation reports whether err is a unique-constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return apperror.IsCode(err, apperror.CodeDuplicate)
}

func mutableColumns(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for col, val := range data {
		switch col {
		case "id", "created_at", "created_by", "version":
			continue
		}
		out[col] = val
	}
	return out
}

type versioned interface {
	BumpVersion()
}

func bumpVersion(entity any) {
	if v, ok := entity.(versioned); ok {
		v.BumpVersion()
	}
}
