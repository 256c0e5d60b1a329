package catalog_repo

import (
	"context"
	"fmt"

	"glasserp/internal/domain/settings"
	"glasserp/internal/infrastructure/storage/postgres"
)

const settingsTable = "sys_settings"

// SettingsChannel is the NOTIFY channel carrying the changed settings type.
const SettingsChannel = "settings_changed"

// SettingsRepo implements settings.Repository. One row per settings type.
type SettingsRepo struct {
	base *postgres.BaseRepo[settings.Document]
}

// NewSettingsRepo creates a new settings repository.
func NewSettingsRepo(txm *postgres.TxManager) *SettingsRepo {
	return &SettingsRepo{base: postgres.NewBaseRepo[settings.Document](txm, postgres.TableConfig{
		Table:        settingsTable,
		Entity:       "settings",
		DefaultOrder: "type ASC",
	})}
}

func (r *SettingsRepo) Get(ctx context.Context, t settings.Type) (*settings.Document, error) {
	return r.base.GetBy(ctx, "type", t)
}

// Upsert writes the document and notifies settings_changed on commit so
// process-local caches drop their copy.
func (r *SettingsRepo) Upsert(ctx context.Context, doc *settings.Document) error {
	q := r.base.Querier(ctx)
	_, err := q.Exec(ctx, `
		INSERT INTO sys_settings (type, data, updated_by, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (type) DO UPDATE
		SET data = EXCLUDED.data, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at
	`, doc.Type, doc.Data, doc.UpdatedBy, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert settings %s: %w", doc.Type, err)
	}
	if _, err := q.Exec(ctx, `SELECT pg_notify($1, $2)`, SettingsChannel, string(doc.Type)); err != nil {
		return fmt.Errorf("notify settings %s: %w", doc.Type, err)
	}
	return nil
}
