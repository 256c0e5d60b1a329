package document_repo

import (
	"context"

	"glasserp/internal/core/id"
	"glasserp/internal/domain"
	"glasserp/internal/domain/production"
	"glasserp/internal/infrastructure/storage/postgres"
)

// ProductionRepo implements production.Repository.
type ProductionRepo struct {
	cards     *postgres.BaseRepo[production.JobCard]
	breakages *postgres.BaseRepo[production.Breakage]
}

// NewProductionRepo creates a new production repository.
func NewProductionRepo(txm *postgres.TxManager) *ProductionRepo {
	return &ProductionRepo{
		cards: postgres.NewBaseRepo[production.JobCard](txm, postgres.TableConfig{
			Table:         "doc_job_cards",
			Entity:        "job card",
			SearchColumns: []string{"job_card_number", "order_number", "customer_name"},
			Unique: map[string]string{
				"doc_job_cards_job_card_number_key": "job_card_number",
				"doc_job_cards_order_id_key":        "order_id",
			},
		}),
		breakages: postgres.NewBaseRepo[production.Breakage](txm, postgres.TableConfig{
			Table:         "doc_breakages",
			Entity:        "breakage",
			SearchColumns: []string{"job_card_number", "operator", "reason"},
		}),
	}
}

func (r *ProductionRepo) Create(ctx context.Context, c *production.JobCard) error {
	return r.cards.Create(ctx, c)
}

func (r *ProductionRepo) Update(ctx context.Context, c *production.JobCard) error {
	return r.cards.Update(ctx, c)
}

func (r *ProductionRepo) GetByID(ctx context.Context, cardID id.ID) (*production.JobCard, error) {
	return r.cards.GetByID(ctx, cardID)
}

func (r *ProductionRepo) GetForUpdate(ctx context.Context, cardID id.ID) (*production.JobCard, error) {
	return r.cards.GetForUpdate(ctx, cardID)
}

func (r *ProductionRepo) ForOrder(ctx context.Context, orderID id.ID) (*production.JobCard, error) {
	return r.cards.GetBy(ctx, "order_id", orderID)
}

func (r *ProductionRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[production.JobCard], error) {
	return r.cards.List(ctx, f)
}

func (r *ProductionRepo) CreateBreakage(ctx context.Context, b *production.Breakage) error {
	return r.breakages.Create(ctx, b)
}

func (r *ProductionRepo) UpdateBreakage(ctx context.Context, b *production.Breakage) error {
	return r.breakages.Update(ctx, b)
}

func (r *ProductionRepo) GetBreakageForUpdate(ctx context.Context, breakageID id.ID) (*production.Breakage, error) {
	return r.breakages.GetForUpdate(ctx, breakageID)
}

func (r *ProductionRepo) ListBreakages(ctx context.Context, f domain.ListFilter) (domain.ListResult[production.Breakage], error) {
	return r.breakages.List(ctx, f)
}
