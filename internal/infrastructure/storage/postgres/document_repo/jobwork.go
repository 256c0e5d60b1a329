package document_repo

import (
	"context"

	"glasserp/internal/core/id"
	"glasserp/internal/domain"
	"glasserp/internal/domain/jobwork"
	"glasserp/internal/infrastructure/storage/postgres"
)

// JobWorkRepo implements jobwork.Repository.
type JobWorkRepo struct {
	base *postgres.BaseRepo[jobwork.Order]
}

// NewJobWorkRepo creates a new job-work repository.
func NewJobWorkRepo(txm *postgres.TxManager) *JobWorkRepo {
	return &JobWorkRepo{base: postgres.NewBaseRepo[jobwork.Order](txm, postgres.TableConfig{
		Table:         "doc_job_work_orders",
		Entity:        "job work order",
		SearchColumns: []string{"job_work_number", "customer_name", "phone"},
		Unique:        map[string]string{"doc_job_work_orders_job_work_number_key": "job_work_number"},
	})}
}

func (r *JobWorkRepo) Create(ctx context.Context, o *jobwork.Order) error {
	return r.base.Create(ctx, o)
}

func (r *JobWorkRepo) Update(ctx context.Context, o *jobwork.Order) error {
	return r.base.Update(ctx, o)
}

func (r *JobWorkRepo) GetByID(ctx context.Context, orderID id.ID) (*jobwork.Order, error) {
	return r.base.GetByID(ctx, orderID)
}

func (r *JobWorkRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*jobwork.Order, error) {
	return r.base.GetForUpdate(ctx, orderID)
}

func (r *JobWorkRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[jobwork.Order], error) {
	return r.base.List(ctx, f)
}
