package document_repo

import (
	"context"

	"glasserp/internal/core/id"
	"glasserp/internal/domain"
	"glasserp/internal/domain/invoice"
	"glasserp/internal/infrastructure/storage/postgres"
)

const invoiceTable = "doc_invoices"

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct {
	base *postgres.BaseRepo[invoice.Invoice]
}

// NewInvoiceRepo creates a new invoice repository.
func NewInvoiceRepo(txm *postgres.TxManager) *InvoiceRepo {
	return &InvoiceRepo{base: postgres.NewBaseRepo[invoice.Invoice](txm, postgres.TableConfig{
		Table:         invoiceTable,
		Entity:        "invoice",
		SearchColumns: []string{"invoice_number", "customer_name", "order_number"},
		DateColumn:    "invoice_date",
		DefaultOrder:  "invoice_date DESC",
		Unique: map[string]string{
			"doc_invoices_invoice_number_key": "invoice_number",
			"doc_invoices_order_id_key":       "order_id",
		},
	})}
}

func (r *InvoiceRepo) Create(ctx context.Context, inv *invoice.Invoice) error {
	return r.base.Create(ctx, inv)
}

func (r *InvoiceRepo) Update(ctx context.Context, inv *invoice.Invoice) error {
	return r.base.Update(ctx, inv)
}

func (r *InvoiceRepo) GetByID(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	return r.base.GetByID(ctx, invoiceID)
}

func (r *InvoiceRepo) GetForUpdate(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	return r.base.GetForUpdate(ctx, invoiceID)
}

func (r *InvoiceRepo) GetByOrderID(ctx context.Context, orderID id.ID) (*invoice.Invoice, error) {
	return r.base.GetBy(ctx, "order_id", orderID)
}

func (r *InvoiceRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[invoice.Invoice], error) {
	return r.base.List(ctx, f)
}
