package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/entity"
	"glasserp/internal/core/events"
	"glasserp/internal/core/id"
	"glasserp/internal/core/tx"
	"glasserp/internal/core/types"
	"glasserp/internal/domain"
)

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

func TestMaterial_Next(t *testing.T) {
	m := &Material{Catalog: entity.NewCatalog("Clear 8mm"), CurrentStock: qty(10)}

	tests := []struct {
		name string
		typ  TxType
		q    types.Quantity
		want types.Quantity
		code string
	}{
		{"in", TxIn, qty(5), qty(15), ""},
		{"out", TxOut, qty(4), qty(6), ""},
		{"out all", TxOut, qty(10), 0, ""},
		{"overdraw", TxOut, qty(10.5), 0, apperror.CodeInsufficientStock},
		{"adjust", TxAdjust, qty(7), qty(7), ""},
		{"adjust to zero", TxAdjust, 0, 0, ""},
		{"negative in", TxIn, qty(-1), 0, apperror.CodeValidation},
		{"zero out", TxOut, 0, 0, apperror.CodeValidation},
		{"unknown", TxType("MOVE"), qty(1), 0, apperror.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Next(tt.typ, tt.q)
			if tt.code != "" {
				assert.True(t, apperror.IsCode(err, tt.code), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTxType(t *testing.T) {
	typ, ok := ParseTxType("out")
	assert.True(t, ok)
	assert.Equal(t, TxOut, typ)
	_, ok = ParseTxType("transfer")
	assert.False(t, ok)
}

type memoryRepo struct {
	materials map[id.ID]Material
	txs       []Transaction
}

func (r *memoryRepo) CreateMaterial(ctx context.Context, m *Material) error {
	r.materials[m.ID] = *m
	return nil
}

func (r *memoryRepo) UpdateMaterial(ctx context.Context, m *Material) error {
	r.materials[m.ID] = *m
	return nil
}

func (r *memoryRepo) GetMaterial(ctx context.Context, materialID id.ID) (*Material, error) {
	m, ok := r.materials[materialID]
	if !ok {
		return nil, apperror.NewNotFound("material", materialID)
	}
	return &m, nil
}

func (r *memoryRepo) GetMaterialForUpdate(ctx context.Context, materialID id.ID) (*Material, error) {
	return r.GetMaterial(ctx, materialID)
}

func (r *memoryRepo) ListMaterials(ctx context.Context, f domain.ListFilter) (domain.ListResult[Material], error) {
	return domain.ListResult[Material]{}, nil
}

func (r *memoryRepo) LowStock(ctx context.Context) ([]Material, error) {
	var out []Material
	for _, m := range r.materials {
		if m.IsLow() {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memoryRepo) CreateTransaction(ctx context.Context, t *Transaction) error {
	r.txs = append(r.txs, *t)
	return nil
}

func (r *memoryRepo) ListTransactions(ctx context.Context, f domain.ListFilter) (domain.ListResult[Transaction], error) {
	return domain.ListResult[Transaction]{Items: r.txs}, nil
}

func TestService_RecordKeepsLog(t *testing.T) {
	repo := &memoryRepo{materials: map[id.ID]Material{}}
	var moved []events.StockMoved
	bus := events.NewBus(nil)
	bus.Subscribe(events.InTx, "test", func(ctx context.Context, e events.Event) error {
		moved = append(moved, e.(events.StockMoved))
		return nil
	}, events.NameStockMoved)
	svc := NewService(repo, tx.Passthrough{}, bus)
	ctx := context.Background()

	m := &Material{Catalog: entity.Catalog{Name: "Clear 5mm"}, Unit: "sqft", CurrentStock: qty(100), MinimumStock: qty(20)}
	require.NoError(t, svc.CreateMaterial(ctx, m))
	assert.Equal(t, qty(100), m.CurrentStock)

	out, err := svc.Record(ctx, Movement{MaterialID: m.ID, Type: TxOut, Quantity: qty(85), Reference: "JC-1"})
	require.NoError(t, err)
	assert.Equal(t, qty(100), out.PreviousStock)
	assert.Equal(t, qty(15), out.NewStock)

	_, err = svc.Record(ctx, Movement{MaterialID: m.ID, Type: TxOut, Quantity: qty(16)})
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)

	require.Len(t, repo.txs, 2)
	assert.Equal(t, "OPENING", repo.txs[0].Reference)
	require.Len(t, moved, 2)
	assert.Equal(t, "OUT", moved[1].Type)
}
