package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"glasserp/internal/core/apperror"
	appctx "glasserp/internal/core/context"
	"glasserp/internal/core/events"
	"glasserp/internal/core/tx"
	"glasserp/pkg/logger"
)

// Repository persists settings documents.
type Repository interface {
	// Get returns NotFound when the type was never saved.
	Get(ctx context.Context, t Type) (*Document, error)
	Upsert(ctx context.Context, doc *Document) error
}

// Cache is an optional read-through cache of settings documents.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

const cacheTTL = 5 * time.Minute

// Service reads and writes settings. Reads fall back to defaults for types
// that were never saved.
type Service struct {
	repo             Repository
	cache            Cache
	txm              tx.Manager
	bus              *events.Bus
	companyStateCode string
}

// NewService creates a settings service. cache may be nil.
func NewService(repo Repository, cache Cache, txm tx.Manager, bus *events.Bus, companyStateCode string) *Service {
	return &Service{
		repo:             repo,
		cache:            cache,
		txm:              txm,
		bus:              bus,
		companyStateCode: companyStateCode,
	}
}

// Get returns the stored document or the defaults for t.
func (s *Service) Get(ctx context.Context, t Type) (*Document, error) {
	key := cacheKey(t)
	if s.cache != nil {
		var doc Document
		hit, err := s.cache.GetJSON(ctx, key, &doc)
		if err != nil {
			logger.Warn(ctx, "settings cache read failed", "type", t, "error", err)
		} else if hit {
			return &doc, nil
		}
	}

	doc, err := s.repo.Get(ctx, t)
	if apperror.IsNotFound(err) {
		return s.defaultDocument(t)
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, doc, cacheTTL); err != nil {
			logger.Warn(ctx, "settings cache write failed", "type", t, "error", err)
		}
	}
	return doc, nil
}

// Put validates data against the schema of t and stores it.
func (s *Service) Put(ctx context.Context, t Type, data json.RawMessage) (*Document, error) {
	normalized, err := validateData(t, data)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Type:      t,
		Data:      normalized,
		UpdatedBy: appctx.GetUserID(ctx),
		UpdatedAt: time.Now().UTC(),
	}

	err = s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		old, err := s.repo.Get(ctx, t)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}
		if err := s.repo.Upsert(ctx, doc); err != nil {
			return err
		}
		var oldData any
		if old != nil {
			oldData = old.Data
		}
		out.Audit("update", "settings", string(t), oldData, doc.Data)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, cacheKey(t)); err != nil {
			logger.Warn(ctx, "settings cache invalidation failed", "type", t, "error", err)
		}
	}
	return doc, nil
}

// AdvancePayment returns the advance rules.
func (s *Service) AdvancePayment(ctx context.Context) (AdvancePayment, error) {
	return load[AdvancePayment](ctx, s, TypeAdvancePayment)
}

// GST returns the tax configuration.
func (s *Service) GST(ctx context.Context) (GST, error) {
	return load[GST](ctx, s, TypeGST)
}

// JobWorkPricing returns the labour rates.
func (s *Service) JobWorkPricing(ctx context.Context) (JobWorkPricing, error) {
	return load[JobWorkPricing](ctx, s, TypeJobWorkPricing)
}

// Wallet returns the referral and cashback parameters.
func (s *Service) Wallet(ctx context.Context) (Wallet, error) {
	return load[Wallet](ctx, s, TypeWallet)
}

// Transport returns the delivery cost parameters.
func (s *Service) Transport(ctx context.Context) (Transport, error) {
	return load[Transport](ctx, s, TypeTransport)
}

func load[T any](ctx context.Context, s *Service, t Type) (T, error) {
	var out T
	doc, err := s.Get(ctx, t)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(doc.Data, &out); err != nil {
		return out, fmt.Errorf("decode %s settings: %w", t, err)
	}
	return out, nil
}

func (s *Service) defaultDocument(t Type) (*Document, error) {
	var v any
	switch t {
	case TypeAdvancePayment:
		v = DefaultAdvancePayment()
	case TypeGST:
		v = DefaultGST(s.companyStateCode)
	case TypeJobWorkPricing:
		v = DefaultJobWorkPricing()
	case TypeWallet:
		v = DefaultWallet()
	case TypeTransport:
		v = DefaultTransport()
	default:
		return nil, apperror.NewNotFound("settings", string(t))
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Document{Type: t, Data: data, UpdatedBy: "system"}, nil
}

type validator interface {
	Validate() error
}

// validateData decodes data strictly into the schema of t, validates it and
// returns the canonical encoding.
func validateData(t Type, data json.RawMessage) (json.RawMessage, error) {
	var target validator
	switch t {
	case TypeAdvancePayment:
		target = &AdvancePayment{}
	case TypeGST:
		target = &GST{}
	case TypeJobWorkPricing:
		target = &JobWorkPricing{}
	case TypeWallet:
		target = &Wallet{}
	case TypeTransport:
		target = &Transport{}
	default:
		return nil, apperror.NewNotFound("settings", string(t))
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return nil, apperror.NewSchemaViolation(fmt.Sprintf("invalid %s settings: %v", t, err))
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(target)
}

func cacheKey(t Type) string {
	return "settings:" + string(t)
}
