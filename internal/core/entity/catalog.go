package entity

import (
	"context"
	"strings"

	"glasserp/internal/core/apperror"
)

// RecordStatus is the soft-delete marker of master data.
// Audited entities are never hard-deleted.
type RecordStatus string

const (
	StatusActive   RecordStatus = "active"
	StatusDisabled RecordStatus = "disabled"
	StatusDeleted  RecordStatus = "deleted"
)

// Catalog is the base type for master data: customers, vendors, products, materials.
type Catalog struct {
	Base

	// Name is the display name
	Name string `db:"name" json:"name"`

	Status RecordStatus `db:"status" json:"status"`
}

// NewCatalog creates a new active Catalog.
func NewCatalog(name string) Catalog {
	return Catalog{
		Base:   NewBase(),
		Name:   strings.TrimSpace(name),
		Status: StatusActive,
	}
}

// Validate implements Validatable interface.
func (c *Catalog) Validate(ctx context.Context) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewFieldValidation("name", "name is required")
	}
	switch c.Status {
	case StatusActive, StatusDisabled, StatusDeleted:
	default:
		return apperror.NewFieldValidation("status", "invalid status")
	}
	return nil
}

// IsActive reports whether the record can be referenced by new documents.
func (c *Catalog) IsActive() bool {
	return c.Status == StatusActive
}
