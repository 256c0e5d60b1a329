package entity

// Document is the base type for business transactions:
// orders, job-work orders, purchase orders, invoices, vendor payments.
type Document struct {
	Base

	// CreatedBy / UpdatedBy hold user ids of the actors
	CreatedBy string `db:"created_by" json:"created_by,omitempty"`
	UpdatedBy string `db:"updated_by" json:"updated_by,omitempty"`
}

// NewDocument creates a new Document stamped with the creating user.
func NewDocument(userID string) Document {
	return Document{
		Base:      NewBase(),
		CreatedBy: userID,
		UpdatedBy: userID,
	}
}

// TouchBy updates the timestamp and the last actor.
func (d *Document) TouchBy(userID string) {
	d.Touch()
	if userID != "" {
		d.UpdatedBy = userID
	}
}
