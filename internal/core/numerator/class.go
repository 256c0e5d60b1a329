// Package numerator provides domain contracts for document numbering.
package numerator

// Class identifies a numbered document series.
type Class string

const (
	ClassOrder         Class = "order"
	ClassInvoice       Class = "invoice"
	ClassPurchaseOrder Class = "purchase_order"
	ClassJobWork       Class = "job_work"
	ClassDispatchSlip  Class = "dispatch_slip"
	ClassVendorReceipt Class = "vendor_receipt"
	ClassBulkReceipt   Class = "bulk_receipt"
	ClassJobCard       Class = "job_card"
	ClassCustomer      Class = "customer"
	ClassVendor        Class = "vendor"
)

// Scope controls when a counter restarts.
type Scope int

const (
	// ScopeFiscalYear keeps one counter per (class, fiscal year).
	ScopeFiscalYear Scope = iota
	// ScopeGlobal keeps a single counter for the class.
	ScopeGlobal
)

// Layout is how the counter value is rendered.
type Layout int

const (
	// LayoutPlain renders the padded counter only: 000123.
	LayoutPlain Layout = iota
	// LayoutDated renders PREFIX-YYYYMMDD-000123 using the local issue date.
	LayoutDated
	// LayoutFiscal renders PREFIX/2024-25/0001.
	LayoutFiscal
	// LayoutPrefixed renders PREFIX-00001.
	LayoutPrefixed
)

// Format describes one document series.
type Format struct {
	Prefix string
	Layout Layout
	Pad    int
	Scope  Scope
}

// Formats is the catalogue of document series.
var Formats = map[Class]Format{
	ClassOrder:         {Layout: LayoutPlain, Pad: 6, Scope: ScopeGlobal},
	ClassInvoice:       {Prefix: "INV", Layout: LayoutFiscal, Pad: 4, Scope: ScopeFiscalYear},
	ClassPurchaseOrder: {Prefix: "PO", Layout: LayoutDated, Pad: 6, Scope: ScopeFiscalYear},
	ClassJobWork:       {Prefix: "JW", Layout: LayoutFiscal, Pad: 4, Scope: ScopeFiscalYear},
	ClassDispatchSlip:  {Prefix: "DS", Layout: LayoutDated, Pad: 4, Scope: ScopeFiscalYear},
	ClassVendorReceipt: {Prefix: "VPR", Layout: LayoutDated, Pad: 6, Scope: ScopeFiscalYear},
	ClassBulkReceipt:   {Prefix: "BULK", Layout: LayoutDated, Pad: 4, Scope: ScopeFiscalYear},
	ClassJobCard:       {Prefix: "JC", Layout: LayoutDated, Pad: 4, Scope: ScopeFiscalYear},
	ClassCustomer:      {Prefix: "CUST", Layout: LayoutPrefixed, Pad: 5, Scope: ScopeGlobal},
	ClassVendor:        {Prefix: "VEN", Layout: LayoutPrefixed, Pad: 5, Scope: ScopeGlobal},
}
