package events

import (
	"encoding/json"
	"fmt"
	"time"

	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
)

// Event names.
const (
	NameAudited                = "audited"
	NameOrderCreated           = "order.created"
	NameOrderPaymentReceived   = "order.payment_received"
	NameOrderStatusChanged     = "order.status_changed"
	NameOrderCancelled         = "order.cancelled"
	NameDispatchSlipCreated    = "order.dispatch_slip_created"
	NameInvoiceIssued          = "invoice.issued"
	NameInvoicePaymentRecorded = "invoice.payment_recorded"
	NamePurchaseOrderReceived  = "purchase_order.received"
	NameVendorPaymentCompleted = "vendor_payment.completed"
	NameOpeningBalanceSet      = "party.opening_balance_set"
	NameJobWorkPaymentRecorded = "job_work.payment_recorded"
	NameJobWorkStatusChanged   = "job_work.status_changed"
	NameStockMoved             = "inventory.stock_moved"
)

// Audited records a mutating action. Actor details come from the request context.
type Audited struct {
	Action   string `json:"action"`
	Module   string `json:"module"`
	RecordID string `json:"record_id"`
	OldData  any    `json:"old_data,omitempty"`
	NewData  any    `json:"new_data,omitempty"`
}

func (Audited) EventName() string { return NameAudited }

// OrderCreated is raised once per new customer order.
type OrderCreated struct {
	OrderID       id.ID       `json:"order_id"`
	OrderNumber   string      `json:"order_number"`
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone,omitempty"`
	CustomerEmail string      `json:"customer_email,omitempty"`
	Total         types.Paise `json:"total"`
	AdvanceAmount types.Paise `json:"advance_amount"`
	IsCredit      bool        `json:"is_credit"`
}

func (OrderCreated) EventName() string { return NameOrderCreated }

// Payment stages of an order.
const (
	StageAdvance   = "advance"
	StageRemaining = "remaining"
	StageFull      = "full"
)

// OrderPaymentReceived is raised when an advance or remaining payment is confirmed
// (gateway) or recorded (cash).
type OrderPaymentReceived struct {
	OrderID       id.ID       `json:"order_id"`
	OrderNumber   string      `json:"order_number"`
	PartyID       id.ID       `json:"party_id"`
	PartyName     string      `json:"party_name"`
	CustomerPhone string      `json:"customer_phone,omitempty"`
	CustomerEmail string      `json:"customer_email,omitempty"`
	Stage         string      `json:"stage"`
	Method        string      `json:"method"`
	Amount        types.Paise `json:"amount"`
	Reference     string      `json:"reference,omitempty"`
	ReceivedAt    time.Time   `json:"received_at"`
}

func (OrderPaymentReceived) EventName() string { return NameOrderPaymentReceived }

// OrderStatusChanged is raised on every fulfilment move.
type OrderStatusChanged struct {
	OrderID       id.ID  `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	From          string `json:"from"`
	To            string `json:"to"`
}

func (OrderStatusChanged) EventName() string { return NameOrderStatusChanged }

// OrderCancelled asks the ledger to reverse everything posted against the order.
type OrderCancelled struct {
	OrderID     id.ID     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelled_at"`
}

func (OrderCancelled) EventName() string { return NameOrderCancelled }

// DispatchSlipCreated is raised when a settled order gets its slip.
type DispatchSlipCreated struct {
	OrderID       id.ID  `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	SlipNumber    string `json:"slip_number"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone,omitempty"`
}

func (DispatchSlipCreated) EventName() string { return NameDispatchSlipCreated }

// InvoiceIssued posts the sale: customer debit against sales and GST output.
type InvoiceIssued struct {
	InvoiceID     id.ID       `json:"invoice_id"`
	InvoiceNumber string      `json:"invoice_number"`
	OrderID       *id.ID      `json:"order_id,omitempty"`
	PartyID       id.ID       `json:"party_id"`
	PartyName     string      `json:"party_name"`
	Taxable       types.Paise `json:"taxable"`
	CGST          types.Paise `json:"cgst"`
	SGST          types.Paise `json:"sgst"`
	IGST          types.Paise `json:"igst"`
	Total         types.Paise `json:"total"`
	IssuedAt      time.Time   `json:"issued_at"`
	DueDate       time.Time   `json:"due_date"`
}

func (InvoiceIssued) EventName() string { return NameInvoiceIssued }

// InvoicePaymentRecorded posts a receipt against an invoice.
type InvoicePaymentRecorded struct {
	InvoiceID     id.ID       `json:"invoice_id"`
	InvoiceNumber string      `json:"invoice_number"`
	PartyID       id.ID       `json:"party_id"`
	PartyName     string      `json:"party_name"`
	Sequence      int         `json:"sequence"`
	Amount        types.Paise `json:"amount"`
	Method        string      `json:"method"`
	Reference     string      `json:"reference,omitempty"`
	ReceivedAt    time.Time   `json:"received_at"`
}

func (InvoicePaymentRecorded) EventName() string { return NameInvoicePaymentRecorded }

// PurchaseOrderReceived posts the purchase with its tax legs.
type PurchaseOrderReceived struct {
	POID       id.ID       `json:"po_id"`
	PONumber   string      `json:"po_number"`
	VendorID   id.ID       `json:"vendor_id"`
	VendorName string      `json:"vendor_name"`
	Taxable    types.Paise `json:"taxable"`
	GST        types.Paise `json:"gst"`
	Total      types.Paise `json:"total"`
	ReceivedAt time.Time   `json:"received_at"`
	DueDate    time.Time   `json:"due_date"`
}

func (PurchaseOrderReceived) EventName() string { return NamePurchaseOrderReceived }

// VendorPaymentCompleted posts vendor debit against bank.
type VendorPaymentCompleted struct {
	PaymentID     id.ID       `json:"payment_id"`
	POID          id.ID       `json:"po_id"`
	PONumber      string      `json:"po_number"`
	VendorID      id.ID       `json:"vendor_id"`
	VendorName    string      `json:"vendor_name"`
	Amount        types.Paise `json:"amount"`
	Mode          string      `json:"mode"`
	UTR           string      `json:"utr"`
	ReceiptNumber string      `json:"receipt_number"`
	BulkPaymentID *id.ID      `json:"bulk_payment_id,omitempty"`
	CompletedAt   time.Time   `json:"completed_at"`
}

func (VendorPaymentCompleted) EventName() string { return NameVendorPaymentCompleted }

// OpeningBalanceSet posts the change of a party's opening balance against equity.
// Delta is positive when the party owes more to us (customer) or we owe more (vendor).
type OpeningBalanceSet struct {
	PartyID   id.ID       `json:"party_id"`
	PartyType string      `json:"party_type"`
	PartyName string      `json:"party_name"`
	Delta     types.Paise `json:"delta"`
	Revision  int         `json:"revision"`
	At        time.Time   `json:"at"`
}

func (OpeningBalanceSet) EventName() string { return NameOpeningBalanceSet }

// JobWorkPaymentRecorded posts a receipt for a job-work order.
type JobWorkPaymentRecorded struct {
	JobWorkID     id.ID       `json:"job_work_id"`
	JobWorkNumber string      `json:"job_work_number"`
	CustomerName  string      `json:"customer_name"`
	Sequence      int         `json:"sequence"`
	Amount        types.Paise `json:"amount"`
	Method        string      `json:"method"`
	CustomerPhone string      `json:"customer_phone,omitempty"`
	ReceivedAt    time.Time   `json:"received_at"`
}

func (JobWorkPaymentRecorded) EventName() string { return NameJobWorkPaymentRecorded }

// JobWorkStatusChanged is raised on every job-work status move.
// Delivery posts the labour sale (customer debit against job-work income and GST).
type JobWorkStatusChanged struct {
	JobWorkID     id.ID       `json:"job_work_id"`
	JobWorkNumber string      `json:"job_work_number"`
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone,omitempty"`
	From          string      `json:"from"`
	To            string      `json:"to"`
	Labour        types.Paise `json:"labour_charges"`
	GST           types.Paise `json:"gst_amount"`
	GrandTotal    types.Paise `json:"grand_total"`
	At            time.Time   `json:"at"`
}

func (JobWorkStatusChanged) EventName() string { return NameJobWorkStatusChanged }

// StockMoved is raised for every inventory transaction.
type StockMoved struct {
	MaterialID   id.ID          `json:"material_id"`
	MaterialName string         `json:"material_name"`
	Type         string         `json:"type"`
	Quantity     types.Quantity `json:"quantity"`
	NewStock     types.Quantity `json:"new_stock"`
	MinimumStock types.Quantity `json:"minimum_stock"`
	Reference    string         `json:"reference,omitempty"`
}

func (StockMoved) EventName() string { return NameStockMoved }

var registry = map[string]func() Event{
	NameAudited:                func() Event { return &Audited{} },
	NameOrderCreated:           func() Event { return &OrderCreated{} },
	NameOrderPaymentReceived:   func() Event { return &OrderPaymentReceived{} },
	NameOrderStatusChanged:     func() Event { return &OrderStatusChanged{} },
	NameOrderCancelled:         func() Event { return &OrderCancelled{} },
	NameDispatchSlipCreated:    func() Event { return &DispatchSlipCreated{} },
	NameInvoiceIssued:          func() Event { return &InvoiceIssued{} },
	NameInvoicePaymentRecorded: func() Event { return &InvoicePaymentRecorded{} },
	NamePurchaseOrderReceived:  func() Event { return &PurchaseOrderReceived{} },
	NameVendorPaymentCompleted: func() Event { return &VendorPaymentCompleted{} },
	NameOpeningBalanceSet:      func() Event { return &OpeningBalanceSet{} },
	NameJobWorkPaymentRecorded: func() Event { return &JobWorkPaymentRecorded{} },
	NameJobWorkStatusChanged:   func() Event { return &JobWorkStatusChanged{} },
	NameStockMoved:             func() Event { return &StockMoved{} },
}

// Decode rebuilds a parked event. The returned value is the event struct (not a pointer).
func Decode(name string, payload []byte) (Event, error) {
	newFn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown event %q", name)
	}
	ptr := newFn()
	if err := json.Unmarshal(payload, ptr); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return deref(ptr), nil
}

func deref(e Event) Event {
	switch v := e.(type) {
	case *Audited:
		return *v
	case *OrderCreated:
		return *v
	case *OrderPaymentReceived:
		return *v
	case *OrderStatusChanged:
		return *v
	case *OrderCancelled:
		return *v
	case *DispatchSlipCreated:
		return *v
	case *InvoiceIssued:
		return *v
	case *InvoicePaymentRecorded:
		return *v
	case *PurchaseOrderReceived:
		return *v
	case *VendorPaymentCompleted:
		return *v
	case *OpeningBalanceSet:
		return *v
	case *JobWorkPaymentRecorded:
		return *v
	case *JobWorkStatusChanged:
		return *v
	case *StockMoved:
		return *v
	}
	return e
}
