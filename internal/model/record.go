package model

// StatusCode is the closed set of reconciliation outcomes.
type StatusCode int

const (
	StatusShortage        StatusCode = -1
	StatusReconciled      StatusCode = 0
	StatusOverage         StatusCode = 1
	StatusMissingSupplier StatusCode = 98 // no invoice at all for the supplier
	StatusMissingProduct  StatusCode = 99 // ordered product never invoiced
)

// Divergent reports whether the code needs operator attention.
func (c StatusCode) Divergent() bool {
	switch c {
	case StatusShortage, StatusOverage, StatusMissingSupplier, StatusMissingProduct:
		return true
	}
	return false
}

// RecordKind tells how a record came to exist.
type RecordKind string

const (
	KindMatched            RecordKind = "matched"
	KindNoInvoice          RecordKind = "no_invoice"
	KindNotInvoiced        RecordKind = "not_invoiced"
	KindNotOrdered         RecordKind = "not_ordered"
	KindUnsolicited        RecordKind = "unsolicited"
	KindCountedNotInvoiced RecordKind = "counted_not_invoiced"
)

// Record is one line of reconciliation output.
type Record struct {
	RunID           string     `json:"run_id" yaml:"run_id"`
	StoreID         string     `json:"store_id" yaml:"store_id"`
	SupplierLabel   string     `json:"supplier_label" yaml:"supplier_label"`
	Supplier        string     `json:"supplier" yaml:"supplier"`
	ProductOrdered  string     `json:"product_ordered" yaml:"product_ordered"`
	ProductInvoiced string     `json:"product_invoiced" yaml:"product_invoiced"`
	QtyOrdered      float64    `json:"qty_ordered" yaml:"qty_ordered"`
	QtyInvoiced     float64    `json:"qty_invoiced" yaml:"qty_invoiced"`
	QtyDifference   float64    `json:"qty_difference" yaml:"qty_difference"`
	StatusLabel     string     `json:"status_label" yaml:"status_label"`
	StatusCode      StatusCode `json:"status_code" yaml:"status_code"`
	Kind            RecordKind `json:"kind" yaml:"kind"`

	// Dock stage, set only when a physical count source was supplied.
	ProductCounted    string      `json:"product_counted,omitempty" yaml:"product_counted,omitempty"`
	QtyPhysical       *float64    `json:"qty_physical,omitempty" yaml:"qty_physical,omitempty"`
	PhysicalUnitLabel string      `json:"physical_unit_label,omitempty" yaml:"physical_unit_label,omitempty"`
	DockStatusLabel   string      `json:"dock_status_label,omitempty" yaml:"dock_status_label,omitempty"`
	DockStatusCode    *StatusCode `json:"dock_status_code,omitempty" yaml:"dock_status_code,omitempty"`
	DockDifference    *float64    `json:"dock_difference,omitempty" yaml:"dock_difference,omitempty"`
}

// Divergent reports whether either stage flagged the record.
func (r Record) Divergent() bool {
	if r.StatusCode.Divergent() {
		return true
	}
	return r.DockStatusCode != nil && r.DockStatusCode.Divergent()
}
