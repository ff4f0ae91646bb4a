package model

import "time"

// Run is the header of one persisted reconciliation run.
type Run struct {
	ID           string    `json:"id" yaml:"id"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	OrderLines   int       `json:"order_lines" yaml:"order_lines"`
	InvoiceLines int       `json:"invoice_lines" yaml:"invoice_lines"`
	CountLines   int       `json:"count_lines" yaml:"count_lines"`
	Records      int       `json:"records" yaml:"records"`
	Divergent    int       `json:"divergent" yaml:"divergent"`
}

// StatusCount is the number of records carrying one status code.
type StatusCount struct {
	Code  StatusCode `json:"code" yaml:"code"`
	Count int        `json:"count" yaml:"count"`
}

// NewRun builds a run header from its records.
func NewRun(id string, createdAt time.Time, orders, invoices, counts int, records []Record) Run {
	run := Run{
		ID:           id,
		CreatedAt:    createdAt,
		OrderLines:   orders,
		InvoiceLines: invoices,
		CountLines:   counts,
		Records:      len(records),
	}
	for _, r := range records {
		if r.Divergent() {
			run.Divergent++
		}
	}
	return run
}
