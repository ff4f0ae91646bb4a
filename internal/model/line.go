package model

// OrderLine is one requested quantity of a product from a supplier for a store.
type OrderLine struct {
	StoreID     string  `json:"store_id"`
	SupplierRaw string  `json:"supplier_raw"`
	Supplier    string  `json:"supplier"`
	Product     string  `json:"product"`
	Quantity    float64 `json:"quantity"`
}

// InvoiceLine is one NF-e detail entry after extraction.
type InvoiceLine struct {
	StoreID  string  `json:"store_id"`
	Issuer   string  `json:"issuer,omitempty"` // raw issuer name, display only
	Supplier string  `json:"supplier"`
	Product  string  `json:"product"`
	Quantity float64 `json:"quantity"`
}

// CountLine is one receiving-dock tally.
type CountLine struct {
	StoreID   string  `json:"store_id"`
	Supplier  string  `json:"supplier"`
	Product   string  `json:"product"`
	Quantity  float64 `json:"quantity"`
	UnitLabel string  `json:"unit_label,omitempty"` // free-text packaging standard, passed through
}

// GroupKey identifies a (store, canonical supplier) reconciliation group.
type GroupKey struct {
	StoreID  string
	Supplier string
}

// Key returns the group the order line belongs to.
func (l OrderLine) Key() GroupKey { return GroupKey{StoreID: l.StoreID, Supplier: l.Supplier} }

// Key returns the group the invoice line belongs to.
func (l InvoiceLine) Key() GroupKey { return GroupKey{StoreID: l.StoreID, Supplier: l.Supplier} }

// StoreLine is any line that belongs to a store.
type StoreLine interface {
	Store() string
}

// Store returns the store the order was placed for.
func (l OrderLine) Store() string { return l.StoreID }

// Store returns the store the invoice was addressed to.
func (l InvoiceLine) Store() string { return l.StoreID }

// Store returns the store whose dock counted the line.
func (l CountLine) Store() string { return l.StoreID }
