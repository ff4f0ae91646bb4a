package match

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recon-cli/internal/model"
)

func orders(products ...string) []model.OrderLine {
	out := make([]model.OrderLine, len(products))
	for i, p := range products {
		out[i] = model.OrderLine{StoreID: "Loja_1", Supplier: "DRUB", Product: p, Quantity: float64(i + 1)}
	}
	return out
}

func invoices(products ...string) []model.InvoiceLine {
	out := make([]model.InvoiceLine, len(products))
	for i, p := range products {
		out[i] = model.InvoiceLine{StoreID: "Loja_1", Supplier: "DRUB", Product: p, Quantity: float64(i + 1)}
	}
	return out
}

// fixedScores builds a matcher where every pair is compatible and scores
// come from a table keyed "order|invoice".
func fixedScores(scores map[string]float64) *Matcher {
	return &Matcher{
		Family: func(string) string { return "F" },
		Score: func(a, b string) float64 {
			return scores[a+"|"+b]
		},
	}
}

func TestMatch_HigherScoreWins(t *testing.T) {
	m := fixedScores(map[string]float64{
		"A|X": 70,
		"B|X": 90,
	})

	res := m.Match(orders("A", "B"), invoices("X"))

	require.Len(t, res.Pairs, 1)
	assert.Equal(t, "B", res.Pairs[0].Order.Product)
	assert.Equal(t, "X", res.Pairs[0].Invoice.Product)
	assert.Equal(t, 90.0, res.Pairs[0].Score)
	require.Len(t, res.UnmatchedOrders, 1)
	assert.Equal(t, "A", res.UnmatchedOrders[0].Product)
	assert.Empty(t, res.UnmatchedInvoices)
	assert.False(t, res.NoInvoice)
}

func TestMatch_TieBreaksByScanOrder(t *testing.T) {
	t.Run("first order line wins", func(t *testing.T) {
		m := fixedScores(map[string]float64{"A|X": 80, "B|X": 80})
		res := m.Match(orders("A", "B"), invoices("X"))
		require.Len(t, res.Pairs, 1)
		assert.Equal(t, "A", res.Pairs[0].Order.Product)
	})

	t.Run("first invoice line wins", func(t *testing.T) {
		m := fixedScores(map[string]float64{"A|X": 80, "A|Y": 80})
		res := m.Match(orders("A"), invoices("X", "Y"))
		require.Len(t, res.Pairs, 1)
		assert.Equal(t, "X", res.Pairs[0].Invoice.Product)
		require.Len(t, res.UnmatchedInvoices, 1)
		assert.Equal(t, "Y", res.UnmatchedInvoices[0].Product)
	})
}

func TestMatch_GreedyIsNotGlobal(t *testing.T) {
	// Greedy takes A|X=95 first, leaving B without its only option.
	m := fixedScores(map[string]float64{"A|X": 95, "A|Y": 90, "B|X": 85})
	res := m.Match(orders("A", "B"), invoices("X", "Y"))

	require.Len(t, res.Pairs, 1)
	assert.Equal(t, "A", res.Pairs[0].Order.Product)
	assert.Equal(t, "X", res.Pairs[0].Invoice.Product)
	assert.Len(t, res.UnmatchedOrders, 1)
	assert.Len(t, res.UnmatchedInvoices, 1)
}

func TestMatch_EmptyInvoicePool(t *testing.T) {
	m := New()
	res := m.Match(orders("TOMATE", "ALHO"), nil)

	assert.True(t, res.NoInvoice)
	assert.Empty(t, res.Pairs)
	assert.Len(t, res.UnmatchedOrders, 2)
}

func TestMatch_EmptyOrderPool(t *testing.T) {
	m := New()
	res := m.Match(nil, invoices("TOMATE"))

	assert.False(t, res.NoInvoice)
	assert.Empty(t, res.Pairs)
	assert.Len(t, res.UnmatchedInvoices, 1)
}

func TestMatch_RealTaxonomy(t *testing.T) {
	m := New()
	res := m.Match(
		orders("TOMATE ITALIANO", "TOMATE CEREJA", "MELANCIA"),
		invoices("TOMATE CEREJA BANDEJA", "TOMATE ITALIANO KG", "MELANCIA BABY"),
	)

	got := map[string]string{}
	for _, p := range res.Pairs {
		got[p.Order.Product] = p.Invoice.Product
	}
	assert.Equal(t, "TOMATE ITALIANO KG", got["TOMATE ITALIANO"])
	assert.Equal(t, "TOMATE CEREJA BANDEJA", got["TOMATE CEREJA"])

	// MELANCIA is a widened root, so the baby variant is not a candidate.
	require.Len(t, res.UnmatchedOrders, 1)
	assert.Equal(t, "MELANCIA", res.UnmatchedOrders[0].Product)
	require.Len(t, res.UnmatchedInvoices, 1)
	assert.Equal(t, "MELANCIA BABY", res.UnmatchedInvoices[0].Product)
}

func TestCompatible(t *testing.T) {
	m := New()
	tests := []struct {
		order, invoice string
		want           bool
	}{
		{"TOMATE", "TOMATE", true},
		{"BANANA_NANICA", "BANANA_PRATA", true},
		{"PIMENTAO_VERDE", "PIMENTAO_OUTRO", true},
		{"MAMAO_PAPAIA", "MAMAO_FORMOSA", true},
		{"MELANCIA", "MELANCIA_BABY", false},
		{"BATATA", "BATATA_DOCE", false},
		{"CEBOLA_ROXA", "CEBOLA", false},
		{"ALHO_ROXO", "ALHO", false},
		{"CEBOLA_ROXA", "CEBOLA_ROXA", true},
		{"TOMATE", "MACA", false},
		{"COUVE FLOR", "COUVE", false},
		{"", "", true},
		{"", "TOMATE", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s~%s", tt.order, tt.invoice), func(t *testing.T) {
			assert.Equal(t, tt.want, m.Compatible(tt.order, tt.invoice))
			assert.Equal(t, tt.want, m.Compatible(tt.invoice, tt.order))
		})
	}
}

func TestCompatible_BroadRootOutsideWidenedList(t *testing.T) {
	m := New()
	// Roots that are not widened pair on the root alone.
	assert.True(t, m.Compatible("BANANA_NANICA", "BANANA_PRATA"))
	assert.True(t, m.Compatible("MAMAO_PAPAIA", "MAMAO_FORMOSA"))
	// Widened roots need the exact family code.
	assert.False(t, m.Compatible("BATATA_LAVADA", "BATATA_DOCE"))
	assert.True(t, m.Compatible("BATATA_DOCE", "BATATA_DOCE"))

	// With no widened roots every shared root pairs.
	m.WidenedRoots = nil
	assert.True(t, m.Compatible("BATATA_LAVADA", "BATATA_DOCE"))
}

func TestCandidates_ScanOrder(t *testing.T) {
	m := fixedScores(map[string]float64{})
	c := m.Candidates(orders("A", "B"), invoices("X", "Y"))
	require.Len(t, c, 4)
	assert.Equal(t, []Candidate{
		{Order: 0, Invoice: 0}, {Order: 0, Invoice: 1},
		{Order: 1, Invoice: 0}, {Order: 1, Invoice: 1},
	}, c)
}

func TestMatch_OneToOneAndCoverage(t *testing.T) {
	words := []string{
		"TOMATE", "TOMATE CEREJA", "BANANA PRATA", "BANANA NANICA", "CEBOLA", "CEBOLA ROXA",
		"ALHO", "BATATA DOCE", "BATATA", "PIMENTAO VERDE", "PIMENTAO", "MAMAO FORMOSA",
	}
	rng := rand.New(rand.NewPCG(7, 11))
	m := New()

	for round := 0; round < 200; round++ {
		var ol []model.OrderLine
		for i, n := 0, rng.IntN(6); i < n; i++ {
			ol = append(ol, model.OrderLine{Product: words[rng.IntN(len(words))], Quantity: float64(i + 1)})
		}
		var il []model.InvoiceLine
		for i, n := 0, rng.IntN(6); i < n; i++ {
			il = append(il, model.InvoiceLine{Product: words[rng.IntN(len(words))], Quantity: float64(i + 1)})
		}

		res := m.Match(ol, il)

		assert.Equal(t, len(ol), len(res.Pairs)+len(res.UnmatchedOrders), "round %d orders", round)
		if !res.NoInvoice {
			assert.Equal(t, len(il), len(res.Pairs)+len(res.UnmatchedInvoices), "round %d invoices", round)
		}
		for _, p := range res.Pairs {
			assert.True(t, m.Compatible(m.Family(p.Order.Product), m.Family(p.Invoice.Product)))
		}
	}
}

func TestMatch_Deterministic(t *testing.T) {
	m := New()
	ol := orders("TOMATE", "TOMATE CEREJA", "TOMATE ITALIANO")
	il := invoices("TOMATE ITALIANO", "TOMATE", "TOMATE CEREJA")

	first := m.Match(ol, il)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, m.Match(ol, il))
	}
}
