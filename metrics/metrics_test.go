package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ciflib/cif/cif"
)

func TestObserveRowIncrementsPerCategory(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveRow("entry")
	c.ObserveRow("entry")
	c.ObserveRow("atom_site")

	want := `
		# HELP cif_rows_total Rows delivered to a registered category's row callback.
		# TYPE cif_rows_total counter
		cif_rows_total{category="atom_site"} 1
		cif_rows_total{category="entry"} 2
	`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "cif_rows_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestTimeBlockCountsOnlySuccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if _, err := c.TimeBlock(func() (bool, error) { return true, nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.TimeBlock(func() (bool, error) { return false, errors.New("boom") }); err == nil {
		t.Fatal("expected error to propagate")
	}

	if got := testutil.ToFloat64(c.blocksTotal); got != 1 {
		t.Errorf("blocksTotal = %v, want 1", got)
	}
}

func TestInstrumentCountsUnknownCategoriesAndKeywords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	r := cif.NewTextReader(strings.NewReader("data_x\n_known.a 1\n_unknown.b 2\n"))
	Instrument(r, c)

	cat := r.RegisterCategory("_known", nil, nil, nil, nil, nil)
	r.RegisterKeyword(cat, "nope", cif.CellString)

	if _, err := r.ReadBlock(); err != nil {
		t.Fatalf("ReadBlock error: %v", err)
	}

	if got := testutil.ToFloat64(c.unknownCats); got != 1 {
		t.Errorf("unknownCats = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.unknownKeys); got != 1 {
		t.Errorf("unknownKeys = %v, want 1", got)
	}
}
