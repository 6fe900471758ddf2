package field_test

import (
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/soypat/pcmesh"
	"github.com/soypat/pcmesh/field"
	"github.com/soypat/pcmesh/internal/d3"
	"github.com/soypat/pcmesh/spatial"
	"gonum.org/v1/gonum/spatial/r3"
)

func testGrid() pcmesh.Grid {
	bb := d3.Box{Min: r3.Vec{X: -1, Y: -1, Z: -0.5}, Max: r3.Vec{X: 1, Y: 0.5, Z: 0.5}}
	return pcmesh.NewGrid(bb, 0.25)
}

func TestBuildMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ps := make(pcmesh.PointSet, 40)
	for i := range ps {
		ps[i] = r3.Vec{X: 2*rng.Float64() - 1, Y: 1.5*rng.Float64() - 1, Z: rng.Float64() - 0.5}
	}
	idx, err := spatial.New(ps)
	if err != nil {
		t.Fatal(err)
	}
	grid := testGrid()
	f, err := field.Build(grid, idx)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Values) != grid.NodeCount() {
		t.Fatalf("got %d values, want %d", len(f.Values), grid.NodeCount())
	}
	n := grid.Nodes()
	for i := 0; i < n[0]; i++ {
		for j := 0; j < n[1]; j++ {
			for k := 0; k < n[2]; k++ {
				node := pcmesh.V3i{i, j, k}
				pos := grid.Position(node)
				want := math.Inf(1)
				for _, p := range ps {
					want = math.Min(want, r3.Norm(r3.Sub(p, pos)))
				}
				if got := f.At(node); math.Abs(got-want) > 1e-12 {
					t.Fatalf("node %v: got %g, want %g", node, got, want)
				}
			}
		}
	}
}

func TestLatticeOrder(t *testing.T) {
	grid := testGrid()
	n := grid.Nodes()
	want := 0
	for i := 0; i < n[0]; i++ {
		for j := 0; j < n[1]; j++ {
			for k := 0; k < n[2]; k++ {
				if got := grid.Index(pcmesh.V3i{i, j, k}); got != want {
					t.Fatalf("node %v: index %d, want %d", pcmesh.V3i{i, j, k}, got, want)
				}
				want++
			}
		}
	}
}

func TestBuildEmptyIndex(t *testing.T) {
	_, err := field.Build(testGrid(), nil)
	if !errors.Is(err, pcmesh.ErrEmptyIndex) {
		t.Fatalf("got %v, want ErrEmptyIndex", err)
	}
}

func TestValidateNonFinite(t *testing.T) {
	grid := testGrid()
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		f := &field.Field{Grid: grid, Values: make([]float64, grid.NodeCount())}
		f.Values[7] = bad
		if err := f.Validate(); !errors.Is(err, pcmesh.ErrNumerical) {
			t.Errorf("value %g: got %v, want ErrNumerical", bad, err)
		}
		if _, err := field.IsoLevel(f.Values, 20); !errors.Is(err, pcmesh.ErrNumerical) {
			t.Errorf("iso-level with %g: got %v, want ErrNumerical", bad, err)
		}
	}
}

func TestIsoLevelWithinRange(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for trial := 0; trial < 50; trial++ {
		values := make([]float64, 1+rng.Intn(5000))
		for i := range values {
			values[i] = rng.ExpFloat64() * 3
		}
		f := field.Field{Values: values}
		lo, hi := f.MinMax()
		for _, p := range []float64{0.1, 20, 50, 99, 100} {
			iso, err := field.IsoLevel(values, p)
			if err != nil {
				t.Fatal(err)
			}
			if iso < lo || iso > hi {
				t.Fatalf("percentile %g: iso-level %g outside [%g, %g]", p, iso, lo, hi)
			}
		}
	}
}

func TestIsoLevelMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	values := make([]float64, 1000)
	for i := range values {
		values[i] = rng.Float64()
	}
	prev := math.Inf(-1)
	for _, p := range []float64{1, 10, 20, 50, 80, 100} {
		iso, err := field.IsoLevel(values, p)
		if err != nil {
			t.Fatal(err)
		}
		if iso < prev {
			t.Fatalf("percentile %g gave %g, smaller than previous %g", p, iso, prev)
		}
		prev = iso
	}
	if math.Abs(prev-1) > 0.01 {
		t.Errorf("100th percentile %g not near maximum", prev)
	}
}

func TestIsoLevelLinearPercentile(t *testing.T) {
	for _, test := range []struct {
		values     []float64
		percentile float64
		want       float64
	}{
		{[]float64{1, 2, 3, 4, 5}, 20, 1.8},
		{[]float64{5, 3, 1, 4, 2}, 20, 1.8},
		{[]float64{0, 10}, 20, 2},
		{[]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, 20, 1.8},
		{[]float64{1, 2, 3, 4}, 50, 2.5},
		{[]float64{1, 2, 3, 4}, 100, 4},
		{[]float64{3}, 20, 3},
	} {
		got, err := field.IsoLevel(test.values, test.percentile)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-test.want) > 1e-12 {
			t.Errorf("percentile %g of %v: got %g, want %g", test.percentile, test.values, got, test.want)
		}
	}
}

func TestIsoLevelConstant(t *testing.T) {
	values := []float64{0.7, 0.7, 0.7, 0.7}
	iso, err := field.IsoLevel(values, 20)
	if err != nil {
		t.Fatal(err)
	}
	if iso != 0.7 {
		t.Errorf("got %g, want 0.7", iso)
	}
	if values[0] != 0.7 {
		t.Error("input modified")
	}
}

func TestIsoLevelInvalid(t *testing.T) {
	if _, err := field.IsoLevel([]float64{1, 2}, 0); !errors.Is(err, pcmesh.ErrInvalidConfig) {
		t.Errorf("got %v, want ErrInvalidConfig", err)
	}
	if _, err := field.IsoLevel(nil, 20); !errors.Is(err, pcmesh.ErrEmptyInput) {
		t.Errorf("got %v, want ErrEmptyInput", err)
	}
}

func TestSaveHistogram(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	grid := testGrid()
	f := &field.Field{Grid: grid, Values: make([]float64, grid.NodeCount())}
	for i := range f.Values {
		f.Values[i] = rng.Float64()
	}
	name := filepath.Join(t.TempDir(), "hist.png")
	if err := field.SaveHistogram(name, f, 0.2, 30); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(name)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("empty histogram image")
	}
}
