package reconstruct_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/soypat/pcmesh"
	"github.com/soypat/pcmesh/field"
	"github.com/soypat/pcmesh/reconstruct"
	"gonum.org/v1/gonum/spatial/r3"
)

// fibonacciSphere returns n points evenly spread on the unit sphere.
func fibonacciSphere(n int) pcmesh.PointSet {
	golden := math.Pi * (3 - math.Sqrt(5))
	ps := make(pcmesh.PointSet, n)
	for i := range ps {
		z := 1 - 2*(float64(i)+0.5)/float64(n)
		r := math.Sqrt(1 - z*z)
		theta := golden * float64(i)
		ps[i] = r3.Vec{X: r * math.Cos(theta), Y: r * math.Sin(theta), Z: z}
	}
	return ps
}

func sphereConfig() pcmesh.Config {
	cfg := pcmesh.DefaultConfig()
	cfg.DownsampleVoxelSize = 0.02
	return cfg
}

func TestRunSphere(t *testing.T) {
	rep, err := reconstruct.Run(fibonacciSphere(5000), sphereConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	m := &rep.Mesh
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
	if len(m.Triangles) == 0 {
		t.Fatal("no triangles reconstructed")
	}
	if rep.Conditioning.Input != 5000 || rep.Conditioning.AfterOutliers == 0 {
		t.Errorf("unexpected conditioning stats %+v", rep.Conditioning)
	}
	voxel := rep.Grid.VoxelSize
	if !(rep.IsoLevel >= rep.FieldMin && rep.IsoLevel < voxel) {
		t.Fatalf("iso-level %g outside (%g, %g)", rep.IsoLevel, rep.FieldMin, voxel)
	}
	// A vertex lies on a cell edge with one node closer than the iso-level
	// to a surface sample.
	for i, v := range m.Vertices {
		d := math.Abs(r3.Norm(v) - 1)
		if d > rep.IsoLevel+voxel+1e-9 || d > 2*voxel {
			t.Fatalf("vertex %d is %g from the unit sphere, voxel %g", i, d, voxel)
		}
	}
	for i, n := range m.Normals {
		if n == (r3.Vec{}) {
			continue
		}
		if math.Abs(r3.Norm(n)-1) > 1e-9 {
			t.Fatalf("normal %d not unit length: %v", i, n)
		}
	}
	// The samples touch the grid boundary, where the surface must be capped.
	uses := make(map[[2]int]int)
	for _, tri := range m.Triangles {
		for e := 0; e < 3; e++ {
			a, b := tri[e], tri[(e+1)%3]
			if a > b {
				a, b = b, a
			}
			uses[[2]int{a, b}]++
		}
	}
	boundary := 0
	for _, n := range uses {
		if n == 1 {
			boundary++
		}
	}
	if boundary != 0 {
		t.Errorf("got %d boundary edges in %d triangles. want a closed surface", boundary, len(m.Triangles))
	}
}

func TestRunStageOrder(t *testing.T) {
	var started, ended []pcmesh.Stage
	hooks := &pcmesh.Hooks{
		Start: func(s pcmesh.Stage) { started = append(started, s) },
		End: func(s pcmesh.Stage, _ time.Duration, err error) {
			if err != nil {
				t.Errorf("stage %s failed: %v", s, err)
			}
			ended = append(ended, s)
		},
	}
	_, err := reconstruct.Run(fibonacciSphere(2000), sphereConfig(), hooks)
	if err != nil {
		t.Fatal(err)
	}
	want := []pcmesh.Stage{
		pcmesh.StageDownsample,
		pcmesh.StageOutliers,
		pcmesh.StageGrid,
		pcmesh.StageIndex,
		pcmesh.StageField,
		pcmesh.StageIsoLevel,
		pcmesh.StageExtract,
		pcmesh.StageAssemble,
	}
	if len(started) != len(want) || len(ended) != len(want) {
		t.Fatalf("got stages %v. want %v", started, want)
	}
	for i := range want {
		if started[i] != want[i] || ended[i] != want[i] {
			t.Errorf("stage %d: got %s/%s. want %s", i, started[i], ended[i], want[i])
		}
	}
}

func TestPipelineInspectField(t *testing.T) {
	var (
		calls   int
		gotIso  float64
		inspect *field.Field
	)
	p := reconstruct.Pipeline{
		Config: sphereConfig(),
		InspectField: func(f *field.Field, iso float64) error {
			calls++
			gotIso = iso
			inspect = f
			if len(f.Values) != f.Grid.NodeCount() {
				t.Errorf("got %d field values. want %d", len(f.Values), f.Grid.NodeCount())
			}
			return nil
		},
	}
	rep, err := p.Run(fibonacciSphere(2000))
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 || gotIso != rep.IsoLevel {
		t.Errorf("inspect called %d times with iso %g. want once with %g", calls, gotIso, rep.IsoLevel)
	}
	if inspect.Values != nil {
		t.Error("field not released after extraction")
	}

	abort := errors.New("abort")
	p.InspectField = func(*field.Field, float64) error { return abort }
	if _, err := p.Run(fibonacciSphere(2000)); !errors.Is(err, abort) {
		t.Errorf("got error %v. want inspection error", err)
	}
}

func TestRunInvalid(t *testing.T) {
	cfg := sphereConfig()
	if _, err := reconstruct.Run(nil, cfg, nil); !errors.Is(err, pcmesh.ErrEmptyInput) {
		t.Errorf("empty input: got %v. want ErrEmptyInput", err)
	}
	ps := fibonacciSphere(100)
	ps[7].Y = math.NaN()
	if _, err := reconstruct.Run(ps, cfg, nil); !errors.Is(err, pcmesh.ErrNumerical) {
		t.Errorf("NaN input: got %v. want ErrNumerical", err)
	}
	cfg.IsoPercentile = 0
	if _, err := reconstruct.Run(fibonacciSphere(100), cfg, nil); !errors.Is(err, pcmesh.ErrInvalidConfig) {
		t.Errorf("bad config: got %v. want ErrInvalidConfig", err)
	}
}
