// Package reconstruct runs the point cloud to mesh pipeline: conditioning,
// spatial indexing, distance field evaluation, iso-level selection,
// marching cubes and mesh assembly.
package reconstruct

import (
	"github.com/soypat/pcmesh"
	"github.com/soypat/pcmesh/condition"
	"github.com/soypat/pcmesh/field"
	"github.com/soypat/pcmesh/mesh"
	"github.com/soypat/pcmesh/render"
	"github.com/soypat/pcmesh/spatial"
)

// Report is the result of a pipeline run.
type Report struct {
	Mesh pcmesh.Mesh
	// Conditioning records point counts through the conditioning stages.
	Conditioning condition.Stats
	Grid         pcmesh.Grid
	IsoLevel     float64
	// FieldMin and FieldMax bound the distance field values.
	FieldMin, FieldMax float64
}

// Pipeline configures a reconstruction run.
type Pipeline struct {
	Config pcmesh.Config
	// Hooks observe stage boundaries. May be nil.
	Hooks *pcmesh.Hooks
	// InspectField, if set, is called with the distance field and its
	// iso-level before the field is released. A returned error aborts the run.
	InspectField func(f *field.Field, iso float64) error
}

// Run reconstructs a mesh from points with the given configuration.
// points is consumed.
func Run(points pcmesh.PointSet, cfg pcmesh.Config, hooks *pcmesh.Hooks) (*Report, error) {
	p := Pipeline{Config: cfg, Hooks: hooks}
	return p.Run(points)
}

// Run executes the pipeline over points. points is consumed.
// Stage failures are returned unmodified. A degenerate mesh is not an
// error, check Report.Mesh.Err.
func (p Pipeline) Run(points pcmesh.PointSet) (*Report, error) {
	cond, err := condition.Condition(points, p.Config, p.Hooks)
	if err != nil {
		return nil, err
	}
	points = nil
	rep := &Report{Conditioning: cond.Stats, Grid: cond.Grid}

	var idx *spatial.Index
	err = p.Hooks.Run(pcmesh.StageIndex, func() (err error) {
		idx, err = spatial.New(cond.Points)
		return err
	})
	if err != nil {
		return nil, err
	}

	var f *field.Field
	err = p.Hooks.Run(pcmesh.StageField, func() (err error) {
		f, err = field.Build(cond.Grid, idx)
		return err
	})
	if err != nil {
		return nil, err
	}
	idx = nil
	cond.Points = nil
	rep.FieldMin, rep.FieldMax = f.MinMax()

	err = p.Hooks.Run(pcmesh.StageIsoLevel, func() (err error) {
		rep.IsoLevel, err = field.IsoLevel(f.Values, p.Config.IsoPercentile)
		return err
	})
	if err != nil {
		return nil, err
	}
	if p.InspectField != nil {
		if err := p.InspectField(f, rep.IsoLevel); err != nil {
			return nil, err
		}
	}

	var raw pcmesh.RawMesh
	err = p.Hooks.Run(pcmesh.StageExtract, func() (err error) {
		raw, err = render.MarchingCubes(f, rep.IsoLevel)
		f.Release()
		if err != nil {
			return err
		}
		return raw.Validate()
	})
	if err != nil {
		return nil, err
	}

	err = p.Hooks.Run(pcmesh.StageAssemble, func() error {
		rep.Mesh = mesh.Assemble(raw, cond.Grid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}
