// Command pcmesh reconstructs a triangle mesh from a point cloud file.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/natefinch/lumberjack"
	"github.com/pkg/errors"
	"github.com/soypat/pcmesh"
	"github.com/soypat/pcmesh/field"
	"github.com/soypat/pcmesh/pcio"
	"github.com/soypat/pcmesh/reconstruct"
	"github.com/soypat/pcmesh/render"
)

const (
	previewWidth, previewHeight = 768, 432
	histogramBins               = 64
)

var (
	output     = flag.String("o", "output_mesh.ply", "output mesh file (.ply or .stl)")
	configFile = flag.String("config", "", "TOML configuration file")
	logFile    = flag.String("log", "", "also write log to this rotating file")
	logMaxSize = flag.Int("logmax", 10, "rotate log file after this many megabytes")
	histFile   = flag.String("hist", "", "save distance field histogram PNG")
	previewPNG = flag.String("preview", "", "save a shaded preview PNG of the mesh")
	verbose    = flag.Bool("v", false, "log stage timing and statistics")
	voxel      = flag.Float64("voxel", 0, "override base voxel size if nonzero")
	downsample = flag.Float64("downsample", 0, "override downsample voxel size if nonzero")
	isoPct     = flag.Float64("iso", 0, "override iso-level percentile if nonzero")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [point cloud file]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	if *logFile != "" {
		lj := &lumberjack.Logger{
			Filename: *logFile,
			MaxSize:  *logMaxSize, // megabytes
			MaxAge:   28,          // days
		}
		defer lj.Close()
		logger.SetOutput(io.MultiWriter(os.Stderr, lj))
	}

	path := flag.Arg(0)
	if path == "" {
		var err error
		path, err = prompt(os.Stdin, os.Stdout, "Enter the path to the point cloud file: ")
		if err != nil {
			fail(err)
		}
		if path == "" {
			fmt.Fprintln(os.Stderr, "no file path provided")
			os.Exit(1)
		}
	}

	if err := run(path, logger); err != nil {
		fail(err)
	}
	fmt.Println(*output)
}

func run(path string, logger *log.Logger) error {
	cfg, err := config()
	if err != nil {
		return err
	}
	var hooks *pcmesh.Hooks
	if *verbose {
		hooks = pcmesh.LogHooks(logger)
		logger.Printf("configuration: %+v", cfg)
	}

	logger.Printf("loading point cloud %s", path)
	points, err := pcio.ReadFile(path)
	if err != nil {
		return err
	}
	logger.Printf("loaded %s points", humanize.Comma(int64(len(points))))

	p := reconstruct.Pipeline{Config: cfg, Hooks: hooks}
	if *histFile != "" {
		p.InspectField = func(f *field.Field, iso float64) error {
			return errors.Wrap(field.SaveHistogram(*histFile, f, iso, histogramBins), "saving histogram")
		}
	}
	rep, err := p.Run(points)
	if err != nil {
		return err
	}
	if *verbose {
		st := rep.Conditioning
		logger.Printf("points: %s input, %s downsampled, %s after outlier removal",
			humanize.Comma(int64(st.Input)), humanize.Comma(int64(st.Downsampled)), humanize.Comma(int64(st.AfterOutliers)))
		if st.VoxelScaled {
			logger.Printf("voxel size enlarged to %g to fit grid budget", rep.Grid.VoxelSize)
		}
		logger.Printf("grid %v cells, field range [%g, %g], iso-level %g",
			rep.Grid.Cells, rep.FieldMin, rep.FieldMax, rep.IsoLevel)
	}
	m := &rep.Mesh
	if err := m.Err(); err != nil {
		logger.Printf("warning (%s): %v", pcmesh.Kind(err), err)
	}
	logger.Printf("mesh has %s vertices and %s triangles",
		humanize.Comma(int64(len(m.Vertices))), humanize.Comma(int64(len(m.Triangles))))

	logger.Printf("saving mesh to %s", *output)
	if err := render.WriteMeshFile(*output, m); err != nil {
		return err
	}
	if info, err := os.Stat(*output); err == nil {
		logger.Printf("wrote %s", humanize.Bytes(uint64(info.Size())))
	}
	if *previewPNG != "" {
		return preview(m, logger)
	}
	return nil
}

// config loads the configuration file, if any, and applies nonzero flag overrides.
func config() (pcmesh.Config, error) {
	cfg := pcmesh.DefaultConfig()
	if *configFile != "" {
		var err error
		cfg, err = pcmesh.LoadConfig(*configFile)
		if err != nil {
			return cfg, errors.Wrapf(err, "loading %s", *configFile)
		}
	}
	if *voxel != 0 {
		cfg.BaseVoxelSize = *voxel
	}
	if *downsample != 0 {
		cfg.DownsampleVoxelSize = *downsample
	}
	if *isoPct != 0 {
		cfg.IsoPercentile = *isoPct
	}
	return cfg, cfg.Validate()
}

// preview renders the mesh to a PNG going through an STL file.
func preview(m *pcmesh.Mesh, logger *log.Logger) error {
	stlPath := *output
	if !strings.EqualFold(filepath.Ext(stlPath), ".stl") {
		dir, err := os.MkdirTemp("", "pcmesh")
		if err != nil {
			return errors.Wrap(err, "creating preview directory")
		}
		defer os.RemoveAll(dir)
		stlPath = filepath.Join(dir, "preview.stl")
		if err := render.CreateSTL(stlPath, render.NewMeshReader(m)); err != nil {
			return err
		}
	}
	logger.Printf("rendering preview to %s", *previewPNG)
	err := render.SavePreviewPNG(stlPath, *previewPNG, previewWidth, previewHeight, render.DefaultPreviewView())
	return errors.Wrap(err, "rendering preview")
}

// prompt asks for a line on r. Surrounding space and quotes are trimmed.
func prompt(r io.Reader, w io.Writer, question string) (string, error) {
	fmt.Fprint(w, question)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.Wrap(err, "reading file path")
	}
	return strings.Trim(strings.TrimSpace(line), `"'`), nil
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error (%s): %v\n", pcmesh.Kind(err), err)
	os.Exit(1)
}
