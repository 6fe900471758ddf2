package pcmesh

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config holds the tunables of a reconstruction run. The zero value is not
// usable, start from DefaultConfig.
type Config struct {
	// BaseVoxelSize is the distance field grid spacing before budget scaling.
	BaseVoxelSize float64 `toml:"base_voxel_size"`
	// DownsampleVoxelSize is the voxel edge used for density downsampling.
	DownsampleVoxelSize float64 `toml:"downsample_voxel_size"`
	// OutlierNeighbors is the k of the k-nearest-neighbor outlier statistic.
	OutlierNeighbors int `toml:"outlier_neighbors"`
	// OutlierStdRatio scales the standard deviation in the outlier cutoff
	// mean + ratio*stddev. 0.5 is aggressive and may eat fine surface detail.
	OutlierStdRatio float64 `toml:"outlier_std_ratio"`
	// IsoPercentile is the percentile of the distance field used as iso-level.
	IsoPercentile float64 `toml:"iso_percentile"`
	// MaxGridDimension bounds the cell count along every grid axis.
	MaxGridDimension int `toml:"max_grid_dimension"`
	// MaxPointCount is the hard point ceiling after all reduction.
	MaxPointCount int `toml:"max_point_count"`
	// ReduceAbovePointCount triggers a second, coarser downsample.
	ReduceAbovePointCount int `toml:"reduce_above_point_count"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		BaseVoxelSize:         0.1,
		DownsampleVoxelSize:   0.5,
		OutlierNeighbors:      50,
		OutlierStdRatio:       0.5,
		IsoPercentile:         20,
		MaxGridDimension:      500,
		MaxPointCount:         300000,
		ReduceAbovePointCount: 100000,
	}
}

// LoadConfig decodes a TOML file over DefaultConfig. Keys absent from the
// file keep their default value.
func LoadConfig(filename string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(filename, &cfg); err != nil {
		return Config{}, fmt.Errorf("could not decode TOML config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks every field for a usable value.
func (c Config) Validate() error {
	switch {
	case !(c.BaseVoxelSize > 0):
		return fmt.Errorf("%w: base voxel size must be positive, got %g", ErrInvalidConfig, c.BaseVoxelSize)
	case !(c.DownsampleVoxelSize > 0):
		return fmt.Errorf("%w: downsample voxel size must be positive, got %g", ErrInvalidConfig, c.DownsampleVoxelSize)
	case c.OutlierNeighbors <= 0:
		return fmt.Errorf("%w: outlier neighbors must be positive, got %d", ErrInvalidConfig, c.OutlierNeighbors)
	case !(c.OutlierStdRatio > 0):
		return fmt.Errorf("%w: outlier std ratio must be positive, got %g", ErrInvalidConfig, c.OutlierStdRatio)
	case !(c.IsoPercentile > 0 && c.IsoPercentile <= 100):
		return fmt.Errorf("%w: iso percentile must be in (0, 100], got %g", ErrInvalidConfig, c.IsoPercentile)
	case c.MaxGridDimension < 2:
		return fmt.Errorf("%w: max grid dimension must be at least 2, got %d", ErrInvalidConfig, c.MaxGridDimension)
	case c.MaxPointCount <= 0:
		return fmt.Errorf("%w: max point count must be positive, got %d", ErrInvalidConfig, c.MaxPointCount)
	case c.ReduceAbovePointCount <= 0:
		return fmt.Errorf("%w: reduce above point count must be positive, got %d", ErrInvalidConfig, c.ReduceAbovePointCount)
	}
	return nil
}
