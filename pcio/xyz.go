package pcio

import (
	"bufio"
	"strings"

	"github.com/pkg/errors"
	"github.com/soypat/pcmesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// readXYZ reads one point per line from the first three columns. Columns
// are separated by whitespace or commas. Blank lines and lines starting
// with # or // are skipped, as is a leading point count line (PTS files).
func readXYZ(br *bufio.Reader) (pcmesh.PointSet, error) {
	var points pcmesh.PointSet
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 1<<16), 1<<20)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == ';'
		})
		if len(fields) == 1 && len(points) == 0 {
			// PTS point count header.
			continue
		}
		if len(fields) < 3 {
			return nil, errors.Wrapf(pcmesh.ErrFileFormat, "line %d: want at least 3 columns, got %d", lineno, len(fields))
		}
		var p [3]float64
		for i := range p {
			v, err := parseScalar(fields[i])
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineno)
			}
			p[i] = v
		}
		points = append(points, r3.Vec{X: p[0], Y: p[1], Z: p[2]})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read XYZ")
	}
	return points, nil
}
