package render

import (
	"errors"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"gonum.org/v1/gonum/spatial/r3"
)

// PreviewView positions the preview camera. The mesh is first fit in a
// bi-unit cube centered at the origin.
type PreviewView struct {
	// what position (point) to look at
	LookAt r3.Vec
	// which way is up (direction)
	Up r3.Vec
	// where the camera/eye located at (point)
	Eye       r3.Vec
	Near, Far float64
}

// DefaultPreviewView looks at the origin from the (3,3,3) corner with z up.
func DefaultPreviewView() PreviewView {
	return PreviewView{
		Up:   r3.Vec{Z: 1},
		Eye:  r3.Vec{X: 3, Y: 3, Z: 3},
		Near: 1,
		Far:  10,
	}
}

// SavePreviewPNG renders the binary STL at stlPath with a phong shader and
// saves a width x height PNG image at pngPath.
func SavePreviewPNG(stlPath, pngPath string, width, height int, view PreviewView) error {
	if width <= 0 || height <= 0 {
		return errors.New("preview dimensions must be positive")
	}
	mesh, err := fauxgl.LoadSTL(stlPath)
	if err != nil {
		return err
	}
	const (
		scale = 2  // supersampling
		fovy  = 30 // vertical field of view in degrees
	)
	var (
		eye    = fauxgl.V(view.Eye.X, view.Eye.Y, view.Eye.Z)
		center = fauxgl.V(view.LookAt.X, view.LookAt.Y, view.LookAt.Z)
		up     = fauxgl.V(view.Up.X, view.Up.Y, view.Up.Z)
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
		color  = fauxgl.HexColor("#468966")
	)
	mesh.BiUnitCube()
	context := fauxgl.NewContext(width*scale, height*scale)
	context.ClearColorBufferWith(fauxgl.HexColor("#FFF8E3"))
	aspect := float64(width) / float64(height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, view.Near, view.Far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = color
	context.Shader = shader
	context.DrawMesh(mesh)
	// downsample image for antialiasing
	image := context.Image()
	image = resize.Resize(uint(width), uint(height), image, resize.Bilinear)
	return fauxgl.SavePNG(pngPath, image)
}
