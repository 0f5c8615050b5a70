package renderer

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plume/field"
)

// Source is the read-only view of a solver the renderer needs.
type Source interface {
	Dye() *field.Buffer
	Obstacles() *field.Buffer
}

// DyeView uploads the dye field into a texture each frame and draws it.
type DyeView struct {
	texture rl.Texture2D
	width   int
	height  int
	pixels  []color.RGBA
	loaded  bool

	// Exposure scales dye before clamping to 8 bits
	Exposure float32
	// ShowObstacles tints solid cells
	ShowObstacles bool
}

// NewDyeView creates a view. The texture is created on the first Update,
// which must run after the window is open.
func NewDyeView() *DyeView {
	return &DyeView{Exposure: 1, ShowObstacles: true}
}

// Update re-colorizes the dye and uploads it. The texture is recreated
// when the dye resolution changes.
func (v *DyeView) Update(src Source) {
	dye := src.Dye()
	var mask *field.Buffer
	if v.ShowObstacles {
		mask = src.Obstacles()
	}
	v.pixels = Colorize(v.pixels, dye, mask, v.Exposure)

	if !v.loaded || dye.W != v.width || dye.H != v.height {
		v.reload(dye.W, dye.H)
	}
	rl.UpdateTexture(v.texture, v.pixels)
}

func (v *DyeView) reload(w, h int) {
	if v.loaded {
		rl.UnloadTexture(v.texture)
	}
	img := rl.GenImageColor(w, h, rl.Black)
	v.texture = rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	rl.SetTextureFilter(v.texture, rl.FilterBilinear)
	v.width, v.height = w, h
	v.loaded = true
}

// Draw renders the dye texture into the given screen rectangle.
func (v *DyeView) Draw(x, y, w, h float32) {
	if !v.loaded {
		return
	}
	srcRect := rl.Rectangle{X: 0, Y: 0, Width: float32(v.width), Height: float32(v.height)}
	dstRect := rl.Rectangle{X: x, Y: y, Width: w, Height: h}
	rl.DrawTexturePro(v.texture, srcRect, dstRect, rl.Vector2{}, 0, rl.White)
}

// Unload releases the texture.
func (v *DyeView) Unload() {
	if v.loaded {
		rl.UnloadTexture(v.texture)
		v.loaded = false
	}
}
