// Package camera maps between screen pixels and the normalized fluid domain.
package camera

// Camera controls the viewport into the fluid domain.
// Domain coordinates are normalized [0,1] with y up; screen y points down.
type Camera struct {
	// Position is the camera center in domain coordinates
	X, Y float32

	// Zoom level (1.0 = whole domain fits the viewport)
	Zoom float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// Aspect is the domain width over its height (grid W/H)
	Aspect float32

	// Zoom constraints
	MinZoom, MaxZoom float32
}

// New creates a camera showing the whole domain.
func New(viewportW, viewportH float32, gridW, gridH int) *Camera {
	aspect := float32(1)
	if gridW > 0 && gridH > 0 {
		aspect = float32(gridW) / float32(gridH)
	}
	return &Camera{
		X:         0.5,
		Y:         0.5,
		Zoom:      1.0,
		ViewportW: viewportW,
		ViewportH: viewportH,
		Aspect:    aspect,
		MinZoom:   1.0,
		MaxZoom:   8.0,
	}
}

// scale returns screen pixels per domain unit along x and y.
func (c *Camera) scale() (sx, sy float32) {
	base := min(c.ViewportW/c.Aspect, c.ViewportH) * c.Zoom
	return base * c.Aspect, base
}

// DomainToScreen converts domain coordinates to screen coordinates.
func (c *Camera) DomainToScreen(x, y float32) (sx, sy float32) {
	kx, ky := c.scale()
	sx = c.ViewportW/2 + (x-c.X)*kx
	sy = c.ViewportH/2 - (y-c.Y)*ky
	return sx, sy
}

// ScreenToDomain converts screen coordinates to domain coordinates and
// reports whether the point lies inside the domain.
func (c *Camera) ScreenToDomain(sx, sy float32) (x, y float32, inside bool) {
	kx, ky := c.scale()
	x = c.X + (sx-c.ViewportW/2)/kx
	y = c.Y - (sy-c.ViewportH/2)/ky
	inside = x >= 0 && x <= 1 && y >= 0 && y <= 1
	return x, y, inside
}

// ScreenDeltaToDomain converts a pixel displacement to a domain displacement.
func (c *Camera) ScreenDeltaToDomain(dx, dy float32) (float32, float32) {
	kx, ky := c.scale()
	return dx / kx, -dy / ky
}

// Rect returns the screen rectangle covered by the whole domain.
func (c *Camera) Rect() (x, y, w, h float32) {
	kx, ky := c.scale()
	x, y = c.DomainToScreen(0, 1)
	return x, y, kx, ky
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float32) {
	if viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.clampCenter()
}

// SetAspect updates the domain aspect after a grid resize.
func (c *Camera) SetAspect(gridW, gridH int) {
	if gridW > 0 && gridH > 0 {
		c.Aspect = float32(gridW) / float32(gridH)
	}
	c.clampCenter()
}

// Pan moves the camera by the given delta in screen pixels.
// The view stays inside the domain.
func (c *Camera) Pan(dx, dy float32) {
	ddx, ddy := c.ScreenDeltaToDomain(dx, dy)
	c.X -= ddx
	c.Y -= ddy
	c.clampCenter()
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
	c.clampCenter()
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// Reset returns the camera to the default position and zoom.
func (c *Camera) Reset() {
	c.X = 0.5
	c.Y = 0.5
	c.Zoom = 1.0
}

// VisibleBounds returns the domain-coordinate bounds of the visible area.
func (c *Camera) VisibleBounds() (minX, minY, maxX, maxY float32) {
	kx, ky := c.scale()
	halfW := c.ViewportW / (2 * kx)
	halfH := c.ViewportH / (2 * ky)
	return c.X - halfW, c.Y - halfH, c.X + halfW, c.Y + halfH
}

// clampCenter keeps the visible area within the domain on each axis that
// is zoomed in far enough to have slack.
func (c *Camera) clampCenter() {
	kx, ky := c.scale()
	c.X = clampAxis(c.X, c.ViewportW/(2*kx))
	c.Y = clampAxis(c.Y, c.ViewportH/(2*ky))
}

func clampAxis(center, half float32) float32 {
	if half >= 0.5 {
		return 0.5
	}
	return clamp(center, half, 1-half)
}

// clamp restricts a value to a range.
func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
