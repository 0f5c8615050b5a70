// Package field owns the solver's named grid fields and their ping-pong state.
package field

import (
	"fmt"
	"math"
)

// Format is the element layout of a field.
type Format uint8

const (
	Scalar Format = iota
	Vec2
	Vec3
	Vec4
)

// Channels returns the number of float32 channels per cell.
func (f Format) Channels() int {
	return int(f) + 1
}

func (f Format) String() string {
	switch f {
	case Scalar:
		return "scalar"
	case Vec2:
		return "vec2"
	case Vec3:
		return "vec3"
	case Vec4:
		return "vec4"
	}
	return fmt.Sprintf("format(%d)", uint8(f))
}

// Grid selects which base resolution a field follows.
type Grid uint8

const (
	GridVelocity Grid = iota
	GridDye
)

// Size is a grid resolution in cells.
type Size struct {
	W, H int
}

// ID names a field.
type ID string

// Tag identifies which physical buffer of a ping-pong pair is current.
type Tag uint8

const (
	A Tag = iota
	B
)

func (t Tag) String() string {
	if t == B {
		return "B"
	}
	return "A"
}

// Def describes a field at registration time.
type Def struct {
	ID       ID
	Format   Format
	Grid     Grid
	Scale    float32 // Resolution multiplier of the base grid (0 = 1)
	PingPong bool
	Lazy     bool // Allocate on first access instead of at registration
}

type slot struct {
	def     Def
	buffers [2]*Buffer
	current Tag
}

func (s *slot) allocated() bool {
	return s.buffers[0] != nil
}

// Registry owns every field of a solver.
// The only mutable shared state is each field's current Tag, changed by Swap.
type Registry struct {
	grid, dye Size
	slots     map[ID]*slot
	order     []ID
	disposed  bool
}

// NewRegistry creates an empty registry for the given base resolutions.
func NewRegistry(grid, dye Size) *Registry {
	return &Registry{
		grid:  clampSize(grid),
		dye:   clampSize(dye),
		slots: make(map[ID]*slot),
	}
}

// Register adds a field. Eager fields are allocated immediately.
// Registering an existing ID replaces its definition and drops its storage.
func (r *Registry) Register(def Def) {
	if def.Scale <= 0 {
		def.Scale = 1
	}
	if _, ok := r.slots[def.ID]; !ok {
		r.order = append(r.order, def.ID)
	}
	s := &slot{def: def}
	r.slots[def.ID] = s
	if !def.Lazy {
		r.allocate(s)
	}
}

// RegisterAll registers several fields in order.
func (r *Registry) RegisterAll(defs ...Def) {
	for _, d := range defs {
		r.Register(d)
	}
}

// Has reports whether id is registered.
func (r *Registry) Has(id ID) bool {
	_, ok := r.slots[id]
	return ok
}

// IsAllocated reports whether id has backing storage.
func (r *Registry) IsAllocated(id ID) bool {
	s, ok := r.slots[id]
	return ok && s.allocated()
}

// Def returns the registration of id.
func (r *Registry) Def(id ID) (Def, bool) {
	s, ok := r.slots[id]
	if !ok {
		return Def{}, false
	}
	return s.def, true
}

// IDs returns registered field IDs in registration order.
func (r *Registry) IDs() []ID {
	return append([]ID(nil), r.order...)
}

// GridSize returns the base velocity and dye resolutions.
func (r *Registry) GridSize() (grid, dye Size) {
	return r.grid, r.dye
}

// Size returns the resolution of id, honoring its scale.
func (r *Registry) Size(id ID) Size {
	s := r.mustSlot(id)
	return r.sizeOf(s.def)
}

// Read returns the current buffer of id, allocating it on first access.
func (r *Registry) Read(id ID) *Buffer {
	s := r.mustSlot(id)
	if !s.allocated() {
		r.allocate(s)
	}
	return s.buffers[s.current]
}

// Both returns the current (read) and next (write) buffers of id.
// Single-buffer fields return the same buffer twice.
func (r *Registry) Both(id ID) (read, write *Buffer) {
	s := r.mustSlot(id)
	if !s.allocated() {
		r.allocate(s)
	}
	if !s.def.PingPong {
		return s.buffers[0], s.buffers[0]
	}
	return s.buffers[s.current], s.buffers[1-s.current]
}

// Pair returns both physical buffers and the current tag without allocating.
// Unallocated fields return nil buffers.
func (r *Registry) Pair(id ID) (a, b *Buffer, current Tag) {
	s, ok := r.slots[id]
	if !ok {
		return nil, nil, A
	}
	return s.buffers[0], s.buffers[1], s.current
}

// Swap makes the write buffer of id current. No-op for single-buffer fields.
func (r *Registry) Swap(id ID) {
	s := r.mustSlot(id)
	if !s.def.PingPong {
		return
	}
	s.current = 1 - s.current
}

// State returns which physical buffer is current.
func (r *Registry) State(id ID) Tag {
	return r.mustSlot(id).current
}

// Resize recreates every allocated field at the new resolutions and resets
// ping-pong state to A. Lazy fields that were never touched stay unallocated.
func (r *Registry) Resize(grid, dye Size) {
	r.grid = clampSize(grid)
	r.dye = clampSize(dye)
	for _, id := range r.order {
		s := r.slots[id]
		wasAllocated := s.allocated()
		s.buffers = [2]*Buffer{}
		s.current = A
		if wasAllocated || !s.def.Lazy {
			r.allocate(s)
		}
	}
}

// Clear zeroes every allocated buffer and resets ping-pong state.
func (r *Registry) Clear() {
	for _, s := range r.slots {
		for _, b := range s.buffers {
			if b != nil {
				b.Clear()
			}
		}
		s.current = A
	}
}

// Release drops the storage of id, returning it to the lazy state.
func (r *Registry) Release(id ID) {
	if s, ok := r.slots[id]; ok {
		s.buffers = [2]*Buffer{}
		s.current = A
	}
}

// Dispose releases all storage and registrations.
func (r *Registry) Dispose() {
	r.slots = make(map[ID]*slot)
	r.order = nil
	r.disposed = true
}

func (r *Registry) mustSlot(id ID) *slot {
	s, ok := r.slots[id]
	if !ok {
		if r.disposed {
			panic(fmt.Sprintf("field: %q accessed after Dispose", id))
		}
		panic(fmt.Sprintf("field: %q is not registered", id))
	}
	return s
}

func (r *Registry) allocate(s *slot) {
	size := r.sizeOf(s.def)
	s.buffers[0] = NewBuffer(size.W, size.H, s.def.Format)
	if s.def.PingPong {
		s.buffers[1] = NewBuffer(size.W, size.H, s.def.Format)
	}
	s.current = A
}

func (r *Registry) sizeOf(def Def) Size {
	base := r.grid
	if def.Grid == GridDye {
		base = r.dye
	}
	scale := def.Scale
	if scale <= 0 {
		scale = 1
	}
	return Size{
		W: max(1, int(math.Ceil(float64(float32(base.W)*scale)))),
		H: max(1, int(math.Ceil(float64(float32(base.H)*scale)))),
	}
}

func clampSize(s Size) Size {
	return Size{W: max(s.W, 1), H: max(s.H, 1)}
}
