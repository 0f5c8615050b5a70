package field

import "testing"

func testRegistry() *Registry {
	r := NewRegistry(Size{W: 32, H: 24}, Size{W: 64, H: 48})
	r.RegisterAll(
		Def{ID: "velocity", Format: Vec2, PingPong: true},
		Def{ID: "dye", Format: Vec3, Grid: GridDye, PingPong: true},
		Def{ID: "obstacles", Format: Scalar, Lazy: true},
		Def{ID: "temperature", Format: Scalar, PingPong: true, Lazy: true},
		Def{ID: "coarse", Format: Scalar, Scale: 0.5, PingPong: true, Lazy: true},
	)
	return r
}

func TestRegistryEagerAndLazy(t *testing.T) {
	r := testRegistry()

	if !r.IsAllocated("velocity") {
		t.Error("expected eager field allocated at registration")
	}
	if r.IsAllocated("temperature") {
		t.Error("expected lazy field unallocated before first access")
	}
	if !r.Has("temperature") {
		t.Error("expected lazy field registered")
	}

	buf := r.Read("temperature")
	if buf == nil || !r.IsAllocated("temperature") {
		t.Fatal("expected lazy field allocated on first read")
	}
	if buf.W != 32 || buf.H != 24 || buf.C != 1 {
		t.Errorf("unexpected temperature shape %dx%dx%d", buf.W, buf.H, buf.C)
	}
}

func TestRegistrySwap(t *testing.T) {
	r := testRegistry()

	read, write := r.Both("velocity")
	if read == write {
		t.Fatal("ping-pong field must not alias read and write")
	}
	if r.State("velocity") != A {
		t.Errorf("expected initial state A, got %v", r.State("velocity"))
	}

	write.Set(1, 1, 0, 5)
	r.Swap("velocity")

	if r.State("velocity") != B {
		t.Errorf("expected state B after swap, got %v", r.State("velocity"))
	}
	if got := r.Read("velocity").At(1, 1, 0); got != 5 {
		t.Errorf("expected written value visible after swap, got %f", got)
	}
}

func TestRegistrySingleBufferAliases(t *testing.T) {
	r := testRegistry()

	read, write := r.Both("obstacles")
	if read != write {
		t.Error("single-buffer field should alias read and write")
	}
	r.Swap("obstacles")
	if r.State("obstacles") != A {
		t.Error("swap on a single-buffer field should be a no-op")
	}
}

func TestRegistryScaledSize(t *testing.T) {
	r := NewRegistry(Size{W: 33, H: 17}, Size{W: 33, H: 17})
	r.Register(Def{ID: "coarse", Scale: 0.5, Lazy: true})

	got := r.Size("coarse")
	if got.W != 17 || got.H != 9 {
		t.Errorf("expected 17x9 coarse grid, got %dx%d", got.W, got.H)
	}
}

func TestRegistryResizeRoundTrip(t *testing.T) {
	r := testRegistry()
	g1, d1 := r.GridSize()
	r.Read("temperature")
	r.Swap("velocity")

	r.Resize(Size{W: 100, H: 50}, Size{W: 200, H: 100})
	if got := r.Size("dye"); got.W != 200 || got.H != 100 {
		t.Errorf("expected dye 200x100 after resize, got %dx%d", got.W, got.H)
	}
	if r.State("velocity") != A {
		t.Error("expected ping-pong state reset by resize")
	}

	r.Resize(g1, d1)

	wantSizes := map[ID]Size{
		"velocity":    {32, 24},
		"dye":         {64, 48},
		"obstacles":   {32, 24},
		"temperature": {32, 24},
		"coarse":      {16, 12},
	}
	for id, want := range wantSizes {
		if !r.Has(id) {
			t.Errorf("expected %s registered after round trip", id)
			continue
		}
		if got := r.Size(id); got != want {
			t.Errorf("%s: expected %v, got %v", id, want, got)
		}
	}
	if b := r.Read("velocity"); b.W != 32 || b.H != 24 {
		t.Errorf("expected velocity buffer 32x24, got %dx%d", b.W, b.H)
	}
	if !r.IsAllocated("temperature") {
		t.Error("expected previously allocated lazy field to stay allocated")
	}
	if r.IsAllocated("coarse") {
		t.Error("expected untouched lazy field to stay unallocated")
	}
}

func TestRegistryClearAndDispose(t *testing.T) {
	r := testRegistry()
	r.Read("dye").Set(0, 0, 2, 3)
	r.Swap("dye")

	r.Clear()
	if r.State("dye") != A {
		t.Error("expected clear to reset state")
	}
	if got := r.Read("dye").At(0, 0, 2); got != 0 {
		t.Errorf("expected cleared dye, got %f", got)
	}

	r.Dispose()
	if r.Has("dye") {
		t.Error("expected no fields after dispose")
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic on access after dispose")
		}
	}()
	r.Read("dye")
}

func TestBufferBlasHelpers(t *testing.T) {
	b := NewBuffer(2, 2, Vec2)
	for i := range b.Data {
		b.Data[i] = float32(i + 1) // 1..8
	}

	if got := b.Mass(); got != 36 {
		t.Errorf("expected mass 36, got %f", got)
	}
	if got := b.ChannelMass(1); got != 2+4+6+8 {
		t.Errorf("expected channel 1 mass 20, got %f", got)
	}

	b.ScaleChannel(0, 0.5)
	if b.At(1, 1, 0) != 3.5 || b.At(1, 1, 1) != 8 {
		t.Errorf("unexpected values after channel scale: %v", b.Data)
	}

	c := NewBuffer(2, 2, Vec2)
	c.CopyFrom(b)
	c.AddScaled(-1, b)
	if c.Mass() != 0 {
		t.Errorf("expected zero after subtracting copy, got %f", c.Mass())
	}
}
