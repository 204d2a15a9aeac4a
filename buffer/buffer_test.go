package buffer

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/vbuf"
	"github.com/wippyai/vbuf/data"
	"github.com/wippyai/vbuf/errors"
	"github.com/wippyai/vbuf/layout"
	"github.com/wippyai/vbuf/schema"
	"github.com/wippyai/vbuf/store"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	return schema.MustNew(
		schema.Input{Name: "x", Size: 1, Type: schema.Float32},
		schema.Input{Name: "y", Size: 1, Type: schema.Float32},
		schema.Input{Name: "z", Size: 1, Type: schema.Uint8},
		schema.Input{Name: "p", Size: 3, Type: schema.Float32},
	)
}

func floats32(b []byte) []float64 {
	out := make([]float64, len(b)/4)
	for i := range out {
		out[i] = schema.ReadValue(b[i*4:], schema.Float32)
	}
	return out
}

func packFloat32(vs ...float64) []byte {
	out := make([]byte, 4*len(vs))
	for i, v := range vs {
		schema.PutValue(out[i*4:], schema.Float32, v)
	}
	return out
}

type rebinds struct {
	calls []int
	last  vbuf.Handle
}

func (r *rebinds) fn(_, h vbuf.Handle, size int) {
	r.calls = append(r.calls, size)
	r.last = h
}

func newBuffer(t *testing.T, st vbuf.BackingStore, atoms ...layout.Node) (*VertexBuffer, *rebinds) {
	t.Helper()
	rb := &rebinds{}
	opts := DefaultOptions()
	opts.OnRebind = rb.fn
	vb, err := New(atoms, testSchema(t), st, opts)
	require.NoError(t, err)
	return vb, rb
}

func add(t *testing.T, vb *VertexBuffer, desc layout.Node, d data.Value, opts AddOptions) *AddPlan {
	t.Helper()
	l, err := layout.Compile(desc, vb.Schema(), layout.Options{})
	require.NoError(t, err)
	plan, err := vb.SizeDataAdd(l, d, opts)
	require.NoError(t, err)
	require.NoError(t, plan.DoAdd())
	return plan
}

func readFloats(t *testing.T, vb *VertexBuffer, atom int) []float64 {
	t.Helper()
	b, err := vb.ReadAtom(atom)
	require.NoError(t, err)
	return floats32(b)
}

func TestAppendReadBack(t *testing.T) {
	for _, tc := range []struct {
		name string
		st   func(t *testing.T) vbuf.BackingStore
	}{
		{"local", func(t *testing.T) vbuf.BackingStore { return store.NewLocal() }},
		{"linear", func(t *testing.T) vbuf.BackingStore {
			ctx := context.Background()
			l, err := store.NewLinear(ctx, store.LinearOptions{})
			require.NoError(t, err)
			t.Cleanup(func() { _ = l.Close(ctx) })
			return l
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			atom := layout.StartRepeat(layout.In("x"), layout.In("y"))
			vb, rb := newBuffer(t, tc.st(t), atom)
			require.Equal(t, 8, vb.Size())

			plan := add(t, vb, layout.Seq(atom), data.Floats(1, 2, 3, 4), AddOptions{})
			assert.Equal(t, []int{2}, plan.PointsAdded)
			assert.Equal(t, 0, plan.DirectCopyCount)

			assert.Equal(t, []float64{1, 2, 3, 4}, readFloats(t, vb, 0))
			assert.Equal(t, 16, vb.Size())
			assert.Equal(t, []int{16}, rb.calls)
			assert.Equal(t, vb.Handle(), rb.last)
		})
	}
}

func TestDirectCopyDetection(t *testing.T) {
	xy := layout.StartRepeat(layout.In("x"), layout.In("y"))
	vb, _ := newBuffer(t, store.NewLocal(), xy, layout.StartRepeat(layout.In("z")))

	raw := packFloat32(1, 2, 3, 4)
	plan := add(t, vb, layout.Seq(xy), data.Binary(raw), AddOptions{})
	assert.Equal(t, 1, plan.DirectCopyCount)
	assert.Equal(t, []bool{true, false}, plan.DirectCopy)
	assert.Equal(t, []int{2, 0}, plan.PointsAdded)
	assert.Equal(t, []float64{1, 2, 3, 4}, readFloats(t, vb, 0))

	// same inputs in another order must be repacked
	yx := layout.StartRepeat(layout.In("y"), layout.In("x"))
	plan = add(t, vb, layout.Seq(yx), data.Binary(packFloat32(6, 5)), AddOptions{})
	assert.Equal(t, 0, plan.DirectCopyCount)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, readFloats(t, vb, 0))

	// a transform forces repacking
	plan = add(t, vb, layout.Seq(xy), data.Binary(packFloat32(7, 8)), AddOptions{
		Transforms: map[string]layout.IndexTransform{"x": layout.Reverse},
	})
	assert.Equal(t, 0, plan.DirectCopyCount)
	assert.Equal(t, 4, vb.Views()[0].Points())
}

func TestMultiAtomAdd(t *testing.T) {
	vb, _ := newBuffer(t, store.NewLocal(),
		layout.StartRepeat(layout.In("x"), layout.In("y")),
		layout.StartRepeat(layout.In("z")),
	)

	desc := layout.Seq(
		layout.StartRepeat(layout.In("x"), layout.In("y")),
		layout.StartRepeat(layout.In("z")),
	)
	plan := add(t, vb, desc, data.Floats(1, 2, 3, 4, 255, 7), AddOptions{})
	assert.Equal(t, []int{2, 2}, plan.PointsAdded)

	assert.Equal(t, []float64{1, 2, 3, 4}, readFloats(t, vb, 0))
	z, err := vb.ReadAtom(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{255, 7}, z)
}

func TestGrowthShiftsSiblings(t *testing.T) {
	vb, rb := newBuffer(t, store.NewLocal(),
		layout.StartRepeat(layout.In("x")),
		layout.StartRepeat(layout.In("y")),
	)
	views := vb.Views()
	require.Equal(t, 4, views[1].Start())

	add(t, vb, layout.Seq(layout.StartRepeat(layout.In("x"))), data.Floats(1, 2, 3), AddOptions{})

	// 4 bytes free, chunks of 1 then 2 datums
	assert.Equal(t, 16, views[0].Alloc())
	assert.Equal(t, 2, views[0].Resizes())
	assert.Equal(t, 16, views[1].Start())
	assert.Equal(t, 20, vb.Size())
	assert.Len(t, rb.calls, 1)

	add(t, vb, layout.Seq(layout.StartRepeat(layout.In("y"))), data.Floats(9), AddOptions{})
	assert.Len(t, rb.calls, 1, "append into slack must not reallocate")

	add(t, vb, layout.Seq(layout.StartRepeat(layout.In("x"))), data.Floats(4), AddOptions{})
	assert.Equal(t, []float64{1, 2, 3, 4}, readFloats(t, vb, 0))
	assert.Equal(t, []float64{9}, readFloats(t, vb, 1))

	// growth is a whole number of chunks
	before := vb.Size()
	add(t, vb, layout.Seq(layout.StartRepeat(layout.In("x"))), data.Floats(5), AddOptions{})
	assert.Equal(t, before+3*4, vb.Size())
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, readFloats(t, vb, 0))
	assert.Equal(t, []float64{9}, readFloats(t, vb, 1))
	assert.Equal(t, views[0].End(), views[1].Start())
}

func TestPrependAndDefaultDelete(t *testing.T) {
	atom := layout.EndRepeat(layout.In("x"))
	vb, _ := newBuffer(t, store.NewLocal(), atom)
	desc := layout.Seq(atom)

	add(t, vb, desc, data.Floats(1, 2), AddOptions{})
	add(t, vb, desc, data.Floats(-1, 0), AddOptions{})
	assert.Equal(t, []float64{-1, 0, 1, 2}, readFloats(t, vb, 0))
	assert.Equal(t, 16, vb.Size())

	// end repeats delete from the start by default
	plan, err := vb.SizeDataDelete(map[string]DeleteInfo{"x": {Amount: 1}})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, plan.PointsDeleted)
	require.NoError(t, plan.DoDelete())
	assert.Equal(t, []float64{0, 1, 2}, readFloats(t, vb, 0))
	assert.Equal(t, 16, vb.Size(), "a partial chunk is kept")

	plan, err = vb.SizeDataDelete(map[string]DeleteInfo{"x": {Amount: 2}})
	require.NoError(t, err)
	require.NoError(t, plan.DoDelete())
	assert.Equal(t, []float64{2}, readFloats(t, vb, 0))
	assert.Equal(t, 4, vb.Size())
	assert.Equal(t, 0, vb.Views()[0].Resizes())
}

func TestExplicitDirections(t *testing.T) {
	atom := layout.StartRepeat(layout.In("x"), layout.In("y"))
	vb, _ := newBuffer(t, store.NewLocal(), atom)
	desc := layout.Seq(atom)

	add(t, vb, desc, data.Floats(1, 2), AddOptions{})
	add(t, vb, desc, data.Floats(3, 4), AddOptions{Direction: Prepend})
	add(t, vb, desc, data.Floats(5, 6), AddOptions{Methods: map[string]Direction{"x": Append, "y": Append}})
	assert.Equal(t, []float64{3, 4, 1, 2, 5, 6}, readFloats(t, vb, 0))

	plan, err := vb.SizeDataDelete(map[string]DeleteInfo{
		"x": {Side: SideStart, Amount: 1},
		"y": {Side: SideStart, Amount: 1},
	})
	require.NoError(t, err)
	require.NoError(t, plan.DoDelete())
	assert.Equal(t, []float64{1, 2, 5, 6}, readFloats(t, vb, 0))
}

func TestShrinkPolicy(t *testing.T) {
	t.Run("no resizes never shrinks", func(t *testing.T) {
		atom := layout.StartRepeat(layout.In("x")).WithSize(4)
		vb, rb := newBuffer(t, store.NewLocal(), atom)
		add(t, vb, layout.Seq(atom), data.Floats(1, 2), AddOptions{})

		plan, err := vb.SizeDataDelete(map[string]DeleteInfo{"x": {}})
		require.NoError(t, err)
		assert.Equal(t, []int{2}, plan.PointsDeleted)
		require.NoError(t, plan.DoDelete())
		assert.Equal(t, 16, vb.Size())
		assert.Empty(t, rb.calls)
		assert.Equal(t, 0, vb.Views()[0].Points())
	})

	t.Run("lazy keeps allocation", func(t *testing.T) {
		atom := layout.StartRepeat(layout.In("x"))
		vb, rb := newBuffer(t, store.NewLocal(), atom)
		add(t, vb, layout.Seq(atom), data.Floats(1, 2, 3), AddOptions{})
		size := vb.Size()

		plan, err := vb.SizeDataDelete(map[string]DeleteInfo{"x": {Lazy: true}})
		require.NoError(t, err)
		require.NoError(t, plan.DoDelete())
		assert.Equal(t, size, vb.Size())
		assert.Len(t, rb.calls, 1)
	})

	t.Run("keeps chunks still in use", func(t *testing.T) {
		atom := layout.StartRepeat(layout.In("x"))
		vb, _ := newBuffer(t, store.NewLocal(), atom)
		add(t, vb, layout.Seq(atom), data.Floats(1, 2, 3, 4), AddOptions{})
		v := vb.Views()[0]
		require.Equal(t, 2, v.Resizes())

		plan, err := vb.SizeDataDelete(map[string]DeleteInfo{"x": {Amount: 2}})
		require.NoError(t, err)
		require.NoError(t, plan.DoDelete())
		assert.Equal(t, []float64{1, 2}, readFloats(t, vb, 0))
		// 8 bytes left hold 2 datums: the 2-datum chunk goes, the rest stays
		assert.Equal(t, 1, v.Resizes())
		assert.Equal(t, 8, v.Alloc())
		assert.GreaterOrEqual(t, v.Alloc(), v.Len())
	})
}

func TestDeleteConfigErrors(t *testing.T) {
	atom := layout.StartRepeat(layout.In("x"), layout.In("y"))
	vb, _ := newBuffer(t, store.NewLocal(), atom)

	_, err := vb.SizeDataDelete(map[string]DeleteInfo{"x": {}})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "deleted together")

	_, err = vb.SizeDataDelete(map[string]DeleteInfo{"x": {Amount: 1}, "y": {Amount: 2}})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "same values")
}

func TestAddErrors(t *testing.T) {
	atom := layout.StartRepeat(layout.In("x"), layout.In("y"))
	vb, _ := newBuffer(t, store.NewLocal(), atom)
	s := vb.Schema()

	l := layout.MustCompile(layout.Seq(atom), s, layout.Options{})
	_, err := vb.SizeDataAdd(l, data.Floats(1, 2), AddOptions{
		Methods: map[string]Direction{"x": Append, "y": Prepend},
	})
	assert.True(t, stderrors.Is(err, errors.ErrConfig), "got %v", err)

	partial := layout.MustCompile(layout.Seq(layout.StartRepeat(layout.In("x"))), s, layout.Options{})
	_, err = vb.SizeDataAdd(partial, data.Floats(1), AddOptions{})
	assert.True(t, stderrors.Is(err, errors.ErrShape), "got %v", err)

	uneven := layout.MustCompile(layout.Seq(
		layout.StartRepeat(layout.In("x")).WithSize(1),
		layout.StartRepeat(layout.In("y")),
	), s, layout.Options{})
	_, err = vb.SizeDataAdd(uneven, data.Floats(1, 2, 3), AddOptions{})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrShape))
	assert.Contains(t, err.Error(), "unequal")

	unrelated := layout.MustCompile(layout.Seq(layout.StartRepeat(layout.In("z"))), s, layout.Options{})
	plan, err := vb.SizeDataAdd(unrelated, data.Floats(1), AddOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, plan.PointsAdded)

	require.NoError(t, plan.DoAdd())
	assert.True(t, stderrors.Is(plan.DoAdd(), errors.ErrConfig), "plans commit once")
}

func TestTransformsAndVectors(t *testing.T) {
	xy := layout.StartRepeat(layout.In("x"), layout.In("y"))
	vb, _ := newBuffer(t, store.NewLocal(), xy, layout.StartRepeat(layout.In("p")))

	add(t, vb, layout.Seq(xy), data.Floats(1, 2, 3, 4), AddOptions{
		Transforms: map[string]layout.IndexTransform{"x": layout.Reverse, "y": layout.Reverse},
	})
	assert.Equal(t, []float64{3, 4, 1, 2}, readFloats(t, vb, 0))

	expanded := layout.Seq(layout.StartRepeat(layout.In("p")).WithExpand("p"))
	plan := add(t, vb, expanded, data.Floats(1, 2, 3, 4, 5, 6), AddOptions{})
	assert.Equal(t, []int{0, 2}, plan.PointsAdded)

	nested := layout.Seq(layout.StartRepeat(layout.In("p")))
	add(t, vb, nested, data.Array(data.Vec(7, 8, 9)), AddOptions{})
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, readFloats(t, vb, 1))
}

func TestInitialData(t *testing.T) {
	atom := layout.StartRepeat(layout.In("x"), layout.In("y"))
	s := testSchema(t)
	rebound := 0
	vb, err := New([]layout.Node{atom, layout.CenterRepeat(layout.In("z"))}, s, store.NewLocal(), Options{
		Initial: &Initial{
			Layout: layout.MustCompile(layout.Seq(atom), s, layout.Options{}),
			Data:   data.Floats(1, 2, 3, 4, 5, 6),
		},
		OnRebind: func(vbuf.Handle, vbuf.Handle, int) { rebound++ },
	})
	require.NoError(t, err)

	assert.Equal(t, 0, rebound)
	assert.Equal(t, 3, vb.Views()[0].RepeatCount())
	assert.Equal(t, 24+2, vb.Size())
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, readFloats(t, vb, 0))
}

func TestObserversAndClose(t *testing.T) {
	atom := layout.StartRepeat(layout.In("x"))
	st := store.NewLocal()
	vb, _ := newBuffer(t, st, atom)
	first := vb.Handle()

	var events []Event
	unsubscribe := vb.Subscribe(ObserverFunc(func(e Event) { events = append(events, e) }))

	add(t, vb, layout.Seq(atom), data.Floats(1, 2), AddOptions{})
	require.Len(t, events, 1)
	assert.Equal(t, EventReallocated, events[0].Type)
	assert.Equal(t, first, events[0].Old)
	assert.Equal(t, vb.Handle(), events[0].New)
	_, live := st.Size(first)
	assert.False(t, live, "old handle is released before observers run")

	require.NoError(t, vb.Close())
	require.Len(t, events, 2)
	assert.Equal(t, EventReleased, events[1].Type)
	assert.Equal(t, 0, st.Stats().Live)

	unsubscribe()
}

func internalPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		err, ok := r.(*errors.Error)
		require.True(t, ok, "panic value %v", r)
		assert.Equal(t, errors.KindInternal, err.Kind)
	}()
	fn()
}

func TestSubBufferView(t *testing.T) {
	s := testSchema(t)
	xy, err := layout.NewAtom(layout.StartRepeat(layout.In("x"), layout.In("y")), s)
	require.NoError(t, err)

	t.Run("alignment", func(t *testing.T) {
		start := NewSubBufferView(10, xy, nil)
		assert.Equal(t, 10, start.DataStart())

		end := xy
		end.Kind = layout.RepeatEnd
		end.Size = 2
		ev := NewSubBufferView(10, end, nil)
		assert.Equal(t, 26, ev.DataStart())

		center := xy
		center.Kind = layout.RepeatCenter
		center.Size = 3
		cv := NewSubBufferView(0, center, nil)
		assert.Equal(t, 4, cv.RepeatCount())
		assert.Equal(t, 16, cv.DataStart())
	})

	t.Run("check then adjust", func(t *testing.T) {
		v := NewSubBufferView(0, xy, nil)
		grow, ok := v.CheckResizeAppend(8)
		assert.False(t, ok)
		assert.Zero(t, grow)
		assert.Equal(t, 0, v.AdjustWriteIndexAppend(8))

		grow, ok = v.CheckResizePrepend(16)
		require.True(t, ok)
		assert.Equal(t, 24, grow)
		assert.Equal(t, 8, v.AdjustWriteIndexPrepend(16))
		assert.Equal(t, 32, v.DataEnd())
		assert.Equal(t, 32, v.Alloc())
		assert.Equal(t, 3, v.Points())

		v.ShiftByteIndices(100)
		assert.Equal(t, 100, v.Start())
		assert.Equal(t, 108, v.DataStart())
	})

	t.Run("shrink amount", func(t *testing.T) {
		v := NewSubBufferView(0, xy, nil)
		_, _ = v.CheckResizeAppend(48)
		v.AdjustWriteIndexAppend(48)
		require.Equal(t, 3, v.Resizes())

		total, k := v.calculateShrinkAmount(0)
		assert.Zero(t, total)
		assert.Zero(t, k)

		// newest chunk holds 3 datums
		total, k = v.calculateShrinkAmount(24)
		assert.Equal(t, 24, total)
		assert.Equal(t, 1, k)

		total, k = v.calculateShrinkAmount(1000)
		assert.Equal(t, 48, total)
		assert.Equal(t, 3, k)
	})

	t.Run("internal violations", func(t *testing.T) {
		v := NewSubBufferView(0, xy, nil)
		internalPanic(t, func() { v.AdjustWriteIndexAppend(16) })
		internalPanic(t, func() { v.AdjustWriteIndexAppend(3) })
		internalPanic(t, func() { v.AdjustWriteIndexPrepend(8) })
		internalPanic(t, func() { v.AdjustDeleteEnd(8) })
	})
}

func TestCustomResize(t *testing.T) {
	atom := layout.StartRepeat(layout.In("x"))
	opts := Options{Resize: func(int, int) int { return 10 }}
	vb, err := New([]layout.Node{atom}, testSchema(t), store.NewLocal(), opts)
	require.NoError(t, err)

	add(t, vb, layout.Seq(atom), data.Floats(1, 2), AddOptions{})
	assert.Equal(t, 4+40, vb.Size())
}
