package dataset

import (
	"go.uber.org/zap"

	"github.com/wippyai/vbuf"
	"github.com/wippyai/vbuf/buffer"
	"github.com/wippyai/vbuf/data"
	"github.com/wippyai/vbuf/errors"
	"github.com/wippyai/vbuf/layout"
	"github.com/wippyai/vbuf/schema"
)

// RebindFunc is told which buffer moved to a new handle.
type RebindFunc func(buf int, old, new vbuf.Handle, size int)

// Initial is data written while the buffers are created. Atoms are sized to
// hold it without reallocating.
type Initial struct {
	Layout layout.Spec
	Data   data.Value
}

// Options configure a DataSet.
type Options struct {
	Initial  *Initial
	Resize   buffer.ResizeFunc
	OnRebind RebindFunc
	// Logger overrides the package logger for this data set and its buffers.
	Logger *zap.Logger
}

// DefaultOptions returns options with the default resize policy.
func DefaultOptions() Options {
	return Options{Resize: buffer.DefaultResize}
}

// AddOptions steer one add.
type AddOptions struct {
	// Methods sets the direction per input; inputs of one atom must agree.
	Methods map[string]buffer.Direction
	// Transforms reorders the values of an input before packing.
	Transforms map[string]layout.IndexTransform
	// NoCache compiles a descriptor without consulting or filling the cache.
	NoCache bool
	// LayoutOptions are used when compiling a descriptor.
	LayoutOptions layout.Options
}

// DataSet routes application data into a fixed set of vertex buffers. Every
// input of its schema lives in exactly one atom of one buffer.
type DataSet struct {
	schema  *schema.Schema
	log     *zap.Logger
	buffers []*buffer.VertexBuffer
	cache   map[string]*layout.Layout
}

// New validates the inputs and buffer atoms and allocates the buffers.
func New(inputs []schema.Input, buffers [][]layout.Node, st vbuf.BackingStore, opts Options) (*DataSet, error) {
	s, err := schema.New(inputs...)
	if err != nil {
		return nil, err
	}
	if err := validateAtoms(s, buffers); err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = Logger()
	}
	ds := &DataSet{
		schema: s,
		log:    log,
		cache:  make(map[string]*layout.Layout),
	}

	var initial *buffer.Initial
	if opts.Initial != nil {
		l, err := ds.Layout(opts.Initial.Layout, layout.Options{}, false)
		if err != nil {
			return nil, err
		}
		initial = &buffer.Initial{Layout: l, Data: opts.Initial.Data}
	}

	ds.buffers = make([]*buffer.VertexBuffer, len(buffers))
	for i, atoms := range buffers {
		bopts := buffer.Options{
			Resize:  opts.Resize,
			Initial: initial,
			Logger:  log,
		}
		if opts.OnRebind != nil {
			idx, fn := i, opts.OnRebind
			bopts.OnRebind = func(old, new vbuf.Handle, size int) { fn(idx, old, new, size) }
		}
		vb, err := buffer.New(atoms, s, st, bopts)
		if err != nil {
			ds.Close()
			return nil, err
		}
		ds.buffers[i] = vb
	}
	log.Debug("data set created", zap.Int("inputs", s.Len()), zap.Int("buffers", len(buffers)))
	return ds, nil
}

// validateAtoms checks that every input is referenced by exactly one atom.
func validateAtoms(s *schema.Schema, buffers [][]layout.Node) error {
	if len(buffers) == 0 {
		return errors.Schema(errors.PhaseValidate, nil, "data set needs at least one buffer")
	}
	owner := make(map[string]string, s.Len())
	for _, atoms := range buffers {
		for _, n := range atoms {
			a, err := layout.NewAtom(n, s)
			if err != nil {
				return err
			}
			for _, in := range a.Inputs {
				if prev, ok := owner[in.Name]; ok {
					return errors.New(errors.PhaseValidate, errors.KindSchema).
						Input(in.Name).
						Detail("referenced by both %s and %s", prev, a).
						Build()
				}
				owner[in.Name] = a.String()
			}
		}
	}
	for _, in := range s.Inputs() {
		if _, ok := owner[in.Name]; !ok {
			return errors.New(errors.PhaseValidate, errors.KindSchema).
				Input(in.Name).
				Detail("not referenced by any buffer atom").
				Build()
		}
	}
	return nil
}

func (ds *DataSet) Schema() *schema.Schema { return ds.schema }

func (ds *DataSet) Buffers() []*buffer.VertexBuffer { return ds.buffers }

// CacheLen returns the number of cached compiled layouts.
func (ds *DataSet) CacheLen() int { return len(ds.cache) }

// Layout resolves a layout spec: descriptors are compiled against the data
// set schema and cached by key, compiled layouts are accepted when their
// inputs match the schema.
func (ds *DataSet) Layout(spec layout.Spec, opts layout.Options, noCache bool) (*layout.Layout, error) {
	switch sp := spec.(type) {
	case *layout.Layout:
		if sp == nil {
			return nil, errors.Schema(errors.PhaseCompile, nil, "nil layout")
		}
		for _, name := range sp.InputNames() {
			theirs, _ := sp.Schema().Lookup(name)
			ours, ok := ds.schema.Lookup(name)
			if !ok || ours != theirs {
				return nil, errors.New(errors.PhaseCompile, errors.KindSchema).
					Input(name).
					Detail("layout input definition does not match the data set").
					Build()
			}
		}
		return sp, nil
	case layout.Node:
		if noCache {
			return layout.Compile(sp, ds.schema, opts)
		}
		key := layout.Key(sp, opts)
		if l, ok := ds.cache[key]; ok {
			return l, nil
		}
		l, err := layout.Compile(sp, ds.schema, opts)
		if err != nil {
			return nil, err
		}
		ds.cache[key] = l
		ds.log.Debug("layout compiled", zap.String("key", key))
		return l, nil
	default:
		return nil, errors.Schema(errors.PhaseCompile, nil, "unsupported layout spec %T", spec)
	}
}

// AppendData adds d at the end of every atom it references.
func (ds *DataSet) AppendData(d data.Value, spec layout.Spec, opts *AddOptions) ([][]int, error) {
	return ds.add(d, spec, buffer.Append, opts)
}

// PrependData adds d at the start of every atom it references.
func (ds *DataSet) PrependData(d data.Value, spec layout.Spec, opts *AddOptions) ([][]int, error) {
	return ds.add(d, spec, buffer.Prepend, opts)
}

// AddData adds d on each atom's default side, or as opts.Methods says.
func (ds *DataSet) AddData(d data.Value, spec layout.Spec, opts *AddOptions) ([][]int, error) {
	return ds.add(d, spec, buffer.DirectionDefault, opts)
}

// add sizes the data for every buffer before committing any of them.
func (ds *DataSet) add(d data.Value, spec layout.Spec, dir buffer.Direction, opts *AddOptions) ([][]int, error) {
	if opts == nil {
		opts = &AddOptions{}
	}
	l, err := ds.Layout(spec, opts.LayoutOptions, opts.NoCache)
	if err != nil {
		return nil, err
	}

	bopts := buffer.AddOptions{
		Direction:  dir,
		Methods:    opts.Methods,
		Transforms: opts.Transforms,
	}
	plans := make([]*buffer.AddPlan, len(ds.buffers))
	for i, vb := range ds.buffers {
		if plans[i], err = vb.SizeDataAdd(l, d, bopts); err != nil {
			return nil, err
		}
	}

	out := make([][]int, len(plans))
	direct := 0
	for i, p := range plans {
		if err := p.DoAdd(); err != nil {
			return nil, err
		}
		out[i] = p.PointsAdded
		direct += p.DirectCopyCount
	}
	ds.log.Debug("data added",
		zap.Stringer("direction", dir), zap.String("layout", l.Key()), zap.Int("direct_copies", direct))
	return out, nil
}

// DeleteData removes points from the atoms holding the selected inputs.
func (ds *DataSet) DeleteData(selectors ...Selector) ([][]int, error) {
	infos := make(map[string]buffer.DeleteInfo, len(selectors))
	for _, sel := range selectors {
		if !ds.schema.Has(sel.Input) {
			return nil, errors.New(errors.PhaseDelete, errors.KindSchema).
				Input(sel.Input).
				Detail("unknown input").
				Build()
		}
		if _, dup := infos[sel.Input]; dup {
			return nil, errors.New(errors.PhaseDelete, errors.KindConfig).
				Input(sel.Input).
				Detail("input selected more than once").
				Build()
		}
		infos[sel.Input] = sel.info()
	}

	plans := make([]*buffer.DeletePlan, len(ds.buffers))
	for i, vb := range ds.buffers {
		var err error
		if plans[i], err = vb.SizeDataDelete(infos); err != nil {
			return nil, err
		}
	}

	out := make([][]int, len(plans))
	for i, p := range plans {
		if err := p.DoDelete(); err != nil {
			return nil, err
		}
		out[i] = p.PointsDeleted
	}
	return out, nil
}

// Close releases every buffer.
func (ds *DataSet) Close() error {
	var first error
	for _, vb := range ds.buffers {
		if vb == nil {
			continue
		}
		if err := vb.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
