// Package dataset binds an input schema to a fixed set of vertex buffers.
//
// Each input lives in exactly one atom of one buffer. Adds are sized against
// every buffer before any buffer is written, so a shape or configuration
// error leaves all buffers untouched:
//
//	ds, err := dataset.New(inputs, [][]layout.Node{
//		{layout.StartRepeat(layout.In("position"), layout.In("color"))},
//	}, store.NewLocal(), dataset.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	added, err := ds.AppendData(points, layout.StartRepeat(layout.In("position"), layout.In("color")), nil)
//
// Descriptors passed to the add calls are compiled once and cached by their
// canonical key.
package dataset
