// Package vbuf packs heterogeneous, named, time-ordered data streams into
// contiguous binary buffers according to a declarative layout grammar, and
// keeps those buffers growable and shrinkable in place while data is
// continuously appended or prepended.
//
// # Architecture Overview
//
//	vbuf/            Root package with the BackingStore interface and Handle
//	├── data/        Tagged union for application data (numbers, arrays, binary)
//	├── schema/      Input definitions, primitive types and their byte codecs
//	├── layout/      Descriptor grammar, compiled layouts, getter trees, iterators
//	├── buffer/      SubBufferView and VertexBuffer (plan/commit add and delete)
//	├── dataset/     DataSet orchestration over several vertex buffers
//	├── store/       Backing stores: in-process handle table, wazero linear memory
//	├── errors/      Structured error taxonomy
//	└── cmd/         vbinspect scenario runner and inspector
//
// # Quick Start
//
//	st := store.NewLocal()
//	ds, err := dataset.New(
//	    []schema.Input{
//	        {Name: "t", Size: 1, Type: schema.Float32},
//	        {Name: "v", Size: 1, Type: schema.Float32},
//	    },
//	    [][]layout.Node{{layout.StartRepeat(layout.In("t"), layout.In("v"))}},
//	    st, dataset.DefaultOptions(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	added, err := ds.AppendData(
//	    data.Floats(0, 1.5, 1, 2.5),
//	    layout.Seq(layout.StartRepeat(layout.In("t"), layout.In("v"))),
//	    nil,
//	)
//
// # Memory Model
//
// Every VertexBuffer exclusively owns one backing-store handle. Growing or
// shrinking past the current allocation replaces the handle: a new one is
// allocated, surviving data is copied across and the old one is released.
// Holders of raw handles subscribe to the buffer to be told synchronously.
//
// # Thread Safety
//
// DataSet, VertexBuffer and Layout iteration are single-threaded. The shipped
// stores are safe for concurrent use.
package vbuf
