package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/vbuf"
	"github.com/wippyai/vbuf/buffer"
	"github.com/wippyai/vbuf/data"
	"github.com/wippyai/vbuf/dataset"
	"github.com/wippyai/vbuf/layout"
	"github.com/wippyai/vbuf/schema"
)

// scenario is a data set declaration plus the operations to replay on it.
type scenario struct {
	Inputs  []schema.Input  `yaml:"inputs"`
	Buffers [][]layout.Node `yaml:"buffers"`
	Initial *payload        `yaml:"initial"`
	Steps   []step          `yaml:"steps"`
}

// payload is data read through a layout. Data is a YAML tree of numbers;
// a !!binary scalar is used as raw bytes. Pack converts a flat number list
// to binary of the named type before adding.
type payload struct {
	Layout layout.Node `yaml:"layout"`
	Data   yaml.Node   `yaml:"data"`
	Pack   string      `yaml:"pack"`
}

type step struct {
	Op string `yaml:"op"`
	payload `yaml:",inline"`
	Methods map[string]string `yaml:"methods"`
	Reverse []string          `yaml:"reverse"`
	Delete  []selector        `yaml:"delete"`
}

type selector struct {
	Input  string `yaml:"input"`
	Side   string `yaml:"side"`
	Amount int    `yaml:"amount"`
	Lazy   bool   `yaml:"lazy"`
}

func loadScenario(path string) (*scenario, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc scenario
	if err := yaml.Unmarshal(src, &sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	return &sc, nil
}

// parseStep decodes one step written inline, e.g. in flow style.
func parseStep(src string) (step, error) {
	var st step
	if err := yaml.Unmarshal([]byte(src), &st); err != nil {
		return step{}, fmt.Errorf("decode step: %w", err)
	}
	return st, nil
}

func (sc *scenario) open(st vbuf.BackingStore, onRebind dataset.RebindFunc) (*dataset.DataSet, error) {
	opts := dataset.DefaultOptions()
	opts.OnRebind = onRebind
	if sc.Initial != nil {
		d, err := sc.Initial.value()
		if err != nil {
			return nil, err
		}
		opts.Initial = &dataset.Initial{Layout: sc.Initial.Layout, Data: d}
	}
	return dataset.New(sc.Inputs, sc.Buffers, st, opts)
}

func (p payload) value() (data.Value, error) {
	v, err := toValue(&p.Data)
	if err != nil {
		return data.Value{}, err
	}
	if p.Pack == "" {
		return v, nil
	}
	t, err := schema.ParseType(p.Pack)
	if err != nil {
		return data.Value{}, err
	}
	fs, ok := v.Floats64()
	if !ok {
		return data.Value{}, fmt.Errorf("pack %s: data must be a flat list of numbers", p.Pack)
	}
	out := make([]byte, len(fs)*t.Bytes())
	for i, f := range fs {
		schema.PutValue(out[i*t.Bytes():], t, f)
	}
	return data.Binary(out), nil
}

func toValue(n *yaml.Node) (data.Value, error) {
	switch n.Kind {
	case 0:
		return data.Value{}, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return data.Value{}, nil
		}
		return toValue(n.Content[0])
	case yaml.AliasNode:
		return toValue(n.Alias)
	case yaml.SequenceNode:
		elems := make([]data.Value, len(n.Content))
		for i, c := range n.Content {
			v, err := toValue(c)
			if err != nil {
				return data.Value{}, err
			}
			elems[i] = v
		}
		return data.Array(elems...), nil
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!null":
			return data.Value{}, nil
		case "!!binary":
			b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), ""))
			if err != nil {
				return data.Value{}, fmt.Errorf("line %d: %w", n.Line, err)
			}
			return data.Binary(b), nil
		}
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return data.Value{}, fmt.Errorf("line %d: %q is not a number", n.Line, n.Value)
		}
		return data.Num(f), nil
	}
	return data.Value{}, fmt.Errorf("line %d: unsupported data node", n.Line)
}

func parseDirection(s string) (buffer.Direction, error) {
	switch s {
	case "", "default":
		return buffer.DirectionDefault, nil
	case "append":
		return buffer.Append, nil
	case "prepend":
		return buffer.Prepend, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func parseSide(s string) (buffer.Side, error) {
	switch s {
	case "", "default":
		return buffer.SideDefault, nil
	case "start":
		return buffer.SideStart, nil
	case "end":
		return buffer.SideEnd, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

// apply runs one step and returns the per-buffer, per-atom point counts.
func (s step) apply(ds *dataset.DataSet) ([][]int, error) {
	if s.Op == "delete" {
		sels := make([]dataset.Selector, len(s.Delete))
		for i, d := range s.Delete {
			side, err := parseSide(d.Side)
			if err != nil {
				return nil, err
			}
			sels[i] = dataset.Selector{Input: d.Input, Side: side, Amount: d.Amount, Lazy: d.Lazy}
		}
		return ds.DeleteData(sels...)
	}

	d, err := s.value()
	if err != nil {
		return nil, err
	}
	opts := &dataset.AddOptions{}
	if len(s.Methods) > 0 {
		opts.Methods = make(map[string]buffer.Direction, len(s.Methods))
		for name, m := range s.Methods {
			if opts.Methods[name], err = parseDirection(m); err != nil {
				return nil, err
			}
		}
	}
	if len(s.Reverse) > 0 {
		opts.Transforms = make(map[string]layout.IndexTransform, len(s.Reverse))
		for _, name := range s.Reverse {
			opts.Transforms[name] = layout.Reverse
		}
	}

	switch s.Op {
	case "append":
		return ds.AppendData(d, s.Layout, opts)
	case "prepend":
		return ds.PrependData(d, s.Layout, opts)
	case "add", "":
		return ds.AddData(d, s.Layout, opts)
	}
	return nil, fmt.Errorf("unknown op %q", s.Op)
}

func (s step) String() string {
	if s.Op == "delete" {
		names := make([]string, len(s.Delete))
		for i, d := range s.Delete {
			names[i] = d.Input
		}
		return "delete " + strings.Join(names, ", ")
	}
	op := s.Op
	if op == "" {
		op = "add"
	}
	return op + " " + s.Layout.String()
}

// describe renders every buffer and the decoded values of every input.
func describe(ds *dataset.DataSet) string {
	var b strings.Builder
	for i, vb := range ds.Buffers() {
		fmt.Fprintf(&b, "buffer %d: handle=%d size=%d\n", i, vb.Handle(), vb.Size())
		for j, v := range vb.Views() {
			fmt.Fprintf(&b, "  %s [%d, %d) data=[%d, %d) points=%d resizes=%d\n",
				vb.Atoms()[j], v.Start(), v.End(), v.DataStart(), v.DataEnd(), v.Points(), v.Resizes())
		}
	}
	for _, in := range ds.Schema().Inputs() {
		vals, err := ds.Values(in.Name)
		if err != nil {
			fmt.Fprintf(&b, "%s: %v\n", in.Name, err)
			continue
		}
		fmt.Fprintf(&b, "%s: %v\n", in.Name, vals)
	}
	return b.String()
}
