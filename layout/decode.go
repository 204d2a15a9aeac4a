package layout

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/vbuf/errors"
)

// ParseDescriptor decodes a descriptor written in YAML or JSON:
//
//	- time                     # input name
//	- startRepeat: [x, y]      # repeat over inputs
//	- endRepeat:
//	    args: [u, [v, w]]      # nested sequence per unit
//	    size: 16
//	    expandVectors: [u]
//	- repeat: {type: center, args: [z], opts: {size: 2}}
//
// A bare scalar or mapping is read as a one-element sequence.
func ParseDescriptor(src []byte) (Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return Node{}, errors.New(errors.PhaseCompile, errors.KindSchema).
			Cause(err).
			Detail("malformed layout descriptor").
			Build()
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return Node{}, errors.Schema(errors.PhaseCompile, nil, "empty layout descriptor")
	}
	n, err := decodeNode(doc.Content[0], nil)
	if err != nil {
		return Node{}, err
	}
	if n.Kind != NodeSequence {
		n = Seq(n)
	}
	return n, nil
}

// UnmarshalYAML lets descriptors be embedded in YAML documents.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	out, err := decodeNode(value, nil)
	if err != nil {
		return err
	}
	*n = out
	return nil
}

// MarshalYAML renders a node in the form ParseDescriptor reads.
func (n Node) MarshalYAML() (any, error) {
	switch n.Kind {
	case NodeLeaf:
		return n.Input, nil
	case NodeSequence:
		return n.Args, nil
	}
	key := n.Repeat.String() + "Repeat"
	if n.Opts.Size == 0 && len(n.Opts.ExpandVectors) == 0 {
		return map[string]any{key: n.Args}, nil
	}
	body := map[string]any{"args": n.Args}
	if n.Opts.Size != 0 {
		body["size"] = n.Opts.Size
	}
	if len(n.Opts.ExpandVectors) > 0 {
		body["expandVectors"] = n.Opts.ExpandVectors
	}
	return map[string]any{key: body}, nil
}

func decodeNode(v *yaml.Node, path []string) (Node, error) {
	switch v.Kind {
	case yaml.AliasNode:
		return decodeNode(v.Alias, path)
	case yaml.ScalarNode:
		if v.Value == "" {
			return Node{}, errors.Schema(errors.PhaseCompile, path, "empty input name at line %d", v.Line)
		}
		return In(v.Value), nil
	case yaml.SequenceNode:
		args, err := decodeArgs(v, path)
		if err != nil {
			return Node{}, err
		}
		return Seq(args...), nil
	case yaml.MappingNode:
		return decodeRepeat(v, path)
	default:
		return Node{}, errors.Schema(errors.PhaseCompile, path, "unexpected descriptor element at line %d", v.Line)
	}
}

func decodeArgs(v *yaml.Node, path []string) ([]Node, error) {
	args := make([]Node, len(v.Content))
	for i, c := range v.Content {
		n, err := decodeNode(c, appendPath(path, i))
		if err != nil {
			return nil, err
		}
		args[i] = n
	}
	return args, nil
}

type repeatBody struct {
	Opts          *repeatOpts `yaml:"opts"`
	Type          string      `yaml:"type"`
	Args          []yaml.Node `yaml:"args"`
	ExpandVectors []string    `yaml:"expandVectors"`
	Size          int         `yaml:"size"`
}

type repeatOpts struct {
	ExpandVectors []string `yaml:"expandVectors"`
	Size          int      `yaml:"size"`
}

func decodeRepeat(v *yaml.Node, path []string) (Node, error) {
	if len(v.Content) != 2 {
		return Node{}, errors.Schema(errors.PhaseCompile, path,
			"repeat element at line %d must have exactly one key", v.Line)
	}
	key, val := v.Content[0].Value, v.Content[1]

	var kind RepeatKind
	explicit := key == "repeat"
	if !explicit {
		name, ok := strings.CutSuffix(key, "Repeat")
		if !ok {
			return Node{}, errors.Schema(errors.PhaseCompile, path, "unknown combinator %q", key)
		}
		if kind, ok = ParseRepeatKind(name); !ok {
			return Node{}, errors.Schema(errors.PhaseCompile, path, "unknown combinator %q", key)
		}
	}

	// shorthand: startRepeat: [x, y]
	if val.Kind == yaml.SequenceNode {
		if explicit {
			return Node{}, errors.Schema(errors.PhaseCompile, path, "repeat requires a type")
		}
		args, err := decodeArgs(val, path)
		if err != nil {
			return Node{}, err
		}
		return Repeat(kind, RepeatOptions{}, args...), nil
	}

	var body repeatBody
	if err := val.Decode(&body); err != nil {
		return Node{}, errors.New(errors.PhaseCompile, errors.KindSchema).
			Path(path...).
			Cause(err).
			Detail("malformed %s options", key).
			Build()
	}
	if explicit {
		var ok bool
		if kind, ok = ParseRepeatKind(body.Type); !ok {
			return Node{}, errors.Schema(errors.PhaseCompile, path, "unknown repeat type %q", body.Type)
		}
	}
	if body.Opts != nil {
		if body.Opts.Size != 0 {
			body.Size = body.Opts.Size
		}
		body.ExpandVectors = append(body.ExpandVectors, body.Opts.ExpandVectors...)
	}
	args := make([]Node, len(body.Args))
	for i := range body.Args {
		n, err := decodeNode(&body.Args[i], appendPath(path, i))
		if err != nil {
			return Node{}, err
		}
		args[i] = n
	}
	return Repeat(kind, RepeatOptions{Size: body.Size, ExpandVectors: body.ExpandVectors}, args...), nil
}
