package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/mimic/internal/calibration"
	"github.com/ayusman/mimic/internal/finger"
)

// Ranges holds calibration ranges keyed by channel. In YAML the keys are
// channel names (thumb_mcp, index, ...). Decoding merges into the existing
// value field by field, so a file may override only "min" of one channel.
type Ranges map[finger.Channel]calibration.Range

type rangePatch struct {
	Min      *float64 `yaml:"min"`
	Max      *float64 `yaml:"max"`
	Inverted *bool    `yaml:"inverted"`
}

// UnmarshalYAML rejects unknown channel names.
func (rs *Ranges) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("ranges: line %d: expected a mapping", node.Line)
	}
	if *rs == nil {
		*rs = make(Ranges)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]

		ch, err := finger.ParseChannel(key.Value)
		if err != nil {
			return fmt.Errorf("ranges: line %d: %w", key.Line, err)
		}

		var p rangePatch
		if err := val.Decode(&p); err != nil {
			return fmt.Errorf("ranges.%s: %w", ch, err)
		}

		r, ok := (*rs)[ch]
		if !ok {
			r = calibration.DefaultRange
		}
		if p.Min != nil {
			r.Min = *p.Min
		}
		if p.Max != nil {
			r.Max = *p.Max
		}
		if p.Inverted != nil {
			r.Inverted = *p.Inverted
		}
		(*rs)[ch] = r
	}
	return nil
}

// MarshalYAML writes channels in wire order.
func (rs Ranges) MarshalYAML() (interface{}, error) {
	out := &yaml.Node{Kind: yaml.MappingNode}
	for _, ch := range finger.All() {
		r, ok := rs[ch]
		if !ok {
			continue
		}
		var val yaml.Node
		if err := val.Encode(r); err != nil {
			return nil, err
		}
		val.Style = yaml.FlowStyle
		out.Content = append(out.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: ch.String()},
			&val,
		)
	}
	return out, nil
}

// RangesYAML renders ranges as a "ranges:" block that can be pasted into the
// configuration file.
func RangesYAML(ranges map[finger.Channel]calibration.Range) (string, error) {
	doc := struct {
		Ranges Ranges `yaml:"ranges"`
	}{Ranges: Ranges(ranges)}

	b, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
