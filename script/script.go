// Package script loads named button sequences from YAML, TOML or JSON and
// plays them through a controller.
//
//	name: skip-day
//	steps:
//	  - press: [Home]
//	    hold: 80ms
//	    delay: 1s
//	  - repeat: 3
//	    steps:
//	      - press: [Dpad:down]
//	        hold: 50ms
//	        delay: 100ms
//	  - wait: 500ms
package script

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/Alia5/padctl/controller"
)

// Duration accepts Go duration strings ("150ms") or a plain number of
// milliseconds.
type Duration time.Duration

func (d *Duration) set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		return d.set(s)
	}
	var ms float64
	if err := json.Unmarshal(b, &ms); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	*d = Duration(ms * float64(time.Millisecond))
	return nil
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", n.Line)
	}
	if tag := n.ShortTag(); tag == "!!int" || tag == "!!float" {
		var ms float64
		if err := n.Decode(&ms); err != nil {
			return err
		}
		*d = Duration(ms * float64(time.Millisecond))
		return nil
	}
	if err := d.set(n.Value); err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(time.Duration(d).String()) }

// Step is one scheduled command, a pause, or a repeated block.
type Step struct {
	Press    []string `json:"press,omitempty" yaml:"press,omitempty"`
	Delay    Duration `json:"delay,omitempty" yaml:"delay,omitempty"`
	Hold     Duration `json:"hold,omitempty" yaml:"hold,omitempty"`
	Cooldown Duration `json:"cooldown,omitempty" yaml:"cooldown,omitempty"`
	Wait     Duration `json:"wait,omitempty" yaml:"wait,omitempty"`
	Repeat   int      `json:"repeat,omitempty" yaml:"repeat,omitempty"`
	Steps    []Step   `json:"steps,omitempty" yaml:"steps,omitempty"`

	targets []controller.Target
}

// Script is a named sequence of steps.
type Script struct {
	Name  string `json:"name" yaml:"name"`
	Steps []Step `json:"steps" yaml:"steps"`
}

// Format is a script encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown script format %q", filepath.Ext(path))
}

// Load reads and compiles a script file against topo.
func Load(path string, topo *controller.Topology) (*Script, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data, f, topo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Parse decodes data and resolves every target against topo.
func Parse(data []byte, f Format, topo *controller.Topology) (*Script, error) {
	var s Script
	switch f {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("yaml: %w", err)
		}
	case FormatTOML:
		tree, err := toml.LoadBytes(data)
		if err != nil {
			return nil, fmt.Errorf("toml: %w", err)
		}
		// Go through JSON so TOML shares the JSON field rules.
		b, err := json.Marshal(tree.ToMap())
		if err != nil {
			return nil, fmt.Errorf("toml: %w", err)
		}
		if err := decodeJSON(b, &s); err != nil {
			return nil, fmt.Errorf("toml: %w", err)
		}
	case FormatJSON:
		if err := decodeJSON(data, &s); err != nil {
			return nil, fmt.Errorf("json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown script format %q", f)
	}
	if err := compile(s.Steps, topo, "steps"); err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func compile(steps []Step, topo *controller.Topology, path string) error {
	if len(steps) == 0 {
		return fmt.Errorf("%s: no steps", path)
	}
	for i := range steps {
		st := &steps[i]
		at := fmt.Sprintf("%s[%d]", path, i)
		kinds := 0
		if len(st.Press) > 0 {
			kinds++
		}
		if st.Wait > 0 {
			kinds++
		}
		if len(st.Steps) > 0 {
			kinds++
		}
		if kinds != 1 {
			return fmt.Errorf("%s: a step needs exactly one of press, wait or steps", at)
		}
		if st.Delay < 0 || st.Hold < 0 || st.Cooldown < 0 || st.Wait < 0 || st.Repeat < 0 {
			return fmt.Errorf("%s: negative value", at)
		}
		if len(st.Steps) > 0 {
			if err := compile(st.Steps, topo, at+".steps"); err != nil {
				return err
			}
			continue
		}
		if st.Repeat != 0 {
			return fmt.Errorf("%s: repeat applies to steps blocks only", at)
		}
		if len(st.Press) > 0 {
			targets, err := controller.ParseTargets(topo, st.Press)
			if err != nil {
				return fmt.Errorf("%s: %w", at, err)
			}
			st.targets = targets
		}
	}
	return nil
}

// Player is what Run needs from a controller.
type Player interface {
	Issue(ctx context.Context, timing controller.Timing, targets ...controller.Target) error
	Wait(ctx context.Context, d time.Duration) error
	WaitForAll(ctx context.Context) error
}

// Run plays s through p and waits until everything has been sent.
func Run(ctx context.Context, p Player, s *Script, logger *slog.Logger) error {
	logger = logger.With("script", s.Name)
	start := time.Now()
	logger.Info("running script")
	if err := run(ctx, p, s.Steps); err != nil {
		if errors.Is(err, controller.ErrCancelled) {
			logger.Info("script cancelled", "after", time.Since(start))
		}
		return err
	}
	if err := p.WaitForAll(ctx); err != nil {
		return err
	}
	logger.Info("script finished", "took", time.Since(start))
	return nil
}

func run(ctx context.Context, p Player, steps []Step) error {
	for _, st := range steps {
		var err error
		switch {
		case len(st.Steps) > 0:
			n := max(st.Repeat, 1)
			for range n {
				if err = run(ctx, p, st.Steps); err != nil {
					break
				}
			}
		case st.Wait > 0:
			err = p.Wait(ctx, time.Duration(st.Wait))
		default:
			err = p.Issue(ctx, controller.Timing{
				Delay:    time.Duration(st.Delay),
				Hold:     time.Duration(st.Hold),
				Cooldown: time.Duration(st.Cooldown),
			}, st.targets...)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
