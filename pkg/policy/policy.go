// Package policy loads alert thresholds and recommendation rules from YAML so
// they can be tuned without a rebuild.
package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aleka07/cloudguard/pkg/alert"
	"github.com/aleka07/cloudguard/pkg/model"
	"github.com/aleka07/cloudguard/pkg/recommend"
)

// Policy is the tunable rule set of the engine.
type Policy struct {
	Thresholds      []model.AlertThreshold `yaml:"thresholds"`
	Recommendations []recommend.Rule       `yaml:"recommendations"`
}

// Default returns the built-in tables.
func Default() Policy {
	return Policy{
		Thresholds:      alert.DefaultThresholds(),
		Recommendations: recommend.DefaultRules(),
	}
}

// Validate checks every threshold and rule.
func (p Policy) Validate() error {
	if err := alert.ValidateThresholds(p.Thresholds); err != nil {
		return err
	}
	names := make(map[string]bool, len(p.Recommendations))
	for _, r := range p.Recommendations {
		if err := r.Validate(); err != nil {
			return err
		}
		if names[r.Name] {
			return fmt.Errorf("recommendation rule '%s' defined twice", r.Name)
		}
		names[r.Name] = true
	}
	return nil
}

// Parse decodes a policy document. Sections left out keep their defaults;
// unknown keys are rejected.
func Parse(data []byte) (Policy, error) {
	var doc struct {
		Thresholds      *[]model.AlertThreshold `yaml:"thresholds"`
		Recommendations *[]recommend.Rule       `yaml:"recommendations"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Policy{}, fmt.Errorf("decode policy: %w", err)
	}

	p := Default()
	if doc.Thresholds != nil {
		p.Thresholds = *doc.Thresholds
	}
	if doc.Recommendations != nil {
		p.Recommendations = *doc.Recommendations
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Load reads and parses the policy file at path. An empty path yields
// Default.
func Load(path string) (Policy, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return Policy{}, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}
