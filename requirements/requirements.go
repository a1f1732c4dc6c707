// Package requirements loads named workflow requirements profiles.
//
// A profile file is a YAML document mapping profile names to the
// requirements of that profile, for example:
//
//	default:
//	  peer:
//	    must_grade: 5
//	    must_be_graded_by: 3
//	  self:
//
// A step with no criteria (like self above) is still required.
package requirements

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/assessflow/assessflow/workflow"

	"gopkg.in/yaml.v3"
)

// DefaultProfile is used when a caller does not name a profile.
const DefaultProfile = "default"

var ErrEmpty = errors.New("requirements: profiles document is empty")

// Profiles maps profile names to requirements.
type Profiles map[string]workflow.Requirements

// Validate checks every profile for unknown step types.
func (p Profiles) Validate() error {
	for name, req := range p {
		if err := req.Validate(); err != nil {
			return fmt.Errorf("requirements: profile %s: %w", name, err)
		}
	}
	return nil
}

// Requirements returns the requirements of the named profile.
// An empty name selects DefaultProfile.
func (p Profiles) Requirements(name string) (workflow.Requirements, bool) {
	if name == "" {
		name = DefaultProfile
	}
	req, ok := p[name]
	return req, ok
}

// Parse decodes and validates a YAML profiles document.
func Parse(data []byte) (Profiles, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}
	var p Profiles
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("requirements: decode profiles: %w", err)
	}
	for name, req := range p {
		if req == nil {
			p[name] = workflow.Requirements{}
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads and parses a YAML profiles document from r.
func Load(r io.Reader) (Profiles, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("requirements: read: %w", err)
	}
	return Parse(data)
}

// LoadFile reads and parses the YAML profiles file at path.
func LoadFile(path string) (Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("requirements: read %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
