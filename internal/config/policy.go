package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/larp-planner/internal/model"
	"github.com/iliyamo/larp-planner/internal/scheduler"
)

// policyFile is the YAML layout of the detection policy.  Every field is
// optional; absent fields keep the defaults.
//
//	staff_overload:
//	  max_concurrent: 1
//	  by_type:
//	    staff-gm: 2
//	count_booked_resources: true
//	timeline_overlap: true
type policyFile struct {
	StaffOverload *struct {
		MaxConcurrent *int           `yaml:"max_concurrent"`
		ByType        map[string]int `yaml:"by_type"`
	} `yaml:"staff_overload"`
	CountBookedResources *bool `yaml:"count_booked_resources"`
	TimelineOverlap      *bool `yaml:"timeline_overlap"`
}

// LoadPolicy reads the policy from path.  An empty path or a missing file
// yields scheduler.DefaultPolicy.
func LoadPolicy(path string) (scheduler.Policy, error) {
	if path == "" {
		return scheduler.DefaultPolicy(), nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return scheduler.DefaultPolicy(), nil
	}
	if err != nil {
		return scheduler.Policy{}, fmt.Errorf("read policy %s: %w", path, err)
	}
	p, err := ParsePolicy(raw)
	if err != nil {
		return scheduler.Policy{}, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

// ParsePolicy decodes a YAML policy on top of the defaults and validates
// it.  Unknown keys are rejected.
func ParsePolicy(raw []byte) (scheduler.Policy, error) {
	p := scheduler.DefaultPolicy()
	var f policyFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return scheduler.Policy{}, err
	}
	if so := f.StaffOverload; so != nil {
		if so.MaxConcurrent != nil {
			p.StaffMaxConcurrent = *so.MaxConcurrent
		}
		if len(so.ByType) > 0 {
			p.StaffMaxConcurrentByType = make(map[model.ResourceType]int, len(so.ByType))
			for k, v := range so.ByType {
				t, err := model.ParseResourceType(k)
				if err != nil {
					return scheduler.Policy{}, err
				}
				p.StaffMaxConcurrentByType[t] = v
			}
		}
	}
	if f.CountBookedResources != nil {
		p.CountBookedResources = *f.CountBookedResources
	}
	if f.TimelineOverlap != nil {
		p.TimelineOverlap = *f.TimelineOverlap
	}
	if err := p.Validate(); err != nil {
		return scheduler.Policy{}, err
	}
	return p, nil
}
