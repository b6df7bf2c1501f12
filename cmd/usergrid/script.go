package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kittclouds/usergrid/pkg/coordinator"
	"github.com/kittclouds/usergrid/pkg/records"
)

// Script step operations.
const (
	stepLoad    = "load"
	stepEdit    = "edit"
	stepEditAll = "editAll"
	stepPatch   = "patch"
	stepSave    = "save"
	stepSaveAll = "saveAll"
	stepReset   = "reset"
	stepDiscard = "discard"
	stepUpsert  = "upsert"
)

// Script is a scripted edit session:
//
//	steps:
//	  - load
//	  - edit: 0
//	  - patch: {id: 0, name: a2}
//	  - save: 0
//	  - editAll
//	  - saveAll
type Script struct {
	Steps []Step `yaml:"steps"`
}

// Step is one scripted intent. Bare strings take no argument.
type Step struct {
	Op     string
	ID     int
	Patch  []byte // JSON merge patch for patch steps
	Record records.Record
}

func (s Step) String() string {
	switch s.Op {
	case stepEdit, stepSave, stepDiscard:
		return fmt.Sprintf("%s %d", s.Op, s.ID)
	case stepPatch:
		return fmt.Sprintf("%s %d %s", s.Op, s.ID, s.Patch)
	case stepUpsert:
		return fmt.Sprintf("%s %d", s.Op, s.Record.ID)
	default:
		return s.Op
	}
}

// UnmarshalYAML accepts "op" or a single-key mapping "op: arg".
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.Value {
		case stepLoad, stepEditAll, stepSaveAll, stepReset:
			s.Op = node.Value
			return nil
		}
		return fmt.Errorf("line %d: step %q needs an argument or is unknown", node.Line, node.Value)
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: a step has exactly one key", node.Line)
		}
	default:
		return fmt.Errorf("line %d: invalid step", node.Line)
	}

	key, arg := node.Content[0].Value, node.Content[1]
	s.Op = key
	switch key {
	case stepEdit, stepSave, stepDiscard:
		return arg.Decode(&s.ID)
	case stepPatch:
		var fields map[string]any
		if err := arg.Decode(&fields); err != nil {
			return err
		}
		id, ok := fields["id"].(int)
		if !ok {
			return fmt.Errorf("line %d: patch needs an integer id", arg.Line)
		}
		delete(fields, "id")
		s.ID = id
		data, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		if _, err := records.DecodePatch(data); err != nil {
			return fmt.Errorf("line %d: %w", arg.Line, err)
		}
		s.Patch = data
		return nil
	case stepUpsert:
		return arg.Decode(&s.Record)
	default:
		return fmt.Errorf("line %d: unknown step %q", node.Line, key)
	}
}

// ParseScript decodes a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var sc Script
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	return &sc, nil
}

// StepResult is what a step produced.
type StepResult struct {
	Step    string              `json:"step"`
	Outcome coordinator.Outcome `json:"outcome,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// Run executes the script against c. Save failures are reported per step;
// a failed load or an invalid patch stops the run.
func (sc *Script) Run(ctx context.Context, c *coordinator.Coordinator, progress io.Writer) ([]StepResult, error) {
	results := make([]StepResult, 0, len(sc.Steps))
	for _, step := range sc.Steps {
		res := StepResult{Step: step.String()}

		switch step.Op {
		case stepLoad:
			if err := c.Load(ctx); err != nil {
				return results, err
			}
		case stepEdit:
			if !c.StartEdit(step.ID) {
				res.Error = fmt.Sprintf("unknown record %d", step.ID)
			}
		case stepEditAll:
			c.EditAll()
		case stepPatch:
			if err := c.Edits().PatchDraftJSON(step.ID, step.Patch); err != nil {
				return results, fmt.Errorf("%s: %w", res.Step, err)
			}
		case stepSave:
			outcome, err := c.SaveOne(ctx, step.ID)
			res.Outcome = outcome
			if err != nil {
				res.Error = err.Error()
			}
		case stepSaveAll:
			outcome, err := c.SaveAll(ctx)
			res.Outcome = outcome
			if err != nil {
				res.Error = err.Error()
			}
		case stepReset:
			c.Edits().Reset()
		case stepDiscard:
			c.Edits().Discard(step.ID)
		case stepUpsert:
			c.Records().Upsert(step.Record)
		}

		results = append(results, res)
		if progress != nil {
			printResult(progress, res)
		}
	}
	return results, nil
}

func printResult(w io.Writer, res StepResult) {
	var b strings.Builder
	b.WriteString(mutedColor("> "))
	b.WriteString(res.Step)
	if res.Outcome != "" {
		b.WriteString(": ")
		b.WriteString(colorOutcome(res.Outcome))
	}
	if res.Error != "" {
		b.WriteString(" ")
		b.WriteString(failedColor(res.Error))
	}
	fmt.Fprintln(w, b.String())
}
