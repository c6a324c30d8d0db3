// Package params turns a pipeline template into a concrete pipeline by
// resolving declared parameters and substituting {name} placeholders.
package params

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/gantry/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// Resolve computes the final parameter values and returns a copy of p with
// placeholders replaced in the pipeline name and description, slot names,
// task text, output paths and gate targets. p is not modified.
func Resolve(p domain.Pipeline, provided map[string]any) (domain.Pipeline, error) {
	values, err := Values(p.Parameters, provided)
	if err != nil {
		return domain.Pipeline{}, err
	}

	sub := func(s string) string { return Substitute(s, values) }

	out := p
	out.Name = sub(p.Name)
	out.Description = sub(p.Description)
	out.Parameters = append([]domain.Parameter(nil), p.Parameters...)
	out.DataFlow = append([]domain.DataFlowEdge(nil), p.DataFlow...)
	out.Slots = make([]domain.Slot, len(p.Slots))
	for i, slot := range p.Slots {
		s := slot
		s.Name = sub(slot.Name)
		s.Inputs = append([]domain.ArtifactRef(nil), slot.Inputs...)
		s.DependsOn = append([]string(nil), slot.DependsOn...)
		if slot.Outputs != nil {
			s.Outputs = make([]domain.ArtifactOutput, len(slot.Outputs))
			for j, o := range slot.Outputs {
				o.Path = sub(o.Path)
				s.Outputs[j] = o
			}
		}
		s.PreConditions = substituteGates(slot.PreConditions, sub)
		s.PostConditions = substituteGates(slot.PostConditions, sub)
		if slot.Task != nil {
			s.Task = &domain.SlotTask{
				Objective:    sub(slot.Task.Objective),
				ContextFiles: mapStrings(slot.Task.ContextFiles, sub),
				Deliverables: mapStrings(slot.Task.Deliverables, sub),
				Constraints:  mapStrings(slot.Task.Constraints, sub),
				KPIs:         mapStrings(slot.Task.KPIs, sub),
			}
		}
		out.Slots[i] = s
	}
	if len(p.Slots) == 0 {
		out.Slots = p.Slots
	}
	out.ResolvedParameters = values
	return out, nil
}

// Values merges provided values with declared defaults. Provided values are
// coerced to the declared type. A required parameter without a value or a
// default is an error. Provided values for undeclared names pass through.
func Values(declared []domain.Parameter, provided map[string]any) (map[string]any, error) {
	values := make(map[string]any, len(declared)+len(provided))
	for _, param := range declared {
		if v, ok := provided[param.Name]; ok {
			coerced, err := Coerce(param.Name, param.Type, v)
			if err != nil {
				return nil, err
			}
			values[param.Name] = coerced
			continue
		}
		if param.Default != nil {
			values[param.Name] = param.Default
			continue
		}
		if param.Required {
			return nil, &domain.ParameterError{
				Name:   param.Name,
				Reason: fmt.Sprintf("Required parameter '%s' not provided and has no default", param.Name),
			}
		}
	}
	for k, v := range provided {
		if _, ok := values[k]; !ok {
			values[k] = v
		}
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values, nil
}

// Coerce converts v to the parameter type: int, bool, list or string.
func Coerce(name, typ string, v any) (any, error) {
	switch typ {
	case "int":
		var n int
		if err := mapstructure.WeakDecode(v, &n); err != nil {
			return nil, typeError(name, typ, v)
		}
		return n, nil
	case "bool":
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			switch strings.ToLower(b) {
			case "true", "1", "yes":
				return true, nil
			case "false", "0", "no":
				return false, nil
			}
		}
		return nil, typeError(name, typ, v)
	case "list":
		switch l := v.(type) {
		case []any:
			return l, nil
		case []string:
			return l, nil
		case string:
			var items []string
			for _, item := range strings.Split(l, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			return items, nil
		}
		return nil, typeError(name, typ, v)
	default:
		return stringify(v), nil
	}
}

// Substitute replaces {name} placeholders with values. Unknown placeholders
// are left intact.
func Substitute(s string, values map[string]any) string {
	if s == "" || len(values) == 0 {
		return s
	}
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		key := m[1 : len(m)-1]
		if v, ok := values[key]; ok {
			return stringify(v)
		}
		return m
	})
}

func typeError(name, typ string, v any) error {
	return &domain.ParameterError{
		Name:   name,
		Reason: fmt.Sprintf("Parameter '%s' expects %s, got %#v", name, typ, v),
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = stringify(item)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

func substituteGates(gates []domain.Gate, sub func(string) string) []domain.Gate {
	if gates == nil {
		return nil
	}
	out := make([]domain.Gate, len(gates))
	for i, g := range gates {
		g.Target = sub(g.Target)
		out[i] = g
	}
	return out
}

func mapStrings(in []string, f func(string) string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = f(s)
	}
	return out
}
