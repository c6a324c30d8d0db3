package params

import (
	"testing"

	"github.com/aretw0/gantry/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func template() domain.Pipeline {
	return domain.Pipeline{
		ID:          "feature",
		Name:        "Build {feature}",
		Description: "Ship {feature} in {sprint} sprints ({unknown})",
		Parameters: []domain.Parameter{
			{Name: "feature", Type: "string", Required: true},
			{Name: "sprint", Type: "int", Default: 2},
			{Name: "dry_run", Type: "bool"},
		},
		Slots: []domain.Slot{{
			ID:             "impl",
			Name:           "Implement {feature}",
			Outputs:        []domain.ArtifactOutput{{Name: "code", Path: "src/{feature}/"}},
			PostConditions: []domain.Gate{{Check: "report", Type: domain.GateFileExists, Target: "reports/{feature}.yaml"}},
			Task: &domain.SlotTask{
				Objective:    "Write {feature}",
				Deliverables: []string{"{feature}.go"},
			},
		}},
	}
}

func TestResolve_SubstitutesPlaceholders(t *testing.T) {
	p := template()
	out, err := Resolve(p, map[string]any{"feature": "login"})
	require.NoError(t, err)

	assert.Equal(t, "Build login", out.Name)
	assert.Equal(t, "Ship login in 2 sprints ({unknown})", out.Description)
	assert.Equal(t, "Implement login", out.Slots[0].Name)
	assert.Equal(t, "src/login/", out.Slots[0].Outputs[0].Path)
	assert.Equal(t, "reports/login.yaml", out.Slots[0].PostConditions[0].Target)
	assert.Equal(t, "Write login", out.Slots[0].Task.Objective)
	assert.Equal(t, []string{"login.go"}, out.Slots[0].Task.Deliverables)
	assert.Equal(t, map[string]any{"feature": "login", "sprint": 2}, out.ResolvedParameters)

	// the template is untouched
	assert.Equal(t, "Implement {feature}", p.Slots[0].Name)
	assert.Equal(t, "reports/{feature}.yaml", p.Slots[0].PostConditions[0].Target)
	assert.Equal(t, "Write {feature}", p.Slots[0].Task.Objective)
	assert.Nil(t, p.ResolvedParameters)
}

func TestResolve_MissingRequired(t *testing.T) {
	_, err := Resolve(template(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrParameter)
	assert.Equal(t, "Required parameter 'feature' not provided and has no default", err.Error())
}

func TestValues_PassThroughAndEmpty(t *testing.T) {
	values, err := Values(nil, map[string]any{"extra": "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"extra": "x"}, values)

	values, err = Values(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, values)
}

func TestCoerce(t *testing.T) {
	cases := []struct {
		typ  string
		in   any
		want any
	}{
		{"int", "42", 42},
		{"int", 7, 7},
		{"bool", "YES", true},
		{"bool", "0", false},
		{"bool", true, true},
		{"list", "a, b,,c ", []string{"a", "b", "c"}},
		{"list", []any{"x"}, []any{"x"}},
		{"string", 12, "12"},
		{"", "plain", "plain"},
	}
	for _, tc := range cases {
		got, err := Coerce("p", tc.typ, tc.in)
		require.NoError(t, err, "%s %v", tc.typ, tc.in)
		assert.Equal(t, tc.want, got, "%s %v", tc.typ, tc.in)
	}
}

func TestCoerce_Rejects(t *testing.T) {
	_, err := Coerce("count", "int", "many")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrParameter)
	assert.Contains(t, err.Error(), "Parameter 'count' expects int")

	_, err = Coerce("flag", "bool", "maybe")
	assert.ErrorIs(t, err, domain.ErrParameter)

	_, err = Coerce("items", "list", 3)
	assert.ErrorIs(t, err, domain.ErrParameter)
}

func TestSubstitute_ListValues(t *testing.T) {
	got := Substitute("targets: {targets}", map[string]any{"targets": []string{"api", "web"}})
	assert.Equal(t, "targets: api, web", got)
}
