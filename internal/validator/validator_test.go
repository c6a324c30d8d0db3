package validator

import (
	"context"
	"testing"

	"github.com/aretw0/gantry/pkg/adapters/memory"
	"github.com/aretw0/gantry/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slot(id string, deps ...string) domain.Slot {
	return domain.Slot{ID: id, Type: "worker", Name: id, DependsOn: deps}
}

func TestValidate_EmptyPipeline(t *testing.T) {
	res := Validate(domain.Pipeline{ID: "empty"})
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.NoError(t, res.Err())

	order, err := TopologicalSort(nil)
	require.NoError(t, err)
	assert.Empty(t, order)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	p := domain.Pipeline{
		ID: "broken",
		Slots: []domain.Slot{
			slot("a"),
			slot("a"),
			slot("b", "ghost"),
			slot("c", "d"),
			slot("d", "c"),
		},
		DataFlow: []domain.DataFlowEdge{
			{FromSlot: "a", ToSlot: "b", Artifact: "design"},
			{FromSlot: "nowhere", ToSlot: "b", Artifact: "x"},
		},
	}

	res := Validate(p)
	require.False(t, res.Valid)
	assert.Contains(t, res.Errors, "Duplicate slot ID: 'a'")
	assert.Contains(t, res.Errors, "Slot 'b': depends_on 'ghost' does not exist")
	assert.Contains(t, res.Errors, "Dependency cycle detected involving slots: c, d")
	assert.Contains(t, res.Errors, "data_flow: slot 'a' has no output named 'design' (required by 'b')")
	assert.Contains(t, res.Errors, "data_flow: from_slot 'nowhere' does not exist")

	err := res.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "Pipeline validation failed: Duplicate slot ID: 'a'; ")
}

func TestValidate_DuplicateIDsNoSpuriousCycle(t *testing.T) {
	res := Validate(domain.Pipeline{Slots: []domain.Slot{slot("a"), slot("a"), slot("b", "a")}})
	assert.Equal(t, []string{"Duplicate slot ID: 'a'"}, res.Errors)
}

func TestValidate_DataFlowCycle(t *testing.T) {
	p := domain.Pipeline{
		Slots: []domain.Slot{
			{ID: "a", Outputs: []domain.ArtifactOutput{{Name: "out"}}},
			{ID: "b", DependsOn: []string{"a"}, Outputs: []domain.ArtifactOutput{{Name: "back"}}},
		},
		DataFlow: []domain.DataFlowEdge{{FromSlot: "b", ToSlot: "a", Artifact: "back"}},
	}

	res := Validate(p)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"Dependency cycle detected involving slots: a, b"}, res.Errors)

	// depends_on alone is acyclic
	assert.Empty(t, CheckDAG(p.Slots))
}

func TestValidate_TerminalWarning(t *testing.T) {
	p := domain.Pipeline{
		Slots: []domain.Slot{
			{ID: "a", Outputs: []domain.ArtifactOutput{{Name: "x"}}},
			slot("b", "a"),
		},
		DataFlow: []domain.DataFlowEdge{{FromSlot: "a", ToSlot: "b", Artifact: "x"}},
	}
	res := Validate(p)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Warnings)

	cyclic := domain.Pipeline{Slots: []domain.Slot{slot("a", "b"), slot("b", "a")}}
	res = Validate(cyclic)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"No terminal slot found (every slot is a dependency of another)"}, res.Warnings)
}

func TestCheckDAG_SelfDependency(t *testing.T) {
	errs := CheckDAG([]domain.Slot{slot("loop", "loop")})
	assert.Equal(t, []string{"Dependency cycle detected involving slots: loop"}, errs)

	_, err := TopologicalSort([]domain.Slot{slot("loop", "loop")})
	var cycle *domain.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"loop"}, cycle.Slots)
	assert.ErrorIs(t, err, domain.ErrDependencyCycle)
}

func TestCheckDAG_ReportsWholeStuckSubset(t *testing.T) {
	// a <-> b is the cycle; c only waits behind it
	slots := []domain.Slot{slot("a", "b"), slot("b", "a"), slot("c", "b"), slot("free")}
	errs := CheckDAG(slots)
	assert.Equal(t, []string{"Dependency cycle detected involving slots: a, b, c"}, errs)
}

func TestCheckDAG_AgreesWithTopologicalSort(t *testing.T) {
	cases := map[string][]domain.Slot{
		"empty":     nil,
		"single":    {slot("a")},
		"chain":     {slot("a"), slot("b", "a"), slot("c", "b")},
		"self":      {slot("a", "a")},
		"pair":      {slot("a", "b"), slot("b", "a")},
		"unknown":   {slot("a", "ghost")},
		"duplicate": {slot("a"), slot("a", "a")},
	}
	for name, slots := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := TopologicalSort(slots)
			assert.Equal(t, len(CheckDAG(slots)) > 0, err != nil)
		})
	}
}

func TestTopologicalSort_StableOrder(t *testing.T) {
	// Diamond: root -> left, right -> join; ties keep declaration order.
	slots := []domain.Slot{
		slot("right", "root"),
		slot("join", "left", "right"),
		slot("root"),
		slot("left", "root"),
		slot("solo"),
	}
	order, err := TopologicalSort(slots)
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "solo", "right", "left", "join"}, order)
}

func TestExecutionOrder_HonorsDataFlow(t *testing.T) {
	p := domain.Pipeline{
		Slots: []domain.Slot{
			slot("consumer"),
			{ID: "producer", Outputs: []domain.ArtifactOutput{{Name: "doc"}}},
		},
		DataFlow: []domain.DataFlowEdge{{FromSlot: "producer", ToSlot: "consumer", Artifact: "doc"}},
	}
	order, err := ExecutionOrder(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"producer", "consumer"}, order)
}

func TestCheckSlotTypes(t *testing.T) {
	reg := memory.NewRegistry(domain.SlotType{ID: "worker", Name: "Worker"})
	p := domain.Pipeline{Slots: []domain.Slot{
		{ID: "a", Type: "worker"},
		{ID: "b", Type: "ghost"},
	}}
	errs := CheckSlotTypes(context.Background(), p, reg)
	assert.Equal(t, []string{"Slot 'b': slot_type 'ghost' not found in registry"}, errs)
}
