package ports

import (
	"context"
	"testing"

	"github.com/aretw0/gantry/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSlotTypeRegistryContract runs a suite of tests to verify that a SlotTypeRegistry
// implementation adheres to the interface contract. The registry must already
// contain known.
func RunSlotTypeRegistryContract(t *testing.T, reg SlotTypeRegistry, known domain.SlotType) {
	ctx := context.Background()

	t.Run("LoadSlotTypes", func(t *testing.T) {
		types, err := reg.LoadSlotTypes(ctx)
		require.NoError(t, err)
		require.Contains(t, types, known.ID)
		assert.Equal(t, known.Name, types[known.ID].Name)
	})

	t.Run("GetSlotType", func(t *testing.T) {
		st, err := reg.GetSlotType(ctx, known.ID)
		require.NoError(t, err)
		assert.Equal(t, known.ID, st.ID)
		assert.Equal(t, known.Category, st.Category)
		assert.Equal(t, known.RequiredCapabilities, st.RequiredCapabilities)
	})

	t.Run("GetSlotType Not Found", func(t *testing.T) {
		_, err := reg.GetSlotType(ctx, "contract-missing-type")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrSlotTypeNotFound)
		assert.Contains(t, err.Error(), "Slot type 'contract-missing-type' not found in registry")
	})

	t.Run("Repeated Loads Are Stable", func(t *testing.T) {
		first, err := reg.LoadSlotTypes(ctx)
		require.NoError(t, err)
		second, err := reg.LoadSlotTypes(ctx)
		require.NoError(t, err)
		assert.Equal(t, len(first), len(second))
	})
}
