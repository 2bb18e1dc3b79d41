package types_test

import (
	"testing"

	"github.com/guildpoint/guildpoint/internal/database/types"
	"github.com/stretchr/testify/assert"
)

func TestMetadata_DeclaredWeight(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		metadata types.Metadata
		expected float64
	}{
		{
			name:     "missing weight defaults to 1",
			metadata: types.Metadata{"category": "skill"},
			expected: 1,
		},
		{
			name:     "float weight",
			metadata: types.Metadata{"weight": 2.5},
			expected: 2.5,
		},
		{
			name:     "integer weight",
			metadata: types.Metadata{"weight": 3},
			expected: 3,
		},
		{
			name:     "numeric string weight",
			metadata: types.Metadata{"weight": "1.5"},
			expected: 1.5,
		},
		{
			name:     "zero coerces to 1",
			metadata: types.Metadata{"weight": 0},
			expected: 1,
		},
		{
			name:     "negative coerces to 1",
			metadata: types.Metadata{"weight": -4.0},
			expected: 1,
		},
		{
			name:     "malformed string coerces to 1",
			metadata: types.Metadata{"weight": "heavy"},
			expected: 1,
		},
		{
			name:     "non-numeric type coerces to 1",
			metadata: types.Metadata{"weight": []string{"2"}},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.InDelta(t, tt.expected, tt.metadata.DeclaredWeight(), 1e-9)
		})
	}
}

func TestMetadata_Category(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "skill", types.Metadata{"category": "skill"}.Category())
	assert.Empty(t, types.Metadata{}.Category())
	assert.Empty(t, types.Metadata{"category": 7}.Category())
}

func TestLedgerEntry_Ref(t *testing.T) {
	t.Parallel()

	entry := &types.LedgerEntry{ReferenceType: "commitment", ReferenceID: "c1"}
	assert.Equal(t, &types.EntryRef{Type: "commitment", ID: "c1"}, entry.Ref())

	assert.Nil(t, (&types.LedgerEntry{}).Ref())
}
