package facts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFunctionKindClasses(t *testing.T) {
	tests := []struct {
		kind     FunctionKind
		public   bool
		action   bool
		query    bool
		mutation bool
	}{
		{Query, true, false, true, false},
		{Mutation, true, false, false, true},
		{Action, true, true, false, false},
		{HTTPAction, true, false, false, false},
		{InternalQuery, false, false, true, false},
		{InternalMutation, false, false, false, true},
		{InternalAction, false, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.public, tt.kind.IsPublic())
			assert.Equal(t, tt.public, ConvexFunction{Kind: tt.kind}.IsPublic())
			assert.Equal(t, tt.action, tt.kind.IsActionLike())
			assert.Equal(t, tt.query, tt.kind.IsQueryLike())
			assert.Equal(t, tt.mutation, tt.kind.IsMutationLike())
		})
	}
}

func TestParseFunctionKind(t *testing.T) {
	for kind, name := range kindNames {
		got, ok := ParseFunctionKind(name)
		assert.True(t, ok, name)
		assert.Equal(t, kind, got)
	}

	_, ok := ParseFunctionKind("customQuery")
	assert.False(t, ok)
}
