package eino

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkflowProviderLabels(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "unknown", WorkflowFromContext(ctx))
	assert.Equal(t, "unknown", ProviderFromContext(ctx))

	ctx = WithWorkflowProvider(ctx, "general.table", "openai")
	assert.Equal(t, "general.table", WorkflowFromContext(ctx))
	assert.Equal(t, "openai", ProviderFromContext(ctx))

	// 空白值不覆盖已有标签
	ctx = WithWorkflowProvider(ctx, "  ", "")
	assert.Equal(t, "general.table", WorkflowFromContext(ctx))
	assert.Equal(t, "openai", ProviderFromContext(ctx))
}
