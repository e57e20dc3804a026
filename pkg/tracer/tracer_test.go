package tracer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_ConcurrentWithoutInit(t *testing.T) {
	current.Store(nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, span := Start(context.Background(), "chain.test")
			RecordError(span, errors.New("boom"))
			span.End()
		}()
	}
	wg.Wait()
	assert.Nil(t, current.Load())
}

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, current.Load())

	ctx, span := Start(context.Background(), "chain.test")
	span.End()
	// noop provider 不产生有效的 span context
	assert.Empty(t, TraceID(ctx))
	assert.Empty(t, SpanID(ctx))
	assert.NoError(t, shutdown(context.Background()))
}
