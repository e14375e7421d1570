package enum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationTopics(t *testing.T) {
	assert.Equal(t, "market-data-update", OperationUpdate.Topic())
	assert.Equal(t, "market-data-query-consolidated-batch", OperationQueryBatch.Topic())
	assert.Empty(t, Operation(0).Topic())
	assert.Empty(t, _op_end.Topic())

	topics := CommandTopics()
	require.Len(t, topics, 5)
	assert.NotContains(t, topics, TopicResponse)
	for i, o := range Operations() {
		assert.Equal(t, o.Topic(), topics[i])
	}
}

func TestOperationIsMutation(t *testing.T) {
	assert.True(t, OperationUpdate.IsMutation())
	assert.True(t, OperationDelete.IsMutation())
	assert.False(t, OperationQueryBatch.IsMutation())
	assert.Equal(t, "unknown", Operation(99).String())
}
