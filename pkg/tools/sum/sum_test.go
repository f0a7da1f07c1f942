package sum

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumRun(t *testing.T) {
	tool := New()

	result, err := tool.Run(context.Background(), "1, 2, 3.5")
	require.NoError(t, err)
	assert.Equal(t, "6.5", result)

	result, err = tool.Run(context.Background(), "10 20 30")
	require.NoError(t, err)
	assert.Equal(t, "60", result)
}

func TestSumRunErrors(t *testing.T) {
	tool := New()

	_, err := tool.Run(context.Background(), "1, two, 3")
	require.Error(t, err)

	_, err = tool.Run(context.Background(), "")
	require.Error(t, err)
}

func TestSumExecute(t *testing.T) {
	tool := New()

	result, err := tool.Execute(context.Background(), `{"numbers": [1, -1, 2.5]}`)
	require.NoError(t, err)
	assert.Equal(t, "2.5", result)

	_, err = tool.Execute(context.Background(), `{"numbers": []}`)
	require.Error(t, err)
}
