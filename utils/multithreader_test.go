package utils

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMultiThreadVisitsEveryIndexOnce(t *testing.T) {
	const start, end = 3, 1003

	visits := make([]int64, end)
	MultiThread(start, end, func(i int) {
		atomic.AddInt64(&visits[i], 1)
	}, 7, 2)

	for i := 0; i < start; i++ {
		require.Zero(t, visits[i])
	}
	for i := start; i < end; i++ {
		require.Equal(t, int64(1), visits[i], "index %d", i)
	}
}

func TestMultiThreadEmptyRange(t *testing.T) {
	called := int64(0)
	MultiThread(5, 5, func(int) { atomic.AddInt64(&called, 1) }, 1, 1)
	require.Zero(t, called)
}
