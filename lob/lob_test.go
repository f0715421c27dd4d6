package lob

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Scenario 6 (spec §8): CLOB assembled from 5 out-of-order data pages,
// joined in ascending page-number order.
func TestAssembleOutOfOrderPages(t *testing.T) {
	a := New(16)
	a.Begin(87, 1, 5*6)

	a.FeedData(87, 1, 2, []byte("CCCCCC"))
	a.FeedData(87, 1, 0, []byte("AAAAAA"))
	a.FeedData(87, 1, 1, []byte("BBBBBB"))
	a.FeedData(87, 1, 4, []byte("EEEEEE"))
	a.FeedData(87, 1, 3, []byte("DDDDDD"))

	require.True(t, a.Ready(87, 1))
	joined, ok := a.Join(87, 1)
	require.True(t, ok)
	require.Equal(t, "AAAAAABBBBBBCCCCCCDDDDDDEEEEEE", string(joined))
}

func TestOrphanPageParkedThenDrained(t *testing.T) {
	a := New(16)
	a.FeedData(87, 2, 0, []byte("orphan"))
	a.Begin(87, 2, 6)
	a.FeedIndex(87, 2, 0, nil)

	joined, ok := a.Join(87, 2)
	require.True(t, ok)
	require.Equal(t, "orphan", string(joined))
}
