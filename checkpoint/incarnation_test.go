package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIncarnationsAncestorChainNotAbandoned(t *testing.T) {
	inc := NewIncarnations()
	inc.Switch(Incarnation{ID: 1, ResetlogsScn: 100, Status: IncarnationCurrent})
	inc.Switch(Incarnation{ID: 2, ResetlogsScn: 200, PriorIncarnation: 1, Status: IncarnationCurrent})
	inc.Switch(Incarnation{ID: 3, ResetlogsScn: 300, PriorIncarnation: 2, Status: IncarnationCurrent})

	require.False(t, inc.WasAbandoned(100))
	require.False(t, inc.WasAbandoned(200))

	cur, ok := inc.Current()
	require.True(t, ok)
	require.Equal(t, uint32(3), cur.ID)
}

func TestIncarnationsDetectsAbandonedBranch(t *testing.T) {
	inc := NewIncarnations()
	inc.Switch(Incarnation{ID: 1, ResetlogsScn: 100, Status: IncarnationCurrent})
	inc.Switch(Incarnation{ID: 2, ResetlogsScn: 200, PriorIncarnation: 1, Status: IncarnationOrphan})
	// ID 3 forks again from 1, superseding the ID-2 branch.
	inc.Switch(Incarnation{ID: 3, ResetlogsScn: 250, PriorIncarnation: 1, Status: IncarnationCurrent})

	require.True(t, inc.WasAbandoned(200))
	require.False(t, inc.WasAbandoned(100))
	require.False(t, inc.WasAbandoned(250))
}
