package id_test

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicalexcom/avidiatech-app-sub005/pkg/id"
)

func TestNewULID_Format(t *testing.T) {
	t.Parallel()

	const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

	ulid := id.NewULID()
	require.Len(t, ulid, 26)
	for _, c := range ulid {
		assert.True(t, strings.ContainsRune(alphabet, c), "unexpected character %q", c)
	}
}

func TestNewULID_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		ulid := id.NewULID()
		_, dup := seen[ulid]
		require.False(t, dup, "duplicate ULID %s", ulid)
		seen[ulid] = struct{}{}
	}
}

func TestNewULID_SortableByCreationTime(t *testing.T) {
	t.Parallel()

	var ulids []string
	for i := range 5 {
		ulids = append(ulids, id.NewULID())
		if i < 4 {
			time.Sleep(2 * time.Millisecond)
		}
	}

	sorted := append([]string(nil), ulids...)
	sort.Strings(sorted)
	assert.Equal(t, ulids, sorted, "ULIDs should sort by creation time")
}
