package stripe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirLayout(t *testing.T) {
	l, err := ParseDirLayout("stripe_count: 2 stripe_size: 1048576 stripe_offset: -1")
	require.NoError(t, err)
	assert.Equal(t, 2, l.Count)
	assert.Equal(t, 1048576, l.Size)
	assert.Equal(t, -1, l.Offset)
}

func TestParseFileLayout(t *testing.T) {
	lines := []string{
		"lmm_stripe_count:  2",
		"lmm_stripe_size:   1048576",
		"lmm_pattern:       raid0",
		"lmm_layout_gen:    0",
		"lmm_stripe_offset: 3",
		"\tobdidx\t\t objid\t\t objid\t\t group",
		"\t3\t\t 128\t\t 0x80\t\t 0",
		"\t5\t\t 64\t\t 0x40\t\t 0",
		"",
	}
	l, err := ParseFileLayout(lines)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Count)
	assert.Equal(t, 1048576, l.Size)
	assert.Equal(t, 3, l.Offset)
	assert.Equal(t, "raid0", l.Pattern)
	assert.Equal(t, 0, l.Gen)
	require.Len(t, l.Index, 2)
	assert.Equal(t, IndexEntry{ObdIdx: 3, ObjID: 128, Group: 0}, l.Index[0])
	assert.Equal(t, IndexEntry{ObdIdx: 5, ObjID: 64, Group: 0}, l.Index[1])
}

func TestParseFileLayoutTooShort(t *testing.T) {
	_, err := ParseFileLayout([]string{"lmm_stripe_count: 1"})
	require.Error(t, err)
}

func TestLayoutIsNull(t *testing.T) {
	assert.True(t, Layout{}.IsNull())
	assert.False(t, Layout{Count: 1}.IsNull())
}
