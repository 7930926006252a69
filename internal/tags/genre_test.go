package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeReleaseType(t *testing.T) {
	assert.Equal(t, "album", NormalizeReleaseType("Album"))
	assert.Equal(t, "ep", NormalizeReleaseType("EP"))
	assert.Equal(t, "unknown", NormalizeReleaseType("bootleg"))
	assert.Equal(t, "unknown", NormalizeReleaseType(""))
}

func TestJoinSplitGenreField_NoParents(t *testing.T) {
	joined := JoinGenreField([]string{"House", "Techno"}, false)
	assert.Equal(t, "House;Techno", joined)
	assert.Equal(t, []string{"House", "Techno"}, SplitGenreField(joined))
}

func TestJoinSplitGenreField_WithParents(t *testing.T) {
	joined := JoinGenreField([]string{"Deep House"}, true)
	assert.Contains(t, joined, genreParentsTailMarker)
	assert.Equal(t, []string{"Deep House"}, SplitGenreField(joined), "read strips everything from the parents tail onward")
}

func TestParentsOf_Transitive(t *testing.T) {
	parents := ParentsOf("Deep House")
	assert.Contains(t, parents, "house")
	assert.Contains(t, parents, "dance")
	assert.Contains(t, parents, "electronic")
}

func TestParentsOf_Unknown(t *testing.T) {
	assert.Empty(t, ParentsOf("some made up genre"))
}
