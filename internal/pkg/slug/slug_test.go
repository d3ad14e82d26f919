package slug

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	assert.Equal(t, "front-bumper-swift", Make("Front Bumper Swift"))
	assert.Equal(t, "brake-pads-50-off", Make("  Brake Pads — 50% Off!  "))
	assert.Equal(t, "head-lamp", Make("head_lamp"))
	assert.Equal(t, "a-b", Make("a---b"))
	assert.Equal(t, "trimmed", Make("--trimmed--"))
}

func TestUnique_AppendsSuffix(t *testing.T) {
	u := Unique("Front Bumper")
	assert.True(t, strings.HasPrefix(u, "front-bumper-"))
	assert.Greater(t, len(u), len("front-bumper-"))
}
