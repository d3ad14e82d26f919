package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextNumber_FirstOfDay(t *testing.T) {
	assert.Equal(t, "INV-20250301-0001", NextNumber("20250301", nil))
}

func TestNextNumber_Increments(t *testing.T) {
	existing := []string{"INV-20250301-0001", "INV-20250301-0002"}
	assert.Equal(t, "INV-20250301-0003", NextNumber("20250301", existing))
}

func TestNextNumber_SkipsGaps(t *testing.T) {
	// A deleted 0002 must not be reissued below the high-water mark.
	existing := []string{"INV-20250301-0001", "INV-20250301-0007"}
	assert.Equal(t, "INV-20250301-0008", NextNumber("20250301", existing))
}

func TestNextNumber_IgnoresForeignNumbers(t *testing.T) {
	existing := []string{"INV-20250228-0042", "garbage", "INV-20250301-xyz"}
	assert.Equal(t, "INV-20250301-0001", NextNumber("20250301", existing))
}

func TestNextNumber_PastFourDigits(t *testing.T) {
	assert.Equal(t, "INV-20250301-10000", NextNumber("20250301", []string{"INV-20250301-9999"}))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.3, round2(0.1+0.2))
	assert.Equal(t, 19.99, round2(19.991))
	assert.Equal(t, 1.23, round2(1.2345))
}
