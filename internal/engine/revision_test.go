package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardToBCM_knownRev2(t *testing.T) {
	// P1 pin 11 is BCM17 on every revision; pin 13 differs (BCM21 on rev1,
	// BCM27 on rev2), per the datasheet's header-revision change.
	bcm, err := BoardToBCM(Revision2, 11)
	require.NoError(t, err)
	assert.Equal(t, 17, bcm)

	bcm, err = BoardToBCM(Revision1, 13)
	require.NoError(t, err)
	assert.Equal(t, 21, bcm)

	bcm, err = BoardToBCM(Revision2, 13)
	require.NoError(t, err)
	assert.Equal(t, 27, bcm)
}

func TestBoardToBCM_invalidPositions(t *testing.T) {
	for _, pin := range []int{0, -1, 27, 100} {
		_, err := BoardToBCM(Revision2, pin)
		assert.Error(t, err)
	}
	// Pin 1 is a power rail, not a GPIO.
	_, err := BoardToBCM(Revision2, 1)
	assert.Error(t, err)
}

// Numbering round-trip: every valid P1 position survives board->BCM->board.
func TestNumberingRoundTrip(t *testing.T) {
	for _, rev := range []Revision{Revision1, Revision2} {
		for pin := 1; pin <= 26; pin++ {
			bcm, err := BoardToBCM(rev, pin)
			if err != nil {
				continue
			}
			back, err := BCMToBoard(rev, bcm)
			require.NoError(t, err)
			assert.Equal(t, pin, back, "rev=%d pin=%d", rev, pin)
		}
	}
}

func TestBCMToBoard_unbonded(t *testing.T) {
	_, err := BCMToBoard(Revision2, 53)
	assert.Error(t, err)
}
