package playback

import (
	"errors"
	"fmt"
	"math"

	"github.com/dgnsrekt/storycast/internal/audio"
)

// ErrSpeedOutOfRange is returned when speed is outside the valid range.
var ErrSpeedOutOfRange = errors.New("speed must be between 0.5 and 2.0")

// DefaultSpeed is the speed every analysis starts with.
const DefaultSpeed = 1.0

// SpeedSteps are the speeds offered to the listener.
var SpeedSteps = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 2.0}

func validateSpeed(speed float64) error {
	if math.IsNaN(speed) || speed < audio.MinSpeed || speed > audio.MaxSpeed {
		return ErrSpeedOutOfRange
	}
	return nil
}

// NextSpeed returns the step above speed, or speed at the top.
func NextSpeed(speed float64) float64 {
	for _, s := range SpeedSteps {
		if s > speed {
			return s
		}
	}
	return speed
}

// PrevSpeed returns the step below speed, or speed at the bottom.
func PrevSpeed(speed float64) float64 {
	for i := len(SpeedSteps) - 1; i >= 0; i-- {
		if SpeedSteps[i] < speed {
			return SpeedSteps[i]
		}
	}
	return speed
}

// SpeedLabel formats speed the way the player shows it.
func SpeedLabel(speed float64) string {
	return fmt.Sprintf("%gx", speed)
}
