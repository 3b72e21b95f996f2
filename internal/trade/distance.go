package trade

import (
	"math"

	"github.com/talgya/burgecon/internal/world"
)

// Terrain and infrastructure multipliers on straight-line distance.
const (
	havenFactor     = 0.3 // Both settlements are coastal havens
	roadFactor      = 0.5 // Both on the road network (when not both havens)
	heightFactor    = 3.0 // Per unit of height difference
	sameStateFactor = 0.8 // Same owning state
)

// MinDistance is the floor applied to effective distance before scoring.
const MinDistance = 1.0

// EffectiveDistance is the Euclidean distance between two settlements scaled by
// terrain and infrastructure. Modifiers apply only when both settlements carry
// terrain metadata; neutral settlements (state 0) share no state. The result is
// rounded to 2 decimals.
func EffectiveDistance(a, b world.Settlement) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	d := math.Sqrt(dx*dx + dy*dy)

	if a.Terrain != nil && b.Terrain != nil {
		switch {
		case a.Terrain.Haven && b.Terrain.Haven:
			d *= havenFactor
		case a.Terrain.Road && b.Terrain.Road:
			d *= roadFactor
		}
		d *= 1 + heightFactor*math.Abs(a.Terrain.Height-b.Terrain.Height)
		if a.State != 0 && a.State == b.State {
			d *= sameStateFactor
		}
	}

	return math.Round(d*100) / 100
}

// scoringDistance is the effective distance floored at MinDistance.
func scoringDistance(a, b world.Settlement) float64 {
	return max(MinDistance, EffectiveDistance(a, b))
}
