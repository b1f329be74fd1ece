package referee

import (
	"testing"

	"go.viam.com/test"
)

func TestApplyNewCommandBumpsGeneration(t *testing.T) {
	m := NewMerger()
	g1 := m.Apply(Packet{Command: 1, Stage: 1, CommandCounter: 1, Yellow: TeamInfo{Name: "A"}})
	test.That(t, g1, test.ShouldEqual, uint64(1))

	g2 := m.Apply(Packet{Command: 2, Stage: 1, CommandCounter: 2, Yellow: TeamInfo{Name: "A"}})
	test.That(t, g2, test.ShouldEqual, uint64(2))
}

func TestApplyUnchangedCommandIsIdempotent(t *testing.T) {
	m := NewMerger()
	m.Apply(Packet{Command: 1, Stage: 1, CommandCounter: 1, Yellow: TeamInfo{Name: "A", Score: 0}})

	g := m.Apply(Packet{Command: 1, Stage: 1, CommandCounter: 1, Yellow: TeamInfo{Name: "A", Score: 1}})
	test.That(t, g, test.ShouldEqual, uint64(1))

	state, ok := m.State()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, state.Yellow.Score, test.ShouldEqual, 1)
}

func TestBallPlacementPositionIsUnresolved(t *testing.T) {
	m := NewMerger()
	_, ok := m.BallPlacementPosition()
	test.That(t, ok, test.ShouldBeFalse)
}
