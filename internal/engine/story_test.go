package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/storyboard/internal/ir"
	"github.com/roach88/storyboard/internal/timeline"
)

func runMachine(policy ir.Policy, inputs []bool) (fires []bool, states []StoryState) {
	rt := newStoryRuntime("s", ir.Story{Policy: policy})
	for i, in := range inputs {
		if rt.state == StateDone {
			fires = append(fires, false)
			states = append(states, rt.state)
			continue
		}
		fires = append(fires, rt.advance(in, timeline.Tick(i)))
		states = append(states, rt.state)
	}
	return fires, states
}

func TestStoryMachine_SingleShot(t *testing.T) {
	fires, states := runMachine(ir.PolicySingleShot, []bool{false, true, true, false, true})

	assert.Equal(t, []bool{false, true, false, false, false}, fires)
	assert.Equal(t, []StoryState{StateArmed, StateDone, StateDone, StateDone, StateDone}, states)
}

func TestStoryMachine_SingleShotTrueOnFirstTick(t *testing.T) {
	fires, _ := runMachine(ir.PolicySingleShot, []bool{true, true})
	assert.Equal(t, []bool{true, false}, fires, "a condition true at the first evaluation is a rising edge")
}

func TestStoryMachine_Retriggerable(t *testing.T) {
	fires, states := runMachine(ir.PolicyRetriggerable, []bool{true, true, false, false, true, true, false, true})

	assert.Equal(t, []bool{true, false, false, false, true, false, false, true}, fires)
	assert.Equal(t, []StoryState{
		StateFired, StateFired, StateArmed, StateArmed, StateFired, StateFired, StateArmed, StateFired,
	}, states)
}

func TestStoryMachine_Continuous(t *testing.T) {
	fires, states := runMachine(ir.PolicyContinuous, []bool{false, true, true, true, false, true})

	assert.Equal(t, []bool{false, true, true, true, false, true}, fires)
	assert.Equal(t, []StoryState{StateArmed, StateFired, StateFired, StateFired, StateArmed, StateFired}, states)
}

func TestStoryMachine_Status(t *testing.T) {
	rt := newStoryRuntime("evw", ir.Story{Policy: ir.PolicyRetriggerable})
	rt.advance(true, 500)
	rt.advance(false, 600)
	rt.advance(true, 700)

	st := rt.status()
	assert.Equal(t, "evw", st.ID)
	assert.Equal(t, 2, st.Fires)
	assert.Equal(t, timeline.Tick(700), st.LastFired)
	assert.True(t, st.Condition)
	assert.Equal(t, StateFired, st.State)
}
