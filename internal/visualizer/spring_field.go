package visualizer

import "github.com/charmbracelet/harmonica"

// springField moves column levels toward their targets along a damped
// spring. The state lives in the grids, so one field serves every frame.
type springField struct {
	spring harmonica.Spring
}

func newSpringField(fps int, frequency, damping float64) springField {
	if fps <= 0 {
		fps = 30
	}
	return springField{spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping)}
}

// step advances each column of prevPos/prevVel one frame toward targets,
// writing into pos and vel.
func (s springField) step(pos, vel, prevPos, prevVel, targets []float64) {
	for i, target := range targets {
		pos[i], vel[i] = s.spring.Update(prevPos[i], prevVel[i], target)
	}
}
