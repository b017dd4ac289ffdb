package galileo

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// StatsText formats the frame rate and the stage's live counters.
func (s *Stage) StatsText() string {
	particles := 0
	for _, e := range s.particles {
		particles += e.ActiveCount()
	}
	return fmt.Sprintf("FPS: %.1f TPS: %.1f\nparticles: %d animations: %d timers: %d",
		ebiten.ActualFPS(), ebiten.ActualTPS(), particles, s.orch.ActiveCount(), s.scheduler.Pending())
}

// DrawStats prints StatsText in the top-left corner of screen.
func (s *Stage) DrawStats(screen *ebiten.Image) {
	ebitenutil.DebugPrint(screen, s.StatsText())
}
