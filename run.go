package galileo

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
)

// RunConfig configures Run.
type RunConfig struct {
	Title         string
	Width, Height int
	// TPS overrides the stage config tick rate. Defaults to 60.
	TPS int
	// Draw renders the frame. Optional.
	Draw func(screen *ebiten.Image)
	// ShowStats overlays Stage.StatsText after Draw.
	ShowStats bool
	// Update runs after the stage update each tick. Returning an error stops
	// the loop. Optional.
	Update func() error
}

const defaultTPS = 60

type stageGame struct {
	stage *Stage
	cfg   RunConfig
	dt    float64
}

func (g *stageGame) Update() error {
	g.stage.Update(g.dt)
	if g.cfg.Update != nil {
		return g.cfg.Update()
	}
	return nil
}

func (g *stageGame) Draw(screen *ebiten.Image) {
	if g.cfg.Draw != nil {
		g.cfg.Draw(screen)
	}
	if g.cfg.ShowStats {
		g.stage.DrawStats(screen)
	}
}

func (g *stageGame) Layout(_, _ int) (int, int) {
	return g.cfg.Width, g.cfg.Height
}

// Run opens a window and drives stage at a fixed dt of 1/TPS seconds with
// mouse and touch input enabled. It blocks until the window closes or
// cfg.Update returns an error.
func Run(stage *Stage, cfg RunConfig) error {
	tps := cfg.TPS
	if tps <= 0 {
		tps = stage.cfg.TPS
	}
	if tps <= 0 {
		tps = defaultTPS
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 640, 480
	}
	ebiten.SetTPS(tps)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	if cfg.Title != "" {
		ebiten.SetWindowTitle(cfg.Title)
	}
	stage.pointer.EnableDevices(true)
	if err := ebiten.RunGame(&stageGame{stage: stage, cfg: cfg, dt: 1 / float64(tps)}); err != nil {
		return fmt.Errorf("run stage: %w", err)
	}
	return nil
}
