package main

import (
	"errors"

	eb "github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidhero/misc"
)

func newRunCmd(c *cli) *cobra.Command {
	var (
		hot   bool
		pprof bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open a window and run the effect on the gpu",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			if cmd.Flags().Changed("hot") {
				cfg.Dev.HotReload = hot
			}
			if cmd.Flags().Changed("pprof") {
				cfg.Dev.PProf = pprof
			}

			logger := misc.Logger()

			if cfg.Dev.PProf {
				startPProf(cfg.Dev.PProfAddr, logger.Named("pprof"))
			}

			InitClipboardManager(logger)

			app, err := NewApp(cmd.Context(), cfg, afero.NewOsFs(), logger)
			if err != nil {
				return err
			}
			defer app.Dispose()

			eb.SetVsyncEnabled(cfg.Window.Vsync)
			eb.SetTPS(cfg.Window.TPS)
			eb.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
			if cfg.Window.Resizable {
				eb.SetWindowResizingMode(eb.WindowResizingModeEnabled)
			}
			eb.SetWindowTitle(cfg.Window.Title)

			logger.Info("starting",
				zap.Int("width", cfg.Window.Width),
				zap.Int("height", cfg.Window.Height),
				zap.Bool("hot_reload", cfg.Dev.HotReload),
			)

			if err := eb.RunGame(app); err != nil && !errors.Is(err, eb.Termination) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&hot, "hot", false, "enable shader hot reloading (F5)")
	cmd.Flags().BoolVar(&pprof, "pprof", false, "enable pprof")

	return cmd
}
