package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"liquidhero/config"
	"liquidhero/misc"
)

// cli is the state shared by every subcommand.
type cli struct {
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:          "liquidhero",
		Short:        "A liquid trail reveal effect between two images.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.New(), c.cfgFile)
			if err != nil {
				misc.InitLogger(config.NewDefaultConfig().Logger)
				return err
			}
			c.cfg = cfg

			misc.InitLogger(cfg.Logger)
			misc.Logger().Debug("config loaded",
				zap.String("file", c.cfgFile),
				zap.String("mode", cfg.Simulation.Mode),
			)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "", "config file (default is ./liquidhero.yaml)")

	root.AddCommand(
		newRunCmd(c),
		newRenderCmd(c),
		newServeCmd(c),
	)

	return root
}
