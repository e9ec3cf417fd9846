package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidhero/misc"
	"liquidhero/web"
)

func newServeCmd(c *cli) *cobra.Command {
	var (
		folder string
		port   uint
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a wasm build of the effect without caching",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := misc.Logger().Named("web")

			srv, err := web.NewServer(folder, port, logger)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()

			logger.Info("serving", zap.String("folder", folder), zap.Uint("port", port))

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "web_build", "folder to serve")
	cmd.Flags().UintVar(&port, "port", 6969, "port to listen on")

	return cmd
}
