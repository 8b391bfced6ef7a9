package cmds

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/voyagen/guidevault/internal/metrics"
	"github.com/voyagen/guidevault/internal/reminder"
	"github.com/voyagen/guidevault/internal/server"
	"github.com/voyagen/guidevault/internal/store"
)

func NewServeCLI() *cobra.Command {
	var port string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the guide over HTTP and run the background workers.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				conf.ServerPort = port
			}
			ctx := cmd.Context()

			m := metrics.New()
			a, err := newApp(ctx, reminder.LogNotifier{}, m)
			if err != nil {
				return err
			}
			defer a.Close()

			go a.guide.RunTicker(ctx, conf.RefreshInterval, nil)
			if a.redis != nil {
				go a.guide.RunImportWorker(ctx)
			}

			opts := server.Options{Metrics: m, QueueImports: a.redis != nil}
			if p, ok := a.store.(store.Pinger); ok {
				opts.Health = p
			}
			srv := server.New(a.guide, conf, opts)
			if err := srv.ListenAndServe(ctx); err != nil {
				return err
			}
			log.Info().Msg("server stopped")
			return nil
		},
	}

	serveCmd.Flags().StringVarP(&port, "port", "p", "", "listen port, overrides SERVER_PORT")

	return serveCmd
}
