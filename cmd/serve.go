package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/quizgen/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the image generation HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		serveBlobs, _ := cmd.Flags().GetBool("serve-blobs")

		d, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		app := &httpapi.App{
			Images:   d.images,
			Uploader: d.uploader,
			Drafter:  d.drafter,
			Log:      logger,
		}
		if serveBlobs {
			app.BlobRoot = d.blobs.Root()
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           httpapi.NewRouter(app),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx := cmd.Context()
		errCh := make(chan error, 1)
		go func() {
			logger.Info("listening", zap.String("addr", addr), zap.Bool("serve_blobs", serveBlobs))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	serveCmd.Flags().Bool("serve-blobs", true, "Serve stored images under /blobs/")
}
