package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/canvass/internal/logging"
	"github.com/aretw0/canvass/pkg/adapters/file"
	httpAdapter "github.com/aretw0/canvass/pkg/adapters/http"
	"github.com/aretw0/canvass/pkg/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve <workflow-id>",
	Short: "Start the stateless HTTP server",
	Long:  `Starts the Canvass engine in stateless server mode, exposing workflow sessions over a JSON API.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		port, _ := cmd.Flags().GetString("port")
		workflowID := args[0]

		logger := logging.NewJSON(slog.LevelInfo)
		loader := file.NewLoader(dir)
		store := file.NewStore(filepath.Join(dir, ".canvass", "sessions"))
		manager := session.NewManager(store, session.WithLogger(logger))

		server := httpAdapter.NewServer(loader, manager, workflowID, httpAdapter.WithLogger(logger))
		srv := &http.Server{
			Addr:    ":" + port,
			Handler: httpAdapter.NewHandler(server),
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("Starting Canvass Server on %s\n", srv.Addr)
			fmt.Printf("Serving workflow %q from: %s\n", workflowID, dir)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Canvass Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
