package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/adreview/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server in front of the review workflow.

Endpoints:
  GET  /health                       Health check
  GET  /api/materials                List materials (?status=, ?q=)
  GET  /api/materials/{id}           One material
  POST /api/materials/{id}/trigger   Start AI review
  POST /api/materials/{id}/manual    Approve or reject by hand
  POST /api/refresh                  Reload from the backend
  GET  /api/ws                       WebSocket for live updates
  GET  /metrics                      Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "127.0.0.1", "address to listen on")
	serveCmd.Flags().IntP("port", "p", 6142, "port to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	port, _ := cmd.Flags().GetInt("port")

	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	// The server still starts when the backend is down; /api/refresh retries.
	if err := a.load(cmd.Context()); err != nil {
		a.log.WithError(err).Warn("initial load failed")
	}

	listen := fmt.Sprintf("%s:%d", addr, port)
	srv := api.New(listen, a.ctrl, a.client, a.notices, a.log)
	return srv.ListenAndServe(cmd.Context())
}
