package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskdesk/internal/server"
	"github.com/valter-silva-au/taskdesk/internal/storage"
)

var (
	serveAddr   string
	serveDBPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the taskdesk REST server",
	Long: `Run the taskdesk REST server over a SQLite database.

The signing secret for session tokens comes from server.jwt_secret in
.taskdesk.yaml or the TASKDESK_SERVER_JWT_SECRET environment variable. Create the
first administrator with "taskdesk employees add --db".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Config == nil {
			return fmt.Errorf("configuration not initialized")
		}
		secret := Config.Server.JWTSecret
		if secret == "" {
			return fmt.Errorf("no jwt secret: set server.jwt_secret or TASKDESK_SERVER_JWT_SECRET")
		}

		addr := Config.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		dbPath := Config.Server.DatabasePath
		if serveDBPath != "" {
			dbPath = serveDBPath
		} else if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(BasePath, dbPath)
		}

		db, err := storage.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		log := logger()
		srv, err := server.New(server.Config{
			JWTSecret:      []byte(secret),
			TokenTTL:       time.Duration(Config.Server.TokenTTLHours) * time.Hour,
			AllowedOrigins: Config.Server.AllowedOrigins,
		}, server.StoresFor(db, log), Events, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.WithField("addr", addr).WithField("db", dbPath).Info("taskdesk server listening")
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from server.addr)")
	serveCmd.Flags().StringVar(&serveDBPath, "db", "", "SQLite database file (default from server.database_path)")
	rootCmd.AddCommand(serveCmd)
}
