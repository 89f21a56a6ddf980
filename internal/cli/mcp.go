package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	tdmcp "github.com/valter-silva-au/taskdesk/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the taskdesk MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the taskdesk MCP server on stdio",
	Long: `Start the taskdesk MCP server on stdio transport, acting as the signed-in
employee.

Every session gets my_tasks, update_task_status, request_approval,
get_metrics and get_alerts. Administrator sessions also get list_tasks and
decide_task.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		employee, err := employeeView()
		if err != nil {
			return err
		}
		var admin tdmcp.AdminTasks
		if employee.Session().IsAdmin() {
			view, err := adminView()
			if err != nil {
				return err
			}
			admin = view
		}

		srv := tdmcp.NewServer(employee, admin, MetricsCalc, AlertEngine, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}
		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
