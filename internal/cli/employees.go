package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskdesk/internal/core"
	"github.com/valter-silva-au/taskdesk/internal/storage"
	"github.com/valter-silva-au/taskdesk/internal/taskapi"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

var (
	addFullName    string
	addEmail       string
	addPhone       string
	addJobTitle    string
	addLocation    string
	addJobCategory string
	addRole        string
	addPassword    string
	addDBPath      string
)

var employeesCmd = &cobra.Command{
	Use:     "employees",
	Aliases: []string{"employee"},
	Short:   "Manage the employee directory",
}

var employeesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List employees (administrators)",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		client, _, err := sessionClient()
		if err != nil {
			return err
		}
		employees, err := client.ListEmployees(context.Background())
		if err != nil {
			return err
		}
		if wantJSON() {
			if employees == nil {
				employees = []models.Employee{}
			}
			return printJSON(cmd, employees)
		}

		w := cmd.OutOrStdout()
		if len(employees) == 0 {
			fmt.Fprintln(w, "No employees found.")
			return nil
		}
		fmt.Fprintf(w, "  %-36s %-16s %-24s %s\n", "ID", "USERNAME", "NAME", "ROLE")
		for _, e := range employees {
			fmt.Fprintf(w, "  %-36s %-16s %-24s %s\n", e.ID, e.Username, truncate(e.FullName, 24), e.Role)
		}
		return nil
	}),
}

var employeesAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add an employee",
	Long: `Add an employee to the directory.

By default the employee is created through the API, which requires an
administrator session. With --db the employee is written straight into a
local database file; use this to create the first administrator before
the server has any users.`,
	Args: cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		ne := models.NewEmployee{
			Username:    args[0],
			FullName:    addFullName,
			Email:       addEmail,
			Phone:       addPhone,
			JobTitle:    addJobTitle,
			Location:    addLocation,
			JobCategory: addJobCategory,
			Role:        models.Role(addRole),
			Password:    addPassword,
		}
		if err := core.ValidateStruct(ne); err != nil {
			return err
		}

		var (
			created *models.Employee
			err     error
		)
		if addDBPath != "" {
			created, err = addEmployeeToDB(cmd.Context(), addDBPath, ne)
		} else {
			var client *taskapi.Client
			client, _, err = sessionClient()
			if err != nil {
				return err
			}
			created, err = client.CreateEmployee(context.Background(), ne)
		}
		if err != nil {
			return fmt.Errorf("adding employee %s: %w", ne.Username, err)
		}

		if wantJSON() {
			return printJSON(cmd, created)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) as %s with ID %s\n", created.Username, created.FullName, created.Role, created.ID)
		return nil
	}),
}

func addEmployeeToDB(ctx context.Context, path string, ne models.NewEmployee) (*models.Employee, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	repo := storage.NewEmployeeRepository(db, logger())
	return repo.Create(ctx, ne.Employee(), ne.Password)
}

var employeesShowCmd = &cobra.Command{
	Use:   "show [username]",
	Short: "Show an employee record (your own without an argument)",
	Args:  cobra.MaximumNArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		client, session, err := sessionClient()
		if err != nil {
			return err
		}
		id := session.Employee.ID
		if len(args) == 1 && !strings.EqualFold(args[0], session.Employee.Username) {
			if id, err = resolveEmployeeID(ctx, client, args[0]); err != nil {
				return err
			}
		}
		emp, err := client.GetEmployee(ctx, id)
		if err != nil {
			return err
		}
		if wantJSON() {
			return printJSON(cmd, emp)
		}

		printEmployee(cmd, *emp)
		return nil
	}),
}

var (
	editFullName    string
	editEmail       string
	editPhone       string
	editJobTitle    string
	editLocation    string
	editJobCategory string
	editRole        string
)

var employeesUpdateCmd = &cobra.Command{
	Use:   "update <username>",
	Short: "Change an employee's profile or role (administrators)",
	Long: `Change the profile fields or role of an employee. Only the flags you
pass are changed; pass an empty value to clear a field. A location or job
category must already exist; see "taskdesk locations" and
"taskdesk job-categories".`,
	Args: cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		upd := models.EmployeeUpdate{}
		for _, f := range []struct {
			flag string
			dst  **string
			val  string
		}{
			{"name", &upd.FullName, editFullName},
			{"email", &upd.Email, editEmail},
			{"phone", &upd.Phone, editPhone},
			{"job-title", &upd.JobTitle, editJobTitle},
			{"location", &upd.Location, editLocation},
			{"job-category", &upd.JobCategory, editJobCategory},
		} {
			if cmd.Flags().Changed(f.flag) {
				v := f.val
				*f.dst = &v
			}
		}
		if cmd.Flags().Changed("role") {
			role := models.Role(editRole)
			upd.Role = &role
		}
		if upd.IsEmpty() {
			return fmt.Errorf("nothing to update: pass at least one of --name, --email, --phone, --job-title, --location, --job-category, --role")
		}
		if err := core.ValidateStruct(upd); err != nil {
			return err
		}

		ctx := context.Background()
		client, _, err := sessionClient()
		if err != nil {
			return err
		}
		id, err := resolveEmployeeID(ctx, client, args[0])
		if err != nil {
			return err
		}
		emp, err := client.UpdateEmployee(ctx, id, upd)
		if err != nil {
			return err
		}
		if wantJSON() {
			return printJSON(cmd, emp)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s, %s)\n", emp.Username, emp.FullName, emp.Role)
		return nil
	}),
}

var employeesDeleteCmd = &cobra.Command{
	Use:     "delete <username>",
	Aliases: []string{"rm"},
	Short:   "Delete an employee (administrators)",
	Long: `Delete an employee and their to-do list. An employee who still has
tasks assigned cannot be deleted; delete those tasks first. You cannot
delete your own account.`,
	Args: cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		client, _, err := sessionClient()
		if err != nil {
			return err
		}
		id, err := resolveEmployeeID(ctx, client, args[0])
		if err != nil {
			return err
		}
		if err := client.DeleteEmployee(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted employee %s\n", args[0])
		return nil
	}),
}

// resolveEmployeeID maps a username to an employee ID. A value that
// matches an ID is returned unchanged.
func resolveEmployeeID(ctx context.Context, client *taskapi.Client, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	employees, err := client.ListEmployees(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving assignee %q: %w", ref, err)
	}
	for _, e := range employees {
		if e.ID == ref {
			return e.ID, nil
		}
	}
	for _, e := range employees {
		if strings.EqualFold(e.Username, ref) {
			return e.ID, nil
		}
	}
	return "", fmt.Errorf("resolving assignee %q: %w", ref, core.ErrNotFound)
}

func init() {
	employeesAddCmd.Flags().StringVar(&addFullName, "name", "", "Full name")
	employeesAddCmd.Flags().StringVar(&addEmail, "email", "", "Email address")
	employeesAddCmd.Flags().StringVar(&addPhone, "phone", "", "Phone number")
	employeesAddCmd.Flags().StringVar(&addJobTitle, "job-title", "", "Job title")
	employeesAddCmd.Flags().StringVar(&addLocation, "location", "", "Location (must exist)")
	employeesAddCmd.Flags().StringVar(&addJobCategory, "job-category", "", "Job category (must exist)")
	employeesAddCmd.Flags().StringVar(&addRole, "role", string(models.RoleEmployee), "Role: admin or employee")
	employeesAddCmd.Flags().StringVar(&addPassword, "password", "", "Initial password (at least 8 characters)")
	employeesAddCmd.Flags().StringVar(&addDBPath, "db", "", "Write to this database file instead of the API")

	employeesUpdateCmd.Flags().StringVar(&editFullName, "name", "", "Full name")
	employeesUpdateCmd.Flags().StringVar(&editEmail, "email", "", "Email address")
	employeesUpdateCmd.Flags().StringVar(&editPhone, "phone", "", "Phone number")
	employeesUpdateCmd.Flags().StringVar(&editJobTitle, "job-title", "", "Job title")
	employeesUpdateCmd.Flags().StringVar(&editLocation, "location", "", "Location (must exist)")
	employeesUpdateCmd.Flags().StringVar(&editJobCategory, "job-category", "", "Job category (must exist)")
	employeesUpdateCmd.Flags().StringVar(&editRole, "role", "", "Role: admin or employee")

	employeesCmd.AddCommand(employeesListCmd, employeesAddCmd, employeesShowCmd, employeesUpdateCmd, employeesDeleteCmd)
	rootCmd.AddCommand(employeesCmd)
}
