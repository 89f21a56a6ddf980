package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskdesk/internal/storage"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

var signinPassword string

var signinCmd = &cobra.Command{
	Use:   "signin <username>",
	Short: "Sign in and store the session token",
	Long: `Sign in against the configured backend and store the returned token in
the data directory. Later commands use the stored session until it is
rejected by the server or removed with "taskdesk signout".

The password is taken from --password, then TASKDESK_PASSWORD, then the
first line of standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Sessions == nil {
			return fmt.Errorf("session store not initialized")
		}
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}
		client, err := apiClient()
		if err != nil {
			return err
		}

		session, err := client.SignIn(context.Background(), args[0], password)
		if err != nil {
			return fmt.Errorf("signing in as %s: %w", args[0], err)
		}
		if err := Sessions.Save(session); err != nil {
			return err
		}

		if wantJSON() {
			return printJSON(cmd, session.Employee)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s, %s)\n", session.Employee.Username, session.Employee.FullName, session.Employee.Role)
		return nil
	},
}

func readPassword(cmd *cobra.Command) (string, error) {
	if signinPassword != "" {
		return signinPassword, nil
	}
	if env := os.Getenv("TASKDESK_PASSWORD"); env != "" {
		return env, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return "", fmt.Errorf("password must not be empty")
	}
	return password, nil
}

var signoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Sessions == nil {
			return fmt.Errorf("session store not initialized")
		}
		if err := Sessions.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in employee",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Sessions == nil {
			return fmt.Errorf("session store not initialized")
		}
		session, err := Sessions.Load()
		if errors.Is(err, storage.ErrNoSession) {
			fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
			return nil
		}
		if err != nil {
			return err
		}
		if wantJSON() {
			return printJSON(cmd, session.Employee)
		}
		printEmployee(cmd, session.Employee)
		fmt.Fprintf(cmd.OutOrStdout(), "  %-12s %s\n", "Signed in:", session.IssuedAt.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

func printEmployee(cmd *cobra.Command, e models.Employee) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s (%s)\n", e.Username, e.FullName)
	fmt.Fprintf(w, "  %-13s %s\n", "ID:", e.ID)
	fmt.Fprintf(w, "  %-13s %s\n", "Role:", e.Role)
	for _, row := range [][2]string{
		{"Email:", e.Email},
		{"Phone:", e.Phone},
		{"Job title:", e.JobTitle},
		{"Location:", e.Location},
		{"Job category:", e.JobCategory},
	} {
		if row[1] != "" {
			fmt.Fprintf(w, "  %-13s %s\n", row[0], row[1])
		}
	}
}

var (
	passwdCurrent string
	passwdNew     string
)

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change your password",
	Long: `Change the password of the signed-in employee. The current and new
passwords are taken from --current and --new, or else from the first two
lines of standard input. The session stays valid afterwards.`,
	Args: cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		current, next := passwdCurrent, passwdNew
		if current == "" || next == "" {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if current == "" {
				if current, err = promptLine(cmd, in, "Current password: "); err != nil {
					return err
				}
			}
			if next == "" {
				if next, err = promptLine(cmd, in, "New password: "); err != nil {
					return err
				}
			}
		}

		client, _, err := sessionClient()
		if err != nil {
			return err
		}
		if err := client.ChangePassword(context.Background(), current, next); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Password changed.")
		return nil
	}),
}

func promptLine(cmd *cobra.Command, in *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := in.ReadString('\n')
	value := strings.TrimRight(line, "\r\n")
	if value == "" {
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", strings.ToLower(strings.TrimSuffix(prompt, ": ")), err)
		}
		return "", fmt.Errorf("%s must not be empty", strings.ToLower(strings.TrimSuffix(prompt, ": ")))
	}
	return value, nil
}

func init() {
	signinCmd.Flags().StringVar(&signinPassword, "password", "", "Password (prefer TASKDESK_PASSWORD or stdin)")
	passwdCmd.Flags().StringVar(&passwdCurrent, "current", "", "Current password")
	passwdCmd.Flags().StringVar(&passwdNew, "new", "", "New password (at least 8 characters)")
	rootCmd.AddCommand(signinCmd, signoutCmd, whoamiCmd, passwdCmd)
}
