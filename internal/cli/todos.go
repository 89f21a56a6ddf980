package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

var todoListUser string

var todoCmd = &cobra.Command{
	Use:     "todo",
	Aliases: []string{"todos"},
	Short:   "Keep a personal to-do list",
	Long: `A private checklist kept alongside your assigned tasks. To-do items
take no part in the approval workflow and only you can change them.`,
}

var todoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your to-do items",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		client, session, err := sessionClient()
		if err != nil {
			return err
		}
		owner := session.Employee.ID
		if todoListUser != "" {
			if owner, err = resolveEmployeeID(ctx, client, todoListUser); err != nil {
				return err
			}
		}
		todos, err := client.ListTodos(ctx, owner)
		if err != nil {
			return err
		}
		if wantJSON() {
			if todos == nil {
				todos = []models.Todo{}
			}
			return printJSON(cmd, todos)
		}

		w := cmd.OutOrStdout()
		if len(todos) == 0 {
			fmt.Fprintln(w, "Nothing to do.")
			return nil
		}
		open := 0
		for _, t := range todos {
			mark := " "
			if t.Completed {
				mark = "x"
			} else {
				open++
			}
			fmt.Fprintf(w, "  [%s] %-36s %s\n", mark, t.ID, t.Title)
		}
		fmt.Fprintf(w, "%d open, %d done\n", open, len(todos)-open)
		return nil
	}),
}

var todoAddCmd = &cobra.Command{
	Use:   "add <title...>",
	Short: "Add a to-do item",
	Args:  cobra.MinimumNArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		client, _, err := sessionClient()
		if err != nil {
			return err
		}
		todo, err := client.CreateTodo(context.Background(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return reportTodo(cmd, todo, "Added %s: %s", todo.ID, todo.Title)
	}),
}

var todoRenameCmd = &cobra.Command{
	Use:   "rename <todo-id> <title...>",
	Short: "Rename a to-do item",
	Args:  cobra.MinimumNArgs(2),
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		title := strings.Join(args[1:], " ")
		todo, err := patchTodo(args[0], models.TodoPatch{Title: &title})
		if err != nil {
			return err
		}
		return reportTodo(cmd, todo, "Renamed %s: %s", todo.ID, todo.Title)
	}),
}

var todoDoneCmd = &cobra.Command{
	Use:   "done <todo-id>",
	Short: "Tick off a to-do item",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		return toggleTodo(cmd, args[0], true)
	}),
}

var todoReopenCmd = &cobra.Command{
	Use:   "reopen <todo-id>",
	Short: "Mark a to-do item as not done",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		return toggleTodo(cmd, args[0], false)
	}),
}

var todoRemoveCmd = &cobra.Command{
	Use:     "rm <todo-id>",
	Aliases: []string{"delete"},
	Short:   "Remove a to-do item",
	Args:    cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string) error {
		client, _, err := sessionClient()
		if err != nil {
			return err
		}
		if err := client.DeleteTodo(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return nil
	}),
}

func toggleTodo(cmd *cobra.Command, id string, completed bool) error {
	todo, err := patchTodo(id, models.TodoPatch{Completed: &completed})
	if err != nil {
		return err
	}
	state := "open"
	if todo.Completed {
		state = "done"
	}
	return reportTodo(cmd, todo, "%s is %s: %s", todo.ID, state, todo.Title)
}

func patchTodo(id string, patch models.TodoPatch) (*models.Todo, error) {
	client, _, err := sessionClient()
	if err != nil {
		return nil, err
	}
	return client.UpdateTodo(context.Background(), id, patch)
}

func reportTodo(cmd *cobra.Command, todo *models.Todo, format string, a ...any) error {
	if wantJSON() {
		return printJSON(cmd, todo)
	}
	fmt.Fprintf(cmd.OutOrStdout(), format+"\n", a...)
	return nil
}

func init() {
	todoListCmd.Flags().StringVar(&todoListUser, "user", "", "List another employee's items (administrators)")
	todoCmd.AddCommand(todoListCmd, todoAddCmd, todoRenameCmd, todoDoneCmd, todoReopenCmd, todoRemoveCmd)
	rootCmd.AddCommand(todoCmd)
}
