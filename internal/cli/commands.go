package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/internal/controller"
	"github.com/fastygo/todo/internal/tui"
)

func newListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List todos, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := a.run(func(c *controller.Controller) { c.Start() })
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(view.Todos)
			}
			for _, t := range view.Todos {
				a.printTodo(t)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			view, err := a.run(func(c *controller.Controller) { c.AddTask(title) })
			if err != nil {
				return err
			}
			if len(view.Todos) > 0 {
				a.printTodo(view.Todos[0])
			}
			return nil
		},
	}
}

func newEditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <title...>",
		Short: "Rename a todo",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			title := strings.Join(args[1:], " ")
			view, err := a.run(func(c *controller.Controller) {
				c.Start()
				c.Wait()
				c.UpdateTask(id, title)
			})
			if err != nil {
				return err
			}
			return a.printByID(view, id)
		},
	}
}

func newToggleCmd(a *app) *cobra.Command {
	var done, undone bool
	cmd := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a todo's completion, or set it with --done/--undone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if done && undone {
				return errors.New("--done and --undone are mutually exclusive")
			}

			view, err := a.run(func(c *controller.Controller) {
				c.Start()
				c.Wait()
				if done || undone {
					c.ToggleTask(id, done)
					return
				}
				for _, t := range c.Snapshot().Todos {
					if t.ID == id {
						c.ToggleTask(id, !t.Completed)
						return
					}
				}
			})
			if err != nil {
				return err
			}
			return a.printByID(view, id)
		},
	}
	cmd.Flags().BoolVar(&done, "done", false, "mark as completed")
	cmd.Flags().BoolVar(&undone, "undone", false, "mark as not completed")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a todo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, err = a.run(func(c *controller.Controller) { c.DeleteTask(id) })
			return err
		},
	}
}

func newTUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive todo list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.controller()
			defer c.Close()
			c.Start()
			return tui.Run(cmd.Context(), c)
		},
	}
}

// run drives a fresh controller through issue, waits for every operation to
// settle and reports the last failure.
func (a *app) run(issue func(c *controller.Controller)) (controller.View, error) {
	c := a.controller()
	defer c.Close()

	issue(c)
	c.Wait()

	view := c.Snapshot()
	if view.LastError != "" {
		return view, errors.New(view.LastError)
	}
	return view, nil
}

func (a *app) printTodo(t domain.Todo) {
	box := "[ ]"
	if t.Completed {
		box = "[x]"
	}
	_, _ = fmt.Fprintf(a.stdout, "%d\t%s %s\n", t.ID, box, t.Title)
}

func (a *app) printByID(view controller.View, id int64) error {
	for _, t := range view.Todos {
		if t.ID == id {
			a.printTodo(t)
			return nil
		}
	}
	return fmt.Errorf("todo %d not found", id)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
