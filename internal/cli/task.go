package cli

import (
	"fmt"
	"strings"

	"github.com/imkarma/tasktree/internal/outline"
	"github.com/imkarma/tasktree/internal/store"
	"github.com/spf13/cobra"
)

var (
	addParent string
	addStatus string
	addMemo   string

	editName   string
	editStatus string
	editMemo   string

	rmYes bool
)

var addCmd = &cobra.Command{
	Use:   "add [name...]",
	Short: "Add a task",
	Long:  "Adds a task at the top level, or under --parent. A task added without a name gets the default name.",
	RunE:  runAdd,
}

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var editCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Change a task's name, status or memo",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

var doneCmd = &cobra.Command{
	Use:   "done [id]",
	Short: "Mark a task as completed",
	Args:  cobra.ExactArgs(1),
	RunE:  runDone,
}

var rmCmd = &cobra.Command{
	Use:     "rm [id]",
	Aliases: []string{"delete"},
	Short:   "Delete a task and all of its subtasks",
	Args:    cobra.ExactArgs(1),
	RunE:    runRm,
}

func init() {
	addCmd.Flags().StringVarP(&addParent, "parent", "p", "", "Parent task ID (or unique prefix)")
	addCmd.Flags().StringVarP(&addStatus, "status", "s", "", "Initial status: not_started, in_progress, completed")
	addCmd.Flags().StringVarP(&addMemo, "memo", "m", "", "Memo text")

	editCmd.Flags().StringVarP(&editName, "name", "n", "", "New name")
	editCmd.Flags().StringVarP(&editStatus, "status", "s", "", "New status: not_started, in_progress, completed")
	editCmd.Flags().StringVarP(&editMemo, "memo", "m", "", "New memo (replaces the old one)")

	rmCmd.Flags().BoolVarP(&rmYes, "yes", "y", false, "Do not ask for confirmation")
}

func runAdd(cmd *cobra.Command, args []string) error {
	s, path, err := openDocument()
	if err != nil {
		return err
	}

	var parentID *string
	if addParent != "" {
		id, err := resolveID(s, addParent)
		if err != nil {
			return err
		}
		parentID = &id
	}

	var upd store.Update
	if addStatus != "" {
		st, err := store.ParseStatus(addStatus)
		if err != nil {
			return err
		}
		upd.Status = &st
	}
	if addMemo != "" {
		upd.Memo = &addMemo
	}

	task, err := s.CreateTask(parentID, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if upd.Status != nil || upd.Memo != nil {
		if task, err = s.UpdateTask(task.ID, upd); err != nil {
			return err
		}
	}

	if err := saveDocument(path, s); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created task %s: %s\n", task.ID, task.Name)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	s, _, err := openDocument()
	if err != nil {
		return err
	}

	id, err := resolveID(s, args[0])
	if err != nil {
		return err
	}
	task, err := s.GetTask(id)
	if err != nil {
		return err
	}
	path, err := s.Path(id)
	if err != nil {
		return err
	}
	kids, err := s.ListChildren(id)
	if err != nil {
		return err
	}

	names := make([]string, len(path))
	for i, t := range path {
		names[i] = t.Name
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", styleBold.Render("Task "+task.ID))
	fmt.Fprintf(out, "  Name:     %s\n", task.Name)
	fmt.Fprintf(out, "  Status:   %s\n", statusStyle(task.Status).Render(outline.Glyph(task.Status)+" "+task.Status.Label()))
	fmt.Fprintf(out, "  Path:     %s\n", strings.Join(names, " › "))
	if task.IsRoot() {
		fmt.Fprintf(out, "  Parent:   %s\n", styleDim.Render("(top level)"))
	} else if _, err := s.GetTask(task.Parent()); err != nil {
		fmt.Fprintf(out, "  Parent:   %s %s\n", task.Parent(), styleWarn.Render("(missing)"))
	} else {
		fmt.Fprintf(out, "  Parent:   %s\n", task.Parent())
	}
	fmt.Fprintf(out, "  Subtasks: %d\n", len(kids))
	fmt.Fprintf(out, "  Created:  %s\n", task.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "  Updated:  %s\n", task.UpdatedAt.Local().Format("2006-01-02 15:04"))

	if memo := strings.TrimRight(task.Memo, "\n"); memo != "" {
		fmt.Fprintln(out, "\n  Memo:")
		for _, line := range strings.Split(memo, "\n") {
			fmt.Fprintf(out, "    %s\n", line)
		}
	}
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	var upd store.Update
	if flags.Changed("name") {
		upd.Name = &editName
	}
	if flags.Changed("status") {
		st, err := store.ParseStatus(editStatus)
		if err != nil {
			return err
		}
		upd.Status = &st
	}
	if flags.Changed("memo") {
		upd.Memo = &editMemo
	}
	if upd.Name == nil && upd.Status == nil && upd.Memo == nil {
		return fmt.Errorf("nothing to change: pass --name, --status or --memo")
	}

	return updateTask(cmd, args[0], upd)
}

func runDone(cmd *cobra.Command, args []string) error {
	return updateTask(cmd, args[0], store.Update{Status: store.StatusPtr(store.StatusCompleted)})
}

func updateTask(cmd *cobra.Command, ref string, upd store.Update) error {
	s, path, err := openDocument()
	if err != nil {
		return err
	}

	id, err := resolveID(s, ref)
	if err != nil {
		return err
	}
	task, err := s.UpdateTask(id, upd)
	if err != nil {
		return err
	}

	if err := saveDocument(path, s); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s: %s [%s]\n", outline.ShortID(task.ID), task.Name, task.Status.Label())
	return nil
}

func runRm(cmd *cobra.Command, args []string) error {
	s, path, err := openDocument()
	if err != nil {
		return err
	}

	id, err := resolveID(s, args[0])
	if err != nil {
		return err
	}
	task, err := s.GetTask(id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !rmYes {
		prompt := fmt.Sprintf("Delete %q? [y/N] ", task.Name)
		if s.HasChildren(id) {
			n := 0
			if err := outline.WalkFrom(s, id, func(outline.Node) { n++ }); err != nil {
				return err
			}
			prompt = fmt.Sprintf("Delete %q and its %d subtasks? [y/N] ", task.Name, n-1)
		}
		ok, err := confirm(cmd, prompt)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	removed, err := s.DeleteTask(id)
	if err != nil {
		return err
	}
	if err := saveDocument(path, s); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted %d task(s)\n", len(removed))
	return nil
}
