package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/keepalive9s/taobao/internal/domain"
)

// timeLayout — формат --start / --end.
const timeLayout = "2006-01-02 15:04"

var taskHeaders = []string{"ID", "OWNER", "DESCRIPTION", "SOURCE", "TOTAL", "START", "END", "STATUS"}

func taskRow(t *domain.Task) []string {
	return []string{
		t.ID.String(),
		t.Owner,
		t.Description,
		string(t.Source),
		strconv.Itoa(t.TotalCount),
		formatTime(t.StartTime),
		formatTime(t.Deadline()),
		t.Status,
	}
}

// NewTaskCmd создаёт группу команд для управления task'ами.
func NewTaskCmd(backendFn func() Backend, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage shelf cycling tasks",
	}

	cmd.AddCommand(
		newTaskCreateCmd(backendFn, outputFn),
		newTaskListCmd(backendFn, outputFn),
		newTaskShowCmd(backendFn, outputFn),
		newTaskStartCmd(backendFn, outputFn),
		newTaskStopCmd(backendFn, outputFn),
		newTaskDeleteCmd(backendFn, outputFn),
	)

	return cmd
}

func newTaskCreateCmd(backendFn func() Backend, outputFn func() *Output) *cobra.Command {
	var owner, description, source, start, end string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a waiting task",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := domain.ParseItemState(source)
			if err != nil {
				return err
			}

			startAt := time.Now()
			if start != "" {
				if startAt, err = time.ParseInLocation(timeLayout, start, time.Local); err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
			}
			endAt, err := time.ParseInLocation(timeLayout, end, time.Local)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
			if !endAt.After(startAt) {
				return fmt.Errorf("--end must be after --start")
			}

			task := domain.NewTask(owner, description, state, startAt, endAt)
			if err := backendFn().CreateTask(cmd.Context(), task); err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Task created: %s", task.ID))
			return out.Print(taskHeaders, [][]string{taskRow(task)}, task)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Seller nick")
	cmd.Flags().StringVar(&description, "description", "shelf cycling", "Task description")
	cmd.Flags().StringVar(&source, "source", string(domain.ItemListed), "Items to cycle: onsale or instock")
	cmd.Flags().StringVar(&start, "start", "", "Start time, "+timeLayout+" (default: now)")
	cmd.Flags().StringVar(&end, "end", "", "End time, "+timeLayout)
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func newTaskListCmd(backendFn func() Backend, outputFn func() *Output) *cobra.Command {
	var owner string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks of a seller",
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := backendFn().ListTasks(cmd.Context(), owner, limit)
			if err != nil {
				return err
			}

			rows := make([][]string, len(tasks))
			for i := range tasks {
				rows[i] = taskRow(&tasks[i])
			}
			return outputFn().Print(taskHeaders, rows, tasks)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Seller nick")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of results")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func newTaskShowCmd(backendFn func() Backend, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show task details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid task id: %w", err)
			}

			task, err := backendFn().GetTask(cmd.Context(), id)
			if err != nil {
				return err
			}
			return outputFn().Print(taskHeaders, [][]string{taskRow(task)}, task)
		},
	}
}

func newTaskStartCmd(backendFn func() Backend, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "start ID",
		Short: "Queue a waiting task now, ignoring its start time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid task id: %w", err)
			}

			task, err := backendFn().StartTask(cmd.Context(), id)
			if err != nil {
				return err
			}

			outputFn().Success(fmt.Sprintf("Task queued: %s", task.ID))
			return nil
		},
	}
}

func newTaskStopCmd(backendFn func() Backend, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "stop ID",
		Short: "Stop a running task; items are restored before it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid task id: %w", err)
			}

			task, err := backendFn().StopTask(cmd.Context(), id)
			if err != nil {
				return err
			}

			outputFn().Success(fmt.Sprintf("Task stopping: %s (%s)", task.ID, task.Status))
			return nil
		},
	}
}

func newTaskDeleteCmd(backendFn func() Backend, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a task that is not running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid task id: %w", err)
			}

			if err := backendFn().DeleteTask(cmd.Context(), id); err != nil {
				return err
			}

			outputFn().Success(fmt.Sprintf("Task deleted: %s", id))
			return nil
		},
	}
}
