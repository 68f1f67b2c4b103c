package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ksyq12/certnginx/internal/output"
)

var rollbackList bool

var rollbackCmd = &cobra.Command{
	Use:   "rollback [n]",
	Short: "Undo the most recent configuration change sets",
	Long: `Restore the files touched by the n most recent change sets,
newest first, then reload nginx. Defaults to one step.

Examples:
  certnginx rollback
  certnginx rollback 3
  certnginx rollback --list`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRollback,
}

func init() {
	rollbackCmd.Flags().BoolVar(&rollbackList, "list", false, "List checkpoints instead of rolling back")
	rootCmd.AddCommand(rollbackCmd)
}

func runRollback(cmd *cobra.Command, args []string) error {
	c, err := newSession()
	if err != nil {
		return err
	}
	defer c.Close()

	if rollbackList {
		infos, err := c.Checkpoints()
		if err != nil {
			return err
		}
		if jsonOutput {
			return output.JSON(infos)
		}
		if len(infos) == 0 {
			output.Info("No checkpoints")
			return nil
		}
		headers := []string{"N", "CREATED", "TITLE", "FILES"}
		rows := make([][]string, 0, len(infos))
		for _, info := range infos {
			rows = append(rows, []string{
				strconv.Itoa(info.Number),
				info.Created.Format("2006-01-02 15:04:05"),
				info.Title,
				strconv.Itoa(len(info.Files)),
			})
		}
		output.Table(headers, rows)
		return nil
	}

	n := 1
	if len(args) == 1 {
		n, err = strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid rollback count %q", args[0])
		}
	}

	if err := c.Rollback(n); err != nil {
		return err
	}
	return outputResult(CommandResult{
		Success: true,
		Action:  "rollback",
		Message: fmt.Sprintf("rolled back %d change set(s)", n),
	}, "Rolled back %d change set(s)", n)
}
