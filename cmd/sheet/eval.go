package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Raniani-lab/enterpriise-sub000/packages/model"
)

var evalCmd = &cobra.Command{
	Use:   "eval <formula>",
	Short: "Evaluate one formula",
	Long:  `Evaluates a formula in an empty workbook and prints the displayed result. Async functions are awaited.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		m := model.New(append(cfg.ModelOptions(), model.WithLogger(logger))...)
		defer m.Close()

		content := args[0]
		if !strings.HasPrefix(content, "=") {
			content = "=" + content
		}
		update := model.UpdateCell{SheetID: model.DefaultSheetID, Content: &content}
		if format != "" {
			update.Format = &format
		}
		if result := m.Dispatch(update); !result.IsSuccess() {
			return fmt.Errorf("formula rejected: %s", result.Reason)
		}
		if err := waitIdle(m, timeout); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), m.CellText(model.DefaultSheetID, 0, 0))
		return nil
	},
}

// waitIdle polls until no async call is in flight
func waitIdle(m *model.Model, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for !m.IsIdle() {
		if time.Now().After(deadline) {
			return fmt.Errorf("evaluation still pending after %s", timeout)
		}
		m.Tick()
		time.Sleep(time.Millisecond)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().StringP("format", "f", "", "Number format of the result, such as 0.00 or yyyy-mm-dd")
	evalCmd.Flags().Duration("timeout", 5*time.Second, "How long to wait for async functions")
}
