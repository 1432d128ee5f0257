package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Raniani-lab/enterpriise-sub000/packages/model"
	"github.com/Raniani-lab/enterpriise-sub000/packages/zone"
)

// script is a YAML list of commands in their tagged payload form, plus the
// ranges to print once they all ran
type script struct {
	Commands []map[string]any `yaml:"commands"`
	Print    []string         `yaml:"print"`
}

var runCmd = &cobra.Command{
	Use:   "run <script.yaml>",
	Short: "Dispatch the commands of a script",
	Long: `Loads a workbook (or starts from a blank one), dispatches every command of
the script in order, waits for async formulas and prints the result.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		workbook, _ := cmd.Flags().GetString("workbook")
		out, _ := cmd.Flags().GetString("out")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read script: %w", err)
		}
		var s script
		if err := yaml.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("failed to parse script: %w", err)
		}

		data := model.NewWorkbookData()
		if workbook != "" {
			doc, err := os.ReadFile(workbook)
			if err != nil {
				return fmt.Errorf("failed to read workbook: %w", err)
			}
			if data, err = model.Migrate(doc); err != nil {
				return err
			}
		}
		m, err := model.Load(data, append(cfg.ModelOptions(), model.WithLogger(logger))...)
		if err != nil {
			return err
		}
		defer m.Close()

		if err := runScript(m, s.Commands, cmd.ErrOrStderr()); err != nil {
			return err
		}
		if err := waitIdle(m, timeout); err != nil {
			return err
		}
		if err := printResult(cmd.OutOrStdout(), m, s.Print); err != nil {
			return err
		}
		if out != "" {
			doc, err := model.MarshalWorkbook(m.Export())
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, doc, 0o644); err != nil {
				return fmt.Errorf("failed to write workbook: %w", err)
			}
		}
		return nil
	},
}

// runScript dispatches every command. cancelled commands are reported and
// skipped, malformed ones stop the script.
func runScript(m *model.Model, commands []map[string]any, w io.Writer) error {
	for i, payload := range commands {
		c, err := model.DecodeCommand(payload)
		if err != nil {
			return fmt.Errorf("command %d: %w", i+1, err)
		}
		if result := m.Dispatch(c); !result.IsSuccess() {
			fmt.Fprintf(w, "command %d (%s) cancelled: %s\n", i+1, c.Type(), result.Reason)
		}
	}
	return nil
}

// printResult prints the requested ranges as tab separated rows, or every
// non empty cell when none is requested
func printResult(w io.Writer, m *model.Model, ranges []string) error {
	if len(ranges) == 0 {
		for _, sheet := range m.Export().Sheets {
			for _, xc := range sheet.SortedCellKeys() {
				col, row, err := zone.ToCartesian(xc)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s!%s\t%s\t%s\n", sheet.Name, xc, sheet.Cells[xc].Content, m.CellText(sheet.ID, col, row))
			}
		}
		return nil
	}
	for _, ref := range ranges {
		sheetID := m.Sheets()[0].ID
		xc := ref
		if i := strings.LastIndex(ref, "!"); i >= 0 {
			name := strings.Trim(ref[:i], "'")
			id, ok := m.SheetIDByName(name)
			if !ok {
				return fmt.Errorf("unknown sheet %q", name)
			}
			sheetID, xc = id, ref[i+1:]
		}
		rows, err := m.RangeFormattedValues(sheetID, xc)
		if err != nil {
			return err
		}
		for _, row := range rows {
			fmt.Fprintln(w, strings.Join(row, "\t"))
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("workbook", "", "Workbook JSON to start from, of any known version")
	runCmd.Flags().StringP("out", "o", "", "Write the resulting workbook JSON to this file")
	runCmd.Flags().Duration("timeout", 5*time.Second, "How long to wait for async functions")
}
