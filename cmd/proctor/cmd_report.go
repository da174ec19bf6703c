package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"proctor/internal/format"
	"proctor/internal/report"
	"proctor/internal/store"
)

var reportFlags struct {
	dbPath   string
	runID    string
	markdown bool
	list     bool
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show pass rates from stored runs",
	RunE:  runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportFlags.dbPath, "db", store.DefaultDBPath, "Result store DB path")
	f.StringVar(&reportFlags.runID, "run", "", "Scope to one run ID (empty = all runs)")
	f.BoolVar(&reportFlags.markdown, "md", false, "Render Markdown instead of ASCII")
	f.BoolVar(&reportFlags.list, "list", false, "List stored runs instead of pass rates")
}

func runReport(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(reportFlags.dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	mode := format.ASCII
	if reportFlags.markdown {
		mode = format.Markdown
	}

	if reportFlags.list {
		runs, err := st.ListRuns()
		if err != nil {
			return err
		}
		tb := format.NewTable(mode)
		tb.Header("RUN", "BACKEND", "FALLBACK", "STARTED", "ENDED", "ITEMS")
		for _, r := range runs {
			tb.Row(r.ID, r.Backend, r.Fallback, r.StartedAt, r.EndedAt, r.Items)
		}
		fmt.Println(tb.String())
		return nil
	}

	rates, err := st.PassRates(reportFlags.runID)
	if err != nil {
		return err
	}
	if len(rates) == 0 {
		fmt.Println("no results stored")
		return nil
	}
	fmt.Println(report.PassRateTable(rates, mode))
	return nil
}
