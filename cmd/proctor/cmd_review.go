package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"proctor/internal/format"
	"proctor/internal/policy"
)

var reviewFlags struct {
	queuePath string
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List items queued for human review",
	RunE:  runReview,
}

func init() {
	reviewCmd.Flags().StringVar(&reviewFlags.queuePath, "queue", "review_queue.csv", "Human-review queue CSV path")
}

func runReview(cmd *cobra.Command, _ []string) error {
	recs, err := policy.OpenReviewQueue(reviewFlags.queuePath).Read()
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("review queue is empty")
		return nil
	}

	tb := format.NewTable(format.ASCII)
	tb.Header("ID", "PROMPT TYPE", "ENDPOINT", "ERROR", "DETAIL", "QUEUED")
	tb.Columns(
		format.ColumnConfig{Number: 5, MaxWidth: 48},
	)
	for _, rec := range recs {
		tb.Row(rec.ID, rec.PromptType, rec.Endpoint, rec.ErrorType,
			format.Truncate(rec.ErrorInfo, 48),
			rec.Timestamp.Format(time.RFC3339))
	}
	fmt.Println(tb.String())
	fmt.Printf("%d item(s) awaiting review\n", len(recs))
	return nil
}
