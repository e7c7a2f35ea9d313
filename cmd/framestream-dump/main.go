package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"framestream-go/internal/ingest"
	"framestream-go/internal/output"
)

func main() {
	var (
		path  string
		limit int
	)

	root := &cobra.Command{
		Use:           "framestream-dump",
		Short:         "Print the records of a framestream recording",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				return fmt.Errorf("--path is required")
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open recording: %w", err)
			}
			defer f.Close()

			r, err := output.NewRawLogReader(f)
			if err != nil {
				return err
			}
			return dump(cmd.OutOrStdout(), r, limit)
		},
	}
	root.Flags().StringVar(&path, "path", "", "path to a .fsrec recording")
	root.Flags().IntVar(&limit, "limit", 10, "number of records to print, 0 prints all")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "framestream-dump: %v\n", err)
		os.Exit(1)
	}
}

func dump(w io.Writer, r *output.RawLogReader, limit int) error {
	counts := map[string]int{}
	total := 0
	for limit <= 0 || total < limit {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", total, err)
		}
		counts[rec.Stream]++

		line := fmt.Sprintf("record %d ts=%s stream=%s size=%d", total, rec.Time().Format(time.RFC3339Nano), rec.Stream, len(rec.Message))
		msg, err := ingest.Decode(rec.Message, rec.Time())
		if err != nil {
			line += fmt.Sprintf(" invalid: %v", err)
		} else {
			h := msg.Header
			line += fmt.Sprintf(" header=%s %dx%dx%d payload=%d", h.Type, h.Height, h.Width, h.Channels, len(msg.Payload))
		}
		fmt.Fprintln(w, line)
		total++
	}
	fmt.Fprintf(w, "summary: records=%d rgb=%d depth=%d\n", total, counts["RGB"], counts["DEPTH"])
	return nil
}
