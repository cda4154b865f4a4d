package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/kursadbilgin/textqueue/internal/domain"
	"github.com/kursadbilgin/textqueue/internal/repository"
)

func parseStatusFilter(values []string) ([]domain.Status, error) {
	statuses := make([]domain.Status, 0, len(values))
	for _, v := range values {
		st, err := domain.ParseStatusFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid --status value: %w", err)
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

func printStatusCounts(w io.Writer, counts []repository.StatusCount) error {
	if len(counts) == 0 {
		_, err := fmt.Fprintln(w, "No messages stored.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tCOUNT")
	var total int64
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", c.Status, c.Count)
		total += c.Count
	}
	fmt.Fprintf(tw, "total\t%d\n", total)
	return tw.Flush()
}
