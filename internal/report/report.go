package report

import (
	"fmt"
	"io"

	"github.com/kursadbilgin/textqueue/internal/parser"
)

// Report is the caller-facing summary of one run.
type Report struct {
	Queued       int
	Errors       []string
	Unterminated int
	Unpublished  int
	DryRun       bool
}

func Build(result *parser.Result) Report {
	if result == nil {
		return Report{}
	}
	return Report{
		Queued:       len(result.Batch),
		Errors:       append([]string(nil), result.Errors...),
		Unterminated: result.Unterminated,
	}
}

// Empty reports the nothing-to-do case; the batch must not be submitted.
func (r Report) Empty() bool {
	return r.Queued == 0
}

func (r Report) Render(w io.Writer) error {
	switch {
	case r.Empty():
		if _, err := fmt.Fprintln(w, "No messages to queue."); err != nil {
			return err
		}
	case r.DryRun:
		if _, err := fmt.Fprintf(w, "Would queue %d messages (dry run).\n", r.Queued); err != nil {
			return err
		}
	default:
		if _, err := fmt.Fprintf(w, "Queued %d messages.\n", r.Queued); err != nil {
			return err
		}
	}

	if len(r.Errors) > 0 {
		if _, err := fmt.Fprintln(w, "Errors encountered:"); err != nil {
			return err
		}
		for _, e := range r.Errors {
			if _, err := fmt.Fprintf(w, "  - %s\n", e); err != nil {
				return err
			}
		}
	}

	if r.Unterminated > 0 {
		if _, err := fmt.Fprintf(w, "Warning: last %d row(s) had no closing separator and were not queued.\n", r.Unterminated); err != nil {
			return err
		}
	}

	if r.Unpublished > 0 {
		if _, err := fmt.Fprintf(w, "Warning: %d stored message(s) were not announced on the work queue.\n", r.Unpublished); err != nil {
			return err
		}
	}

	return nil
}
