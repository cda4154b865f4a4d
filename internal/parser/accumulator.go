package parser

import (
	"fmt"
	"strings"

	"github.com/kursadbilgin/textqueue/internal/domain"
	"github.com/kursadbilgin/textqueue/internal/phone"
	"github.com/kursadbilgin/textqueue/internal/priority"
	"go.uber.org/zap"
)

const (
	// SentinelMarker in the first column closes the current group.
	SentinelMarker = "------"

	// DigestMarker opens every weekly text; seeing it twice means a missing separator.
	DigestMarker = "Commodity Market Update"

	metadataColumns = 4
)

// Stats counts what happened to the rows and groups of one run.
type Stats struct {
	Rows            int
	Groups          int
	Queued          int
	DroppedNoPhone  int
	SeparatorErrors int
}

// Result is the output of a full run over one export.
type Result struct {
	Batch    []domain.Message
	Errors   []string
	Stats    Stats
	Checksum string

	// Unterminated is the number of trailing rows left without a closing sentinel.
	Unterminated int
}

type metadata struct {
	phoneRaw      string
	externalID    string
	recipientType string
}

// group is the open record: everything seen since the last sentinel.
type group struct {
	rows     int
	lines    []string
	meta     metadata
	captured bool
}

// capture reads metadata from row until a row with a phone cell is seen.
// Rows with a blank phone overwrite each other and leave the group open for capture.
func (g *group) capture(row []string) bool {
	if g.captured || len(row) < metadataColumns {
		return false
	}
	g.meta = metadata{
		phoneRaw:      row[1],
		externalID:    row[2],
		recipientType: row[3],
	}
	g.captured = strings.TrimSpace(row[1]) != ""
	return g.captured
}

func (g *group) text() string {
	return strings.TrimPrefix(strings.Join(g.lines, ""), "\n")
}

// Accumulator folds export rows into finalized messages. It holds at most one
// open group and is reset after every finalize or discard.
type Accumulator struct {
	fromNumber string
	normalizer *phone.Normalizer
	logger     *zap.Logger

	open   group
	result Result
}

func NewAccumulator(fromNumber string, normalizer *phone.Normalizer, logger *zap.Logger) *Accumulator {
	if normalizer == nil {
		normalizer = phone.NewNormalizer(phone.Config{})
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Accumulator{
		fromNumber: fromNumber,
		normalizer: normalizer,
		logger:     logger,
	}
}

// Feed consumes one row of the export.
func (a *Accumulator) Feed(row []string) {
	a.result.Stats.Rows++
	if len(row) == 0 {
		return
	}

	a.open.rows++
	a.open.capture(row)

	if !strings.Contains(row[0], SentinelMarker) {
		a.open.lines = append(a.open.lines, row[0]+"\n")
		return
	}

	a.finalize()
}

func (a *Accumulator) finalize() {
	defer a.reset()

	a.result.Stats.Groups++
	text := a.open.text()
	raw := a.open.meta.phoneRaw

	normalized, ok := a.normalizer.Normalize(raw)
	if !ok {
		a.result.Stats.DroppedNoPhone++
		a.logger.Debug("group dropped: no usable phone",
			zap.String("externalId", strings.TrimSpace(a.open.meta.externalID)),
		)
		return
	}
	normalized = a.normalizer.Override(normalized)

	if strings.Count(text, DigestMarker) > 1 {
		a.result.Stats.SeparatorErrors++
		a.result.Errors = append(a.result.Errors,
			fmt.Sprintf("Separator missing, multiple texts in one for %s", raw),
		)
		return
	}

	a.result.Batch = append(a.result.Batch, domain.Message{
		FromNumber:   a.fromNumber,
		ToNumbers:    []string{normalized},
		Text:         text,
		Status:       domain.StatusQueued,
		ExternalID:   strings.TrimSpace(a.open.meta.externalID),
		ExternalType: strings.TrimSpace(a.open.meta.recipientType),
		Priority:     priority.Classify(a.open.meta.recipientType, text),
	})
	a.result.Stats.Queued++
}

func (a *Accumulator) reset() {
	a.open = group{}
}

// Finish ends the run. A trailing group without a closing sentinel is not
// emitted; its row count is reported in Result.Unterminated.
func (a *Accumulator) Finish() *Result {
	if a.open.rows > 0 {
		a.result.Unterminated = a.open.rows
		a.logger.Warn("trailing group has no closing separator, dropped",
			zap.Int("rows", a.open.rows),
			zap.String("phone", a.open.meta.phoneRaw),
		)
		a.reset()
	}

	out := a.result
	a.result = Result{}
	return &out
}
