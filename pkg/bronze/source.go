package bronze

import (
	"strings"

	"github.com/bruin-data/medallion/pkg/frame"
)

// Input is a raw dataset as handed to a normalizer: either a single table or one table per
// ingested file.
type Input struct {
	Table      *frame.Table
	Partitions frame.Partitions
}

func TableInput(t *frame.Table) Input {
	return Input{Table: t}
}

func PartitionedInput(p frame.Partitions) Input {
	return Input{Partitions: p}
}

// concatWithSource flattens the input into one table. Partitions are tagged with their label in
// _source_file and empty partitions are skipped; a single table gets an empty _source_file
// column when it has none.
func concatWithSource(in Input) *frame.Table {
	if in.Partitions != nil {
		parts := make([]*frame.Table, 0, len(in.Partitions))
		for _, label := range in.Partitions.Labels() {
			p := in.Partitions[label]
			if p.Empty() {
				continue
			}
			tagged := p.Clone()
			tagged.Fill(ColSourceFile, label)
			parts = append(parts, tagged)
		}
		if len(parts) == 0 {
			return frame.New()
		}
		return frame.Concat(parts...)
	}

	if in.Table.Empty() {
		return frame.New()
	}

	out := in.Table.Clone()
	if !out.HasColumn(ColSourceFile) {
		out.Fill(ColSourceFile, nil)
	}
	return out
}

// EmptySalesLog lists the raw sales files that contain no rows, one per line. It returns "" when
// the check is disabled or every file has rows.
func EmptySalesLog(raw frame.Partitions, enabled bool) string {
	if !enabled {
		return ""
	}

	empty := make([]string, 0)
	for _, label := range raw.Labels() {
		if raw[label].Empty() {
			empty = append(empty, label)
		}
	}
	if len(empty) == 0 {
		return ""
	}
	return strings.Join(empty, "\n") + "\n"
}

// JoinLogs concatenates several text logs into one, skipping empty ones.
func JoinLogs(logs ...string) string {
	var b strings.Builder
	for _, l := range logs {
		b.WriteString(l)
	}
	return b.String()
}
