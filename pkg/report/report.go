// Package report renders the KnowledgeBase snapshot into the fixed text
// format of spec §6, adapted from the teacher's pkg/reporting/formatter.go
// generateTextReport buffer-building idiom.
package report

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jihwankim/cfgfuzz/pkg/knowledge"
)

// Render produces the report text for snap, in the fixed layout spec §6
// names exactly: a header, the must-be-consistent section sorted by key,
// the can-be-inconsistent section sorted by key, and a summary block.
func Render(snap knowledge.Snapshot) string {
	var buf strings.Builder

	buf.WriteString("###### Configuration Item Consistency Test Status Report\n")
	fmt.Fprintf(&buf, "Generated Time: %s\n", snap.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&buf, "Total Test Count: %d\n", snap.TotalRounds)

	consistentKeys := make([]string, 0, len(snap.ConsistentItems))
	for k := range snap.ConsistentItems {
		consistentKeys = append(consistentKeys, k)
	}
	sort.Strings(consistentKeys)

	fmt.Fprintf(&buf, "====== Must-be-consistent Configuration Items (%d items) ======\n", len(consistentKeys))
	for _, k := range consistentKeys {
		fmt.Fprintf(&buf, "- %s    [Failure Count: %d]\n", k, snap.ConsistentItems[k])
	}

	inconsistentKeys := append([]string{}, snap.InconsistentItems...)
	sort.Strings(inconsistentKeys)

	fmt.Fprintf(&buf, "====== Can-be-inconsistent Configuration Items (%d items) ======\n", len(inconsistentKeys))
	for _, k := range inconsistentKeys {
		fmt.Fprintf(&buf, "- %s\n", k)
	}

	buf.WriteString("------ Summary Statistics ------\n")
	fmt.Fprintf(&buf, "- Number of must-be-consistent items: %d\n", len(consistentKeys))
	fmt.Fprintf(&buf, "- Number of can-be-inconsistent items: %d\n", len(inconsistentKeys))
	fmt.Fprintf(&buf, "- Failure threshold setting: %d\n", snap.ConsistentThreshold)

	return buf.String()
}

// WriteFile renders snap and writes it to path, overwriting any prior
// report (the Reporter always writes the latest snapshot in full, not an
// append log).
func WriteFile(snap knowledge.Snapshot, path string) error {
	if err := os.WriteFile(path, []byte(Render(snap)), 0o644); err != nil {
		return fmt.Errorf("report: writing %q: %w", path, err)
	}
	return nil
}
