package database

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/nao1215/vulncrawl/internal/model"
)

// Fingerprint identifies a finding by page and rule so the same weakness
// can be matched across runs.
func Fingerprint(f model.Finding) string {
	d := xxhash.New()
	_, _ = d.WriteString(f.URL)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(f.Rule)
	return strconv.FormatUint(d.Sum64(), 16)
}

// RunDiff lists how the findings of one run differ from an earlier run.
type RunDiff struct {
	// BaseID is the earlier run.
	BaseID int64

	// TargetID is the later run.
	TargetID int64

	// New holds findings present in the target but not in the base.
	New []model.Finding

	// Resolved holds findings present in the base but gone from the target.
	Resolved []model.Finding

	// Unchanged is the number of findings present in both.
	Unchanged int
}

// CompareRuns matches the findings of two runs by fingerprint.
func (cdb *CrawlDB) CompareRuns(ctx context.Context, baseID, targetID int64) (*RunDiff, error) {
	base, err := cdb.GetRunFindings(ctx, baseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load base run: %w", err)
	}
	target, err := cdb.GetRunFindings(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load target run: %w", err)
	}

	baseSet := make(map[string]struct{}, len(base))
	for _, f := range base {
		baseSet[Fingerprint(f)] = struct{}{}
	}
	targetSet := make(map[string]struct{}, len(target))
	for _, f := range target {
		targetSet[Fingerprint(f)] = struct{}{}
	}

	diff := &RunDiff{
		BaseID:   baseID,
		TargetID: targetID,
		New:      make([]model.Finding, 0),
		Resolved: make([]model.Finding, 0),
	}
	for _, f := range target {
		if _, ok := baseSet[Fingerprint(f)]; ok {
			diff.Unchanged++
			continue
		}
		diff.New = append(diff.New, f)
	}
	for _, f := range base {
		if _, ok := targetSet[Fingerprint(f)]; !ok {
			diff.Resolved = append(diff.Resolved, f)
		}
	}
	return diff, nil
}
