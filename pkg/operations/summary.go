/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package operations

import (
	"fmt"
	"strings"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/pipeline"
)

// Summary is what a driver returns to its caller (cmd/) once every
// task across every class has drained: one pipeline.Stats per work
// class, gathered rather than merged so a caller can still tell a
// slow git fetch apart from a registry-index refresh.
type Summary struct {
	Indices pipeline.Stats
	Crates  pipeline.Stats
	Gits    pipeline.Stats

	Failures []*pipeline.ItemError
}

// HasFailures reports whether any per-artifact failure was recorded
// across any class — the signal cmd/ maps onto a non-zero exit code.
func (s *Summary) HasFailures() bool {
	return len(s.Failures) > 0
}

func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "indices: %d ok, %d failed\n", s.Indices.Succeeded, s.Indices.Failed)
	fmt.Fprintf(&b, "crates:  %d ok, %d failed, %d bytes\n", s.Crates.Succeeded, s.Crates.Failed, s.Crates.Bytes)
	fmt.Fprintf(&b, "gits:    %d ok, %d failed, %d bytes\n", s.Gits.Succeeded, s.Gits.Failed, s.Gits.Bytes)
	for _, e := range s.Failures {
		fmt.Fprintf(&b, "  FAILED %s: %v\n", e.Key, e.Err)
	}
	return b.String()
}
