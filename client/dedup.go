package client

import (
	"encoding/json"

	"github.com/mathonsunday/agentic-ui-lab-sub001/envelope"
	"github.com/mathonsunday/agentic-ui-lab-sub001/pkg/cache"
)

// deltaFilter suppresses STATE_DELTA operations that repeat the last
// operation applied to the same path. Retried deliveries replay patches;
// applying an identical patch twice is harmless for "replace" but not
// for "add" on arrays, so duplicates are dropped before they reach the
// handler.
//
// The filter is scoped to one connection and cleared on teardown.
type deltaFilter struct {
	seen cache.Cache[string]
}

func newDeltaFilter() *deltaFilter {
	return &deltaFilter{seen: cache.NewSimple[string]()}
}

// Filter returns the payload with duplicate operations removed and the
// number of suppressed operations. An operation is a duplicate when it
// is identical to the previous operation seen for its path.
func (f *deltaFilter) Filter(payload envelope.StateDeltaPayload) (envelope.StateDeltaPayload, int) {
	kept := make([]envelope.PatchOp, 0, len(payload.Operations))
	suppressed := 0

	for _, op := range payload.Operations {
		fingerprint, err := json.Marshal(op)
		if err != nil {
			// Unmarshalable ops cannot be fingerprinted; pass through
			kept = append(kept, op)
			continue
		}

		if prev, ok := f.seen.Get(op.Path); ok && prev == string(fingerprint) {
			suppressed++
			continue
		}

		_ = f.seen.Set(op.Path, string(fingerprint))
		kept = append(kept, op)
	}

	payload.Operations = kept
	return payload, suppressed
}

// Reset clears all remembered operations.
func (f *deltaFilter) Reset() {
	f.seen.Clear()
}

// Size returns the number of tracked paths.
func (f *deltaFilter) Size() int {
	return f.seen.Size()
}
