package notifications

import "context"

// TotalKey is the synthetic tally key summing all observed records.
const TotalKey = "total"

// Tally maps a notification reason code to its count, plus the synthetic
// "total" key. It is a per-cycle snapshot, never reused across cycles.
type Tally map[string]int

// KnownReasons is the closed list of reason codes documented for the GitHub
// notifications API. It is applied only at the presentation boundary (see
// Project); aggregation itself accepts any code.
var KnownReasons = []string{
	"assign",
	"author",
	"comment",
	"invitation",
	"manual",
	"mention",
	"review_requested",
	"security_alert",
	"state_change",
	"subscribed",
	"team_mention",
}

// Aggregate drains the fetcher and folds every notification into a fresh
// tally. If the underlying walk fails, the partial tally is discarded and
// only the error is returned.
func Aggregate(ctx context.Context, f *Fetcher) (Tally, error) {
	tally := Tally{TotalKey: 0}

	for f.Scan(ctx) {
		tally[f.Notification().Reason]++
		tally[TotalKey]++
	}
	if err := f.Err(); err != nil {
		return nil, err
	}

	return tally, nil
}

// Project maps an open tally onto the fixed field set consumed by display
// templates: "total" plus every known reason code, zero-filled when never
// observed. Codes outside the known list are dropped here, not during
// aggregation.
func Project(tally Tally) map[string]int {
	values := map[string]int{
		TotalKey: tally[TotalKey],
	}
	for _, reason := range KnownReasons {
		values[reason] = tally[reason]
	}
	return values
}
