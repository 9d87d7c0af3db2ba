// Package notifications fetches GitHub notifications across all pages of the
// /notifications endpoint and aggregates them by reason code.
//
// The Fetcher is a lazy, non-restartable sequence over every notification in
// the paginated result, shaped like bufio.Scanner:
//
//	f := notifications.NewFetcher(apiClient, "https://api.github.com")
//	for f.Scan(ctx) {
//		n := f.Notification()
//		// ...
//	}
//	if err := f.Err(); err != nil {
//		// the walk failed; nothing after the failure was produced
//	}
//
// Internally the fetcher is a three-state machine:
//
//   - Draining: records decoded from the current page are handed out one by
//     one from an in-memory buffer.
//   - Fetching: the buffer is empty and a cursor URL is known; one GET is
//     issued, the body is decoded, and the Link response header is parsed to
//     find the rel="next" cursor for the following page.
//   - Terminal: no cursor remains (or an error occurred); Scan reports false
//     forever and no further requests are issued.
//
// Aggregate folds the sequence into a Tally of reason code counts plus a
// synthetic "total" key. The aggregation is open: unknown reason codes are
// counted, not rejected. Project applies the closed, documented reason list
// at the presentation boundary, zero-filling codes that were never observed.
package notifications
