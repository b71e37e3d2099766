// Package seqset builds compact IMAP sequence-set strings from a list
// of UIDs, e.g. [1,3,4,5,6,12] -> "1,3:6,12", splitting into multiple
// pieces when a single piece would exceed the 1000-character line-length
// cap or a caller-supplied UID count cap (COPY uses 200).
package seqset

import (
	"sort"
	"strconv"
	"strings"
)

// MaxPieceLen is the hard cap on the length of a single comma-separated
// sequence-set piece, keeping any one IMAP command line within a sane
// size regardless of server line-length limits.
const MaxPieceLen = 1000

// Build compacts uids into one or more sequence-set strings. uids need
// not be sorted or deduplicated. countCap, if > 0, additionally bounds
// the number of UIDs folded into a single piece (a run "N:M" counts as
// M-N+1 UIDs toward the cap).
func Build(uids []uint32, countCap int) []string {
	if len(uids) == 0 {
		return nil
	}
	runs := toRuns(uids)

	var pieces []string
	var b strings.Builder
	count := 0

	flush := func() {
		if b.Len() > 0 {
			pieces = append(pieces, b.String())
			b.Reset()
			count = 0
		}
	}

	for _, r := range runs {
		for _, sub := range r.splitToCap(countCap) {
			piece := sub.String()
			runCount := int(sub.hi-sub.lo) + 1

			wouldExceedLen := b.Len() > 0 && b.Len()+1+len(piece) > MaxPieceLen
			wouldExceedCount := countCap > 0 && count+runCount > countCap
			if wouldExceedLen || wouldExceedCount {
				flush()
			}

			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(piece)
			count += runCount
		}
	}
	flush()
	return pieces
}

// Count returns the number of UIDs a single sequence-set piece denotes,
// used by callers reconstructing progress totals from a produced piece.
func Count(piece string) int {
	n := 0
	for _, part := range strings.Split(piece, ",") {
		if part == "" {
			continue
		}
		lo, hi, ok := strings.Cut(part, ":")
		if !ok {
			n++
			continue
		}
		loN, err1 := strconv.ParseUint(lo, 10, 32)
		hiN, err2 := strconv.ParseUint(hi, 10, 32)
		if err1 != nil || err2 != nil || hiN < loN {
			continue
		}
		n += int(hiN-loN) + 1
	}
	return n
}

type run struct {
	lo, hi uint32
}

func (r run) String() string {
	if r.lo == r.hi {
		return strconv.FormatUint(uint64(r.lo), 10)
	}
	return strconv.FormatUint(uint64(r.lo), 10) + ":" + strconv.FormatUint(uint64(r.hi), 10)
}

// splitToCap chops r into countCap-sized sub-runs when r alone spans more
// than countCap UIDs, so Build never has to fold more than countCap UIDs
// from a single run into one piece. countCap <= 0 means no cap.
func (r run) splitToCap(countCap int) []run {
	total := int(r.hi-r.lo) + 1
	if countCap <= 0 || total <= countCap {
		return []run{r}
	}
	subs := make([]run, 0, (total+countCap-1)/countCap)
	for lo := r.lo; ; {
		hi := lo + uint32(countCap) - 1
		if hi >= r.hi {
			subs = append(subs, run{lo: lo, hi: r.hi})
			break
		}
		subs = append(subs, run{lo: lo, hi: hi})
		lo = hi + 1
	}
	return subs
}

// toRuns sorts and deduplicates uids, then folds consecutive values into
// runs so e.g. [3,4,5,1] becomes [{1,1},{3,5}].
func toRuns(uids []uint32) []run {
	sorted := append([]uint32(nil), uids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var runs []run
	for _, u := range sorted {
		n := len(runs)
		switch {
		case n > 0 && runs[n-1].hi == u:
			// duplicate, skip
		case n > 0 && runs[n-1].hi+1 == u:
			runs[n-1].hi = u
		default:
			runs = append(runs, run{lo: u, hi: u})
		}
	}
	return runs
}
