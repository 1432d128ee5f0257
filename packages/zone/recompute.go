package zone

import (
	"sort"
)

// interval is an inclusive run of rows inside one column
type interval struct {
	start int
	end   int
}

// RecomputeZones returns the minimal list of rectangles, in A1 notation,
// that exactly covers the cells of keep minus the cells of remove. invalid
// references are ignored.
func RecomputeZones(keep []string, remove []string) []string {
	kept := bucketByColumn(keep)
	removed := bucketByColumn(remove)

	columns := make([]int, 0, len(kept))
	runsByColumn := make(map[int][]interval, len(kept))
	for col, intervals := range kept {
		runs := subtract(mergeIntervals(intervals), mergeIntervals(removed[col]))
		if len(runs) == 0 {
			continue
		}
		runsByColumn[col] = runs
		columns = append(columns, col)
	}
	sort.Ints(columns)

	var result []Zone
	// active rectangles being widened, keyed by their row run
	active := make(map[interval]int)
	prevCol := -2
	for _, col := range columns {
		runs := runsByColumn[col]
		present := make(map[interval]struct{}, len(runs))
		for _, run := range runs {
			present[run] = struct{}{}
		}
		for run, startCol := range active {
			if _, ok := present[run]; !ok || col != prevCol+1 {
				result = append(result, Zone{Top: run.start, Bottom: run.end, Left: startCol, Right: prevCol})
				delete(active, run)
			}
		}
		for _, run := range runs {
			if _, ok := active[run]; !ok {
				active[run] = col
			}
		}
		prevCol = col
	}
	for run, startCol := range active {
		result = append(result, Zone{Top: run.start, Bottom: run.end, Left: startCol, Right: prevCol})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Left != result[j].Left {
			return result[i].Left < result[j].Left
		}
		return result[i].Top < result[j].Top
	})
	xcs := make([]string, len(result))
	for i, z := range result {
		xcs[i] = ZoneToXC(z)
	}
	return xcs
}

// bucketByColumn splits every zone into one vertical interval per column
func bucketByColumn(xcs []string) map[int][]interval {
	buckets := make(map[int][]interval)
	for _, xc := range xcs {
		z, err := ToZone(xc)
		if err != nil {
			continue
		}
		for col := z.Left; col <= z.Right; col++ {
			buckets[col] = append(buckets[col], interval{start: z.Top, end: z.Bottom})
		}
	}
	return buckets
}

// mergeIntervals collapses overlapping or touching intervals into maximal
// contiguous runs
func mergeIntervals(intervals []interval) []interval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := append([]interval(nil), intervals...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })
	merged := []interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if iv.start <= last.end+1 {
			last.end = max(last.end, iv.end)
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// subtract removes the rows of remove from keep. both inputs must be
// merged and sorted.
func subtract(keep []interval, remove []interval) []interval {
	var result []interval
	for _, k := range keep {
		current := []interval{k}
		for _, r := range remove {
			var next []interval
			for _, c := range current {
				if r.end < c.start || r.start > c.end {
					next = append(next, c)
					continue
				}
				if r.start > c.start {
					next = append(next, interval{start: c.start, end: r.start - 1})
				}
				if r.end < c.end {
					next = append(next, interval{start: r.end + 1, end: c.end})
				}
			}
			current = next
		}
		result = append(result, current...)
	}
	return result
}
