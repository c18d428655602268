package cleanup

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"worktreectl/internal/errors"
)

// Selector keywords accepted at the interactive prompt
const (
	SelectAll    = "all"
	SelectCancel = "cancel"
)

// ParseSelector turns a selector such as "1-3,5" into sorted zero-based
// indices for a list of n items. Indices in the input are one-based and
// ranges are inclusive. cancelled is true for the literal "cancel".
func ParseSelector(input string, n int) (indices []int, cancelled bool, err error) {
	input = strings.ToLower(strings.TrimSpace(input))

	switch input {
	case SelectCancel:
		return nil, true, nil
	case SelectAll:
		indices = make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		return indices, false, nil
	case "":
		return nil, false, errors.ValidationFailed("selection", input, "empty selection")
	}

	seen := make(map[int]struct{})
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		lo, hi, err := parseRange(part)
		if err != nil {
			return nil, false, err
		}
		if lo < 1 || hi > n {
			return nil, false, errors.ValidationFailed("selection", part, fmt.Sprintf("out of range 1-%d", n))
		}
		for i := lo; i <= hi; i++ {
			seen[i-1] = struct{}{}
		}
	}

	for i := range seen {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices, false, nil
}

func parseRange(part string) (int, int, error) {
	invalid := errors.ValidationFailed("selection", part, "expected an index or a range like 1-3")

	first, last, isRange := strings.Cut(part, "-")
	lo, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return 0, 0, invalid
	}
	if !isRange {
		return lo, lo, nil
	}

	hi, err := strconv.Atoi(strings.TrimSpace(last))
	if err != nil || hi < lo {
		return 0, 0, invalid
	}
	return lo, hi, nil
}
