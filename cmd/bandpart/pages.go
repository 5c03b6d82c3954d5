package main

import (
	"fmt"
	"strconv"
	"strings"
)

// parsePages parses a 1-indexed page selection such as "1-3,5". An empty
// selection means every page.
func parsePages(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	var pages []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || start < 1 {
			return nil, fmt.Errorf("invalid page %q", part)
		}
		end := start
		if isRange {
			end, err = strconv.Atoi(strings.TrimSpace(hi))
			if err != nil || end < start {
				return nil, fmt.Errorf("invalid page range %q", part)
			}
		}
		for p := start; p <= end; p++ {
			pages = append(pages, p)
		}
	}
	return pages, nil
}
