package datatable

import "sort"

const DefaultRowsPerPage = 10

// DefaultPageSizeChoices are offered when a table does not configure its own.
var DefaultPageSizeChoices = []int{10, 25, 50, 100}

// Offset returns the number of rows skipped before the given page.
func Offset(page, rowsPerPage int) int {
	return page * rowsPerPage
}

// PageSizeChoices merges the current page size into the defaults and returns
// them de-duplicated in ascending order.
func PageSizeChoices(current int, defaults []int) []int {
	seen := make(map[int]struct{}, len(defaults)+1)
	choices := make([]int, 0, len(defaults)+1)
	for _, size := range append([]int{current}, defaults...) {
		if _, ok := seen[size]; ok {
			continue
		}
		seen[size] = struct{}{}
		choices = append(choices, size)
	}
	sort.Ints(choices)
	return choices
}

func clampPage(page int) int {
	if page < 0 {
		return 0
	}
	return page
}
