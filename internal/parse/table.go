package parse

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"table-status-backend/internal/model"
)

// TablePrefix is the prefix of seeded table identifiers.
const TablePrefix = "mesa-"

var tableRe = regexp.MustCompile(`(?i)^\s*mesa-(\d+)\s*$`)

// TableID builds the identifier of the n-th table.
func TableID(n int) string {
	return fmt.Sprintf("%s%d", TablePrefix, n)
}

// TableNumber extracts the slot number from an identifier like "mesa-3".
func TableNumber(id string) (int, error) {
	m := tableRe.FindStringSubmatch(id)
	if m == nil {
		return 0, fmt.Errorf("table id %q does not match %s<n>", id, TablePrefix)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("table id %q: %w", id, err)
	}
	return n, nil
}

// Label is the short display name of a table: its number when it has one,
// otherwise the raw identifier.
func Label(id string) string {
	if n, err := TableNumber(id); err == nil {
		return strconv.Itoa(n)
	}
	return strings.TrimPrefix(id, TablePrefix)
}

// SortTables orders tables by slot number. Identifiers without a number go
// last, ordered lexically.
func SortTables(tables []model.Table) {
	sort.SliceStable(tables, func(i, j int) bool {
		ni, errI := TableNumber(tables[i].ID)
		nj, errJ := TableNumber(tables[j].ID)
		switch {
		case errI == nil && errJ == nil:
			return ni < nj
		case errI == nil:
			return true
		case errJ == nil:
			return false
		default:
			return tables[i].ID < tables[j].ID
		}
	})
}
