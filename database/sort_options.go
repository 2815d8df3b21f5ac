package database

const (
	SortManual      = "manual"
	SortDateDesc    = "date_desc"
	SortDateAsc     = "date_asc"
	SortFilenameNat = "filename_nat"
)

const DefaultSortOrder = SortManual

// IsValidSortOrder checks if a string is a valid image sort order constant
func IsValidSortOrder(order string) bool {
	switch order {
	case SortManual, SortDateDesc, SortDateAsc, SortFilenameNat:
		return true
	default:
		return false
	}
}
