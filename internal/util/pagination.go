package util

// PageSize is the fixed page size for every list endpoint.
const PageSize = 20

// Offset converts a 1-indexed page number into a row offset.
func Offset(pageNo int) int {
	if pageNo < 1 {
		pageNo = 1
	}
	return (pageNo - 1) * PageSize
}
