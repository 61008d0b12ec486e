package ldd

import "fmt"

// NotFoundError indicates that a declared dependency could not be located in
// any search directory with a matching word size.
type NotFoundError struct {
	Library    string
	Referrer   string
	SearchPath []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v required by %v not found in any of %v", e.Library, e.Referrer, e.SearchPath)
}
