package response

import "travel-booking/pkg/utils"

// KeysetPage is one page of a keyset listing. Next is only set when the page
// came back full.
type KeysetPage[T any] struct {
	List []T     `json:"list"`
	Next *string `json:"next,omitempty"`
}

func NewKeysetPage[T any](list []T, size int, lastID int64, basePath string) *KeysetPage[T] {
	page := &KeysetPage[T]{List: list}
	if page.List == nil {
		page.List = []T{}
	}
	if size > 0 && len(list) == size {
		next := utils.NextPageLink(basePath, lastID, size)
		page.Next = &next
	}
	return page
}
