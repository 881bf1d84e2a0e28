package utils

import (
	"fmt"
	"net/url"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 1000
)

// NextPageLink builds the keyset link for the page following lastID.
func NextPageLink(basePath string, lastID int64, size int) string {
	q := url.Values{}
	q.Set("keyset_id", fmt.Sprintf("%d", lastID))
	q.Set("amount", fmt.Sprintf("%d", size))
	return basePath + "?" + q.Encode()
}
