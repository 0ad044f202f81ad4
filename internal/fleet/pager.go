package fleet

import "context"

// Page is one slice of a cursor-paginated response.
type Page[T any] struct {
	Items  []T
	Cursor string
}

// PageFunc fetches the page at the given continuation cursor. An empty
// cursor requests the first page.
type PageFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// FetchAll follows cursors until the endpoint stops returning one, and
// returns the items of all pages in page order. Cursors of length <= 1 are
// treated as absent, guarding against empty or placeholder tokens.
//
// On error the items accumulated so far are returned alongside it, so a
// failed walk still yields partial results.
func FetchAll[T any](ctx context.Context, fetch PageFunc[T]) ([]T, error) {
	var items []T
	cursor := ""
	for {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return items, err
		}
		items = append(items, page.Items...)
		if len(page.Cursor) <= 1 {
			return items, nil
		}
		cursor = page.Cursor
	}
}
