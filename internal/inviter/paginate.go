package inviter

import "context"

// PageFunc fetches the page at cursor ("" for the first page) and returns its
// items and the cursor of the following page, "" when there is none.
type PageFunc[T any] func(ctx context.Context, cursor string) ([]T, string, error)

// Paginate walks a cursor-paginated listing from the first page. The pacer
// is waited on before each fetch. visit sees every page in order and stops
// the walk by returning false. It returns the number of pages fetched.
func Paginate[T any](ctx context.Context, pacer Pacer, fetch PageFunc[T], visit func(items []T) (bool, error)) (int, error) {
	var (
		cursor string
		pages  int
	)
	for {
		if err := pacer.Wait(ctx); err != nil {
			return pages, err
		}
		items, next, err := fetch(ctx, cursor)
		if err != nil {
			return pages, err
		}
		pages++

		more, err := visit(items)
		if err != nil {
			return pages, err
		}
		if !more || next == "" {
			return pages, nil
		}
		cursor = next
	}
}
