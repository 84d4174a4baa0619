package records

import "context"

// Start returns the pagination offset.
func (s *Store) Start() int { return s.start }

// PageSize returns the page size, 0 when pagination is off.
func (s *Store) PageSize() int { return s.pageSize }

// SetPageSize changes the page size used by the next load.
func (s *Store) SetPageSize(n int) {
	if n >= 0 {
		s.pageSize = n
	}
}

// Pages returns the number of pages known from the server total.
func (s *Store) Pages() int {
	if s.pageSize <= 0 || s.totalLength <= 0 {
		return 0
	}
	return (s.totalLength + s.pageSize - 1) / s.pageSize
}

// CurrentPage returns the 1-based page at the current offset.
func (s *Store) CurrentPage() int {
	if s.pageSize <= 0 {
		return 1
	}
	return s.start/s.pageSize + 1
}

// HasNextPage reports whether a page follows the current one. An unknown
// total counts as more pages.
func (s *Store) HasNextPage() bool {
	if s.pageSize <= 0 {
		return false
	}
	return s.totalLength <= 0 || s.start+s.pageSize < s.totalLength
}

// HasPrevPage reports whether a page precedes the current one.
func (s *Store) HasPrevPage() bool {
	return s.pageSize > 0 && s.start > 0
}

// LoadNextPage advances the offset by one page and reloads. It does nothing
// when the server total shows there is no further page.
func (s *Store) LoadNextPage(ctx context.Context) error {
	if !s.HasNextPage() {
		return nil
	}
	s.start += s.pageSize
	return s.Load(ctx, s.lastParams, LoadOptions{})
}

// LoadPrevPage moves the offset back one page and reloads.
func (s *Store) LoadPrevPage(ctx context.Context) error {
	if !s.HasPrevPage() {
		return nil
	}
	s.start = max(0, s.start-s.pageSize)
	return s.Load(ctx, s.lastParams, LoadOptions{})
}

// AddNextPage loads the page after the items held and appends it.
func (s *Store) AddNextPage(ctx context.Context) error {
	if s.pageSize <= 0 {
		return nil
	}
	if s.totalLength > 0 && len(s.items) >= s.totalLength {
		return nil
	}
	s.start = len(s.items)
	return s.Load(ctx, s.lastParams, LoadOptions{Append: true, KeepOnEmpty: true})
}

// AddPrevPage loads the page before the current offset and prepends it.
func (s *Store) AddPrevPage(ctx context.Context) error {
	if !s.HasPrevPage() {
		return nil
	}
	s.start = max(0, s.start-s.pageSize)
	return s.Load(ctx, s.lastParams, LoadOptions{Prepend: true, KeepOnEmpty: true})
}

// LoadPage loads the 1-based page n.
func (s *Store) LoadPage(ctx context.Context, n int) error {
	if s.pageSize <= 0 || n < 1 {
		return ErrNoPage
	}
	if pages := s.Pages(); pages > 0 && n > pages {
		return ErrNoPage
	}
	s.start = (n - 1) * s.pageSize
	return s.Load(ctx, s.lastParams, LoadOptions{})
}
