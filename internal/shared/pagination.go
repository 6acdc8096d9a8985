package shared

// DefaultPageLimit bounds listings when the caller does not specify one.
const DefaultPageLimit = 20

// MaxPageLimit caps a single page regardless of what the caller asks for.
const MaxPageLimit = 100

// Page describes a limit/offset window over a listing.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the window to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
