package repository

import "sort"

// Address identifies one remote repository. Segment is the encoded form of
// the backed-up path and is never decoded back into a filesystem path.
type Address struct {
	Host     string
	Category Category
	Segment  string
}

// Subpath returns "<category>/<segment>".
func (a Address) Subpath() string {
	return string(a.Category) + "/" + a.Segment
}

// Key returns "<host>/<category>/<segment>", the address relative to the
// repository base.
func (a Address) Key() string {
	return a.Host + "/" + a.Subpath()
}

func (a Address) String() string {
	return a.Key()
}

// Less orders addresses by category, then segment, then host.
func Less(a, b Address) bool {
	if a.Category != b.Category {
		return a.Category.rank() < b.Category.rank()
	}
	if a.Segment != b.Segment {
		return a.Segment < b.Segment
	}
	return a.Host < b.Host
}

// SortAddresses sorts in place using Less.
func SortAddresses(addrs []Address) {
	sort.Slice(addrs, func(i, j int) bool { return Less(addrs[i], addrs[j]) })
}
