package cmp

// SliceEq returns true when a and b have same elements in same order.
func SliceEq[T comparable](a []T, b []T) bool {
	return SliceEqWith(a, b, func(x T, y T) bool { return x == y })
}

// SliceEqWith compares a and b element-wise with eq.
func SliceEqWith[T any, U any](a []T, b []U, eq func(T, U) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for nth := range a {
		if !eq(a[nth], b[nth]) {
			return false
		}
	}
	return true
}

// SliceContentEq returns true when a and b have same elements, ignoring order.
func SliceContentEq[T comparable](a []T, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	rest := make([]T, len(b))
	copy(rest, b)
outer:
	for _, x := range a {
		for nth, y := range rest {
			if x == y {
				rest = append(rest[:nth], rest[nth+1:]...)
				continue outer
			}
		}
		return false
	}
	return len(rest) == 0
}

// SliceContentEqWith returns true when a and b have same elements by eq, ignoring order.
func SliceContentEqWith[T any, U any](a []T, b []U, eq func(T, U) bool) bool {
	if len(a) != len(b) {
		return false
	}
	rest := make([]U, len(b))
	copy(rest, b)
outer:
	for _, x := range a {
		for nth, y := range rest {
			if eq(x, y) {
				rest = append(rest[:nth], rest[nth+1:]...)
				continue outer
			}
		}
		return false
	}
	return len(rest) == 0
}

// MapEq returns true when a and b have same key-value pairs.
func MapEq[K comparable, V comparable](a map[K]V, b map[K]V) bool {
	return MapEqWith(a, b, func(x V, y V) bool { return x == y })
}

// MapEqWith compares a and b value-wise with eq.
func MapEqWith[K comparable, V any, W any](a map[K]V, b map[K]W, eq func(V, W) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || !eq(va, vb) {
			return false
		}
	}
	return true
}
