package mapper

import "github.com/ayusman/nritya/internal/geom"

// Smoother averages each new position with the previous smoothed one. The
// zero value starts at the origin.
type Smoother struct {
	prev geom.Point
}

// Smooth folds pt into the running average and returns the new value.
func (s *Smoother) Smooth(pt geom.Point) geom.Point {
	s.prev = pt.Mid(s.prev)
	return s.prev
}

// Current returns the last smoothed value.
func (s *Smoother) Current() geom.Point {
	return s.prev
}

// Reset returns the smoother to the origin.
func (s *Smoother) Reset() {
	s.prev = geom.Point{}
}
