package magnet

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoVolumes is returned when a track is set on an empty map.
	ErrNoVolumes = errors.New("field map has no volumes")

	// ErrTrackMissed is returned when a track does not cross the map.
	ErrTrackMissed = errors.New("track does not cross the field map")
)

// Map is a set of field volumes plus a straight track through them. The
// track is parametrized by the distance s (mm) from its entry point.
type Map struct {
	volumes []*Volume
	entry   Vector
	dir     Vector
	length  float64
}

// NewMap creates a map over the given volumes.
func NewMap(vols ...*Volume) *Map {
	return &Map{volumes: vols}
}

// AddVolume appends a volume. The current track is kept as is.
func (m *Map) AddVolume(v *Volume) { m.volumes = append(m.volumes, v) }

// Volumes returns the number of volumes in the map.
func (m *Map) Volumes() int { return len(m.volumes) }

// Bounds returns the bounding box of all volumes.
func (m *Map) Bounds() (lo, hi Vector, err error) {
	if len(m.volumes) == 0 {
		return Vector{}, Vector{}, ErrNoVolumes
	}
	lo = m.volumes[0].Origin
	hi = m.volumes[0].Max()
	for _, v := range m.volumes[1:] {
		o, x := v.Origin, v.Max()
		lo = Vector{math.Min(lo.X, o.X), math.Min(lo.Y, o.Y), math.Min(lo.Z, o.Z)}
		hi = Vector{math.Max(hi.X, x.X), math.Max(hi.Y, x.Y), math.Max(hi.Z, x.Z)}
	}
	return lo, hi, nil
}

// SetTrack binds the line through origin along direction, clipped to the
// bounding box of the volumes, and returns the resulting track length.
// A missed map leaves a zero-length track.
func (m *Map) SetTrack(origin, direction Vector) (float64, error) {
	m.entry, m.dir, m.length = Vector{}, Vector{}, 0

	dir := direction.Unit()
	if dir == (Vector{}) {
		return 0, fmt.Errorf("set track: zero direction")
	}
	lo, hi, err := m.Bounds()
	if err != nil {
		return 0, err
	}

	tmin, tmax := math.Inf(-1), math.Inf(1)
	slab := func(o, d, a, b float64) bool {
		if d == 0 {
			return o >= a && o <= b
		}
		t1, t2 := (a-o)/d, (b-o)/d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		return tmin <= tmax
	}
	if !slab(origin.X, dir.X, lo.X, hi.X) ||
		!slab(origin.Y, dir.Y, lo.Y, hi.Y) ||
		!slab(origin.Z, dir.Z, lo.Z, hi.Z) || tmax <= tmin {
		return 0, fmt.Errorf("%w: origin %v direction %v", ErrTrackMissed, origin, direction)
	}

	m.entry = origin.Add(dir.Scale(tmin))
	m.dir = dir
	m.length = tmax - tmin
	return m.length, nil
}

// Entry returns the point where the track enters the map.
func (m *Map) Entry() Vector { return m.entry }

// Direction returns the unit direction of the track.
func (m *Map) Direction() Vector { return m.dir }

// TrackLength returns the length (mm) of the bound track.
func (m *Map) TrackLength() float64 { return m.length }

// FieldAt returns the field at p from the first volume containing it.
func (m *Map) FieldAt(p Vector) Vector {
	for _, v := range m.volumes {
		if v.Contains(p) {
			return v.Field(p)
		}
	}
	return Vector{}
}

// TransversalField returns the field magnitude (T) orthogonal to the track
// at distance s (mm) from the entry point.
func (m *Map) TransversalField(s float64) float64 {
	return m.FieldAt(m.entry.Add(m.dir.Scale(s))).Transverse(m.dir)
}

// TransversalAlongPath samples the transverse field every step (mm) on the
// segment from..to, both ends included when the segment length is a
// multiple of step.
func (m *Map) TransversalAlongPath(from, to Vector, step float64) []float64 {
	seg := to.Sub(from)
	length := seg.Norm()
	if step <= 0 || length == 0 {
		return nil
	}
	dir := seg.Scale(1 / length)
	n := int(math.Floor(length/step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		p := from.Add(dir.Scale(float64(i) * step))
		out[i] = m.FieldAt(p).Transverse(dir)
	}
	return out
}
