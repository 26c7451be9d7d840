package geotime

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/teranos/facts/errors"
)

const earthRadiusKm = 6371.0

// Coordinate is a point on the globe in decimal degrees. South and west are
// negative.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewCoordinate range-checks and builds a coordinate.
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return Coordinate{}, errors.Newf("latitude %v out of range [-90, 90]", lat)
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return Coordinate{}, errors.Newf("longitude %v out of range [-180, 180]", lng)
	}
	return Coordinate{Lat: lat, Lng: lng}, nil
}

// FromDMS converts degrees, minutes and seconds plus a hemisphere letter
// (N, S, E, W or empty) into signed decimal degrees.
func FromDMS(deg, minutes, seconds float64, hemisphere string) (float64, error) {
	if minutes < 0 || minutes >= 60 || seconds < 0 || seconds >= 60 {
		return 0, errors.Newf("minutes and seconds must be in [0, 60): %v′ %v″", minutes, seconds)
	}
	v := math.Abs(deg) + minutes/60 + seconds/3600
	if deg < 0 {
		v = -v
	}
	switch strings.ToUpper(hemisphere) {
	case "", "N", "E":
		return v, nil
	case "S", "W":
		return -v, nil
	default:
		return 0, errors.Newf("unknown hemisphere %q", hemisphere)
	}
}

// partLayouts maps the number of positional parts of a coordinate to the
// meaning of each part: degrees, minutes, seconds or hemisphere letter, for
// latitude then longitude.
var partLayouts = map[int]string{
	2: "dd",
	4: "dhdh",
	6: "dmhdmh",
	8: "dmshdmsh",
}

// FromParts builds a coordinate from positional parts as they appear in
// markup templates, e.g. [50 27 0 N 30 31 24 E]. Only 2, 4, 6 and 8 parts
// are understood; the boolean is false for any other shape and for bad
// numbers, hemisphere letters or ranges.
func FromParts(parts []string) (Coordinate, bool) {
	layout, ok := partLayouts[len(parts)]
	if !ok {
		return Coordinate{}, false
	}
	half := len(layout) / 2

	axis := func(fields string, parts []string, hemispheres string) (float64, bool) {
		var deg, mins, secs float64
		var hemi string
		for i, f := range fields {
			p := strings.TrimSpace(parts[i])
			if f == 'h' {
				if len(p) != 1 || !strings.ContainsAny(strings.ToUpper(p), hemispheres) {
					return 0, false
				}
				hemi = p
				continue
			}
			n, err := parseNumber(p)
			if err != nil {
				return 0, false
			}
			switch f {
			case 'd':
				deg = n
			case 'm':
				mins = n
			case 's':
				secs = n
			}
		}
		v, err := FromDMS(deg, mins, secs, hemi)
		return v, err == nil
	}

	lat, ok := axis(layout[:half], parts[:half], "NS")
	if !ok {
		return Coordinate{}, false
	}
	lng, ok := axis(layout[half:], parts[half:], "EW")
	if !ok {
		return Coordinate{}, false
	}
	c, err := NewCoordinate(lat, lng)
	return c, err == nil
}

// ParseCoordinate reads "50.45, 30.5236", "50°27′N 30°31′24″E" or
// "50.45N 30.52E". Bare numbers without a comma or hemisphere letters
// ("49 32") are ambiguous and rejected.
func ParseCoordinate(text string) (Coordinate, bool) {
	hasComma := strings.Contains(text, ",")
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '°', '′', '″', '\'', '"', ',', ';':
			return ' '
		case '−':
			return '-'
		}
		return r
	}, text)

	var parts []string
	hasHemisphere := false
	for _, f := range strings.Fields(cleaned) {
		last := rune(f[len(f)-1])
		if len(f) > 1 && strings.ContainsRune("NSEWnsew", last) {
			parts = append(parts, f[:len(f)-1], string(last))
			hasHemisphere = true
			continue
		}
		if len(f) == 1 && unicode.IsLetter(last) {
			hasHemisphere = true
		}
		parts = append(parts, f)
	}

	if hasHemisphere {
		return fromLettered(parts)
	}
	if hasComma && len(parts) == 2 {
		return FromParts(parts)
	}
	return Coordinate{}, false
}

// fromLettered pads each axis of a hemisphere-lettered token list to full
// degree/minute/second form so that "50 27 N" and "50 N" both parse.
func fromLettered(parts []string) (Coordinate, bool) {
	var full []string
	var axis []string
	for _, p := range parts {
		if len(p) == 1 && unicode.IsLetter(rune(p[0])) {
			if len(axis) == 0 || len(axis) > 3 {
				return Coordinate{}, false
			}
			for len(axis) < 3 {
				axis = append(axis, "0")
			}
			full = append(full, axis...)
			full = append(full, p)
			axis = nil
			continue
		}
		axis = append(axis, p)
	}
	if len(axis) != 0 {
		return Coordinate{}, false
	}
	return FromParts(full)
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, "−", "-"), 64)
}

// DistanceTo returns the great-circle distance in kilometres.
func (c Coordinate) DistanceTo(o Coordinate) float64 {
	φ1, φ2 := radians(c.Lat), radians(o.Lat)
	dφ := φ2 - φ1
	dλ := radians(o.Lng - c.Lng)

	a := math.Sin(dφ/2)*math.Sin(dφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(dλ/2)*math.Sin(dλ/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BearingTo returns the initial compass bearing towards o in degrees [0, 360).
func (c Coordinate) BearingTo(o Coordinate) float64 {
	φ1, φ2 := radians(c.Lat), radians(o.Lat)
	dλ := radians(o.Lng - c.Lng)

	y := math.Sin(dλ) * math.Cos(φ2)
	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(dλ)
	return math.Mod(degrees(math.Atan2(y, x))+360, 360)
}

// DMS renders "50°27′0″N, 30°31′24″E" with whole seconds.
func (c Coordinate) DMS() string {
	return dms(c.Lat, "N", "S") + ", " + dms(c.Lng, "E", "W")
}

// String is the DMS rendering.
func (c Coordinate) String() string {
	return c.DMS()
}

func dms(v float64, pos, neg string) string {
	hemi := pos
	if v < 0 {
		hemi = neg
		v = -v
	}
	total := int(math.Round(v * 3600))
	return fmt.Sprintf("%d°%d′%d″%s", total/3600, total%3600/60, total%60, hemi)
}

func radians(d float64) float64 { return d * math.Pi / 180 }
func degrees(r float64) float64 { return r * 180 / math.Pi }
