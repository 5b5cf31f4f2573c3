package core

import (
	"math"
	"strconv"
	"strings"

	"flatbuild/internal/types"
)

// ParseVersion splits a dotted version into its numeric components.
// Components that are not plain non-negative integers become 0, so every
// input yields a vector.
func ParseVersion(value string) types.VersionVector {
	parts := strings.Split(strings.TrimSpace(value), ".")
	out := make(types.VersionVector, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			n = 0
		}
		out[i] = n
	}
	return out
}

// ParseVersionSpec parses an exact version or a bracketed range such as
// "[1.0,2.0]". Parentheses are accepted as delimiters but bounds are always
// inclusive. An empty lower bound means 0 and an empty upper bound means
// unbounded.
func ParseVersionSpec(raw string) types.VersionSpec {
	trimmed := strings.TrimSpace(raw)
	if !isRangeSpec(trimmed) {
		v := ParseVersion(trimmed)
		return types.VersionSpec{Raw: raw, Lo: v, Hi: v}
	}
	body := trimmed[1 : len(trimmed)-1]
	bounds := strings.SplitN(body, ",", 2)
	if len(bounds) == 1 {
		v := ParseVersion(bounds[0])
		return types.VersionSpec{Raw: raw, Lo: v, Hi: v}
	}
	loRaw := strings.TrimSpace(bounds[0])
	hiRaw := strings.TrimSpace(bounds[1])
	lo := types.VersionVector{0}
	if loRaw != "" {
		lo = ParseVersion(loRaw)
	}
	var hi types.VersionVector
	if hiRaw != "" {
		hi = ParseVersion(hiRaw)
	}
	n := max(len(lo), len(hi))
	lo = padVersion(lo, n, 0)
	if hi == nil {
		hi = padVersion(nil, n, math.MaxInt)
	} else {
		hi = padVersion(hi, n, 0)
	}
	return types.VersionSpec{Raw: raw, Lo: lo, Hi: hi}
}

func isRangeSpec(value string) bool {
	if len(value) < 2 {
		return false
	}
	open := value[0] == '[' || value[0] == '('
	closing := value[len(value)-1] == ']' || value[len(value)-1] == ')'
	return open && closing
}

// InRange walks the padded vectors digit by digit. A bound only constrains
// a digit while the candidate is still equal to that bound on every higher
// digit; once the candidate is strictly between the active bounds it
// matches. At the last digit the bounds are inclusive, so equal lo and hi
// behave as an exact version.
func InRange(candidate types.VersionVector, lo types.VersionVector, hi types.VersionVector) bool {
	n := max(len(candidate), len(lo), len(hi))
	c := padVersion(candidate, n, 0)
	l := padVersion(lo, n, 0)
	h := padVersion(hi, n, hiPad(hi))

	loTied, hiTied := true, true
	for j := 0; j < n; j++ {
		if loTied && c[j] < l[j] {
			return false
		}
		if hiTied && c[j] > h[j] {
			return false
		}
		aboveLo := !loTied || c[j] > l[j]
		belowHi := !hiTied || c[j] < h[j]
		if aboveLo && belowHi {
			return true
		}
		loTied = loTied && c[j] == l[j]
		hiTied = hiTied && c[j] == h[j]
	}
	return true
}

// SpecMatches reports whether a store version directory satisfies spec.
func SpecMatches(spec types.VersionSpec, version string) bool {
	return InRange(ParseVersion(version), spec.Lo, spec.Hi)
}

// an unbounded upper limit keeps its meaning when padded
func hiPad(hi types.VersionVector) int {
	if len(hi) > 0 && hi[len(hi)-1] == math.MaxInt {
		return math.MaxInt
	}
	return 0
}

func padVersion(v types.VersionVector, n int, fill int) types.VersionVector {
	if len(v) >= n {
		return v
	}
	out := make(types.VersionVector, n)
	copy(out, v)
	for i := len(v); i < n; i++ {
		out[i] = fill
	}
	return out
}

// specCache memoizes parsed version specs for the duration of one
// resolution call.
type specCache map[string]types.VersionSpec

func (c specCache) get(raw string) types.VersionSpec {
	if spec, ok := c[raw]; ok {
		return spec
	}
	spec := ParseVersionSpec(raw)
	c[raw] = spec
	return spec
}
