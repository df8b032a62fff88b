package model

import (
	"fmt"
	"strings"
	"time"
)

// LevelKind is the side of the market a level sits on.
type LevelKind int

const (
	Support LevelKind = iota
	Resistance
)

func (k LevelKind) String() string {
	if k == Resistance {
		return "Resistance"
	}
	return "Support"
}

// Method identifies one of the level detection heuristics.
type Method int

const (
	Fibonacci Method = iota
	PivotPoints
	BollingerBands
	KMeansClusters
	VolumeProfile
	Trendlines

	// MethodCount is the number of detection methods.
	MethodCount = 6
)

var methodNames = [MethodCount]string{
	Fibonacci:      "Fibonacci",
	PivotPoints:    "Pivot Points",
	BollingerBands: "Bollinger Bands",
	KMeansClusters: "KMeans Clusters",
	VolumeProfile:  "Volume Profile",
	Trendlines:     "Trendlines",
}

func (m Method) String() string {
	if m < 0 || int(m) >= MethodCount {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return methodNames[m]
}

// AllMethods returns every method in declaration order.
func AllMethods() []Method {
	return []Method{Fibonacci, PivotPoints, BollingerBands, KMeansClusters, VolumeProfile, Trendlines}
}

// ParseMethod maps a display name ("Pivot Points") or a snake_case key
// ("pivot_points") back to its Method.
func ParseMethod(name string) (Method, bool) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", " "))
	for i, n := range methodNames {
		if strings.ToLower(n) == key {
			return Method(i), true
		}
	}
	return 0, false
}

// LevelTag is the direction a detector assigned to a raw level.
type LevelTag int

const (
	TagSupport LevelTag = iota
	TagResistance
	TagBoth // price-neutral, goes to both pools
	TagAny  // direction-agnostic, pool bounds are taken from min/max
)

// RawLevel is one candidate level emitted by a detector.
type RawLevel struct {
	Method Method
	Label  string
	Tag    LevelTag
	Price  float64
}

// MergedLevel is a consensus level surviving into the output.
type MergedLevel struct {
	Method  Method
	Label   string
	Kind    LevelKind
	Price   float64
	Score   float64
	Members int
}

// LevelSet is the final output: both sides ascending by price.
type LevelSet struct {
	Support    []MergedLevel
	Resistance []MergedLevel
}

// NearestSupport returns the highest support strictly below price.
func (s LevelSet) NearestSupport(price float64) (MergedLevel, bool) {
	for i := len(s.Support) - 1; i >= 0; i-- {
		if s.Support[i].Price < price {
			return s.Support[i], true
		}
	}
	return MergedLevel{}, false
}

// NearestResistance returns the lowest resistance strictly above price.
func (s LevelSet) NearestResistance(price float64) (MergedLevel, bool) {
	for _, l := range s.Resistance {
		if l.Price > price {
			return l, true
		}
	}
	return MergedLevel{}, false
}

// Empty reports whether neither side holds a level.
func (s LevelSet) Empty() bool {
	return len(s.Support) == 0 && len(s.Resistance) == 0
}

// MethodResult is the pre-merge output of one detector.
type MethodResult struct {
	Method    Method
	Available bool
	Reason    string // why the method is unavailable
	Levels    []RawLevel
}

func (r MethodResult) String() string {
	if !r.Available {
		return "N/A"
	}
	parts := make([]string, len(r.Levels))
	for i, l := range r.Levels {
		parts[i] = fmt.Sprintf("%s=%.2f", l.Label, l.Price)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Diagnostics holds every method's raw output, indexed by Method.
type Diagnostics [MethodCount]MethodResult

// Get returns the result for m.
func (d *Diagnostics) Get(m Method) MethodResult { return d[m] }

// Unavailable lists the methods that produced no result.
func (d *Diagnostics) Unavailable() []Method {
	var out []Method
	for _, r := range d {
		if !r.Available {
			out = append(out, r.Method)
		}
	}
	return out
}

// Analysis is the envelope of a single analysis run.
type Analysis struct {
	ID           string
	Symbol       string
	Interval     string
	Bars         int
	CurrentPrice float64
	RangeHigh    float64
	RangeLow     float64
	Levels       LevelSet
	Diagnostics  Diagnostics
	StartedAt    time.Time
	Duration     time.Duration
}
