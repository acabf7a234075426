package duration

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrInvalidUnit indicates a unit outside the configured ladder.
	ErrInvalidUnit = errors.New("invalid unit")
	// ErrInvalidMagnitude indicates a non-finite, non-integral, or overflowing magnitude.
	ErrInvalidMagnitude = errors.New("invalid magnitude")
)

// Unit is one rung of the time unit ladder.
// Params: upper-case unit name as shown in form selectors.
// Returns: unit identity used by pair conversion.
type Unit string

const (
	// Seconds is the smallest default unit.
	Seconds Unit = "SECONDS"
	// Minutes equals 60 seconds.
	Minutes Unit = "MINUTES"
	// Hours equals 60 minutes.
	Hours Unit = "HOURS"
	// Days equals 24 hours.
	Days Unit = "DAYS"
)

const (
	msPerSecond int64 = 1000
	msPerMinute       = 60 * msPerSecond
	msPerHour         = 60 * msPerMinute
	msPerDay          = 24 * msPerHour
)

var (
	knownUnits = map[Unit]int64{
		Seconds: msPerSecond,
		Minutes: msPerMinute,
		Hours:   msPerHour,
		Days:    msPerDay,
	}
	unitAliases = map[string]Unit{
		"s":       Seconds,
		"sec":     Seconds,
		"second":  Seconds,
		"seconds": Seconds,
		"m":       Minutes,
		"min":     Minutes,
		"minute":  Minutes,
		"minutes": Minutes,
		"h":       Hours,
		"hour":    Hours,
		"hours":   Hours,
		"d":       Days,
		"day":     Days,
		"days":    Days,
	}
	unitNouns = map[Unit]string{
		Seconds: "second",
		Minutes: "minute",
		Hours:   "hour",
		Days:    "day",
	}
)

// ParseUnit converts user or config text into a known unit.
// Params: unit name in any case, singular/plural, or short form.
// Returns: normalized unit or ErrInvalidUnit.
func ParseUnit(value string) (Unit, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	if unit, ok := unitAliases[key]; ok {
		return unit, nil
	}
	return "", fmt.Errorf("%w %q", ErrInvalidUnit, value)
}

// Rounding selects how ToPair handles a value no ladder unit divides evenly.
type Rounding int

const (
	// RoundFloor truncates toward zero.
	RoundFloor Rounding = iota
	// RoundNearest rounds half away from zero.
	RoundNearest
)

// ParseRounding maps config text to a rounding mode.
// Params: "floor", "nearest", or empty for floor.
// Returns: rounding mode or error for unknown text.
func ParseRounding(value string) (Rounding, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "floor":
		return RoundFloor, nil
	case "nearest":
		return RoundNearest, nil
	default:
		return RoundFloor, fmt.Errorf("unsupported rounding %q", value)
	}
}

// Step binds one unit to its millisecond factor.
type Step struct {
	Unit      Unit
	MsPerUnit int64
}

// Ladder is an ascending list of units used to pick readable durations.
// Params: steps ordered from smallest to largest factor, rounding for inexact values.
// Returns: conversion table for ToPair and ToMilliseconds.
type Ladder struct {
	steps    []Step
	rounding Rounding
}

// DefaultLadder returns seconds, minutes, hours, days with floor rounding.
// Params: none.
// Returns: ladder matching the form time selector.
func DefaultLadder() Ladder {
	ladder, _ := NewLadder(RoundFloor, Seconds, Minutes, Hours, Days)
	return ladder
}

// NewLadder builds a ladder from a subset of known units.
// Params: rounding mode and units in any order.
// Returns: ladder sorted by factor, or error for unknown/duplicate/empty units.
func NewLadder(rounding Rounding, units ...Unit) (Ladder, error) {
	if len(units) == 0 {
		return Ladder{}, errors.New("ladder requires at least one unit")
	}
	seen := make(map[Unit]struct{}, len(units))
	steps := make([]Step, 0, len(units))
	for _, unit := range units {
		factor, ok := knownUnits[unit]
		if !ok {
			return Ladder{}, fmt.Errorf("%w %q", ErrInvalidUnit, unit)
		}
		if _, dup := seen[unit]; dup {
			return Ladder{}, fmt.Errorf("duplicate ladder unit %q", unit)
		}
		seen[unit] = struct{}{}
		steps = append(steps, Step{Unit: unit, MsPerUnit: factor})
	}
	sort.Slice(steps, func(i, j int) bool {
		return steps[i].MsPerUnit < steps[j].MsPerUnit
	})
	return Ladder{steps: steps, rounding: rounding}, nil
}

// Steps returns a copy of the ladder rungs, smallest first.
func (l Ladder) Steps() []Step {
	return append([]Step(nil), l.steps...)
}

// Units returns ladder unit names, smallest first.
func (l Ladder) Units() []Unit {
	out := make([]Unit, 0, len(l.steps))
	for _, step := range l.steps {
		out = append(out, step.Unit)
	}
	return out
}

// Smallest returns the lowest rung of the ladder.
func (l Ladder) Smallest() Step {
	if len(l.steps) == 0 {
		return Step{Unit: Seconds, MsPerUnit: msPerSecond}
	}
	return l.steps[0]
}

func (l Ladder) factor(unit Unit) (int64, bool) {
	for _, step := range l.steps {
		if step.Unit == unit {
			return step.MsPerUnit, true
		}
	}
	return 0, false
}

// Pair is a human-editable duration.
type Pair struct {
	Magnitude int64 `json:"magnitude" yaml:"magnitude"`
	Unit      Unit  `json:"unit" yaml:"unit"`
}

// String renders the pair as "2 minutes" or "1 minute".
func (p Pair) String() string {
	noun, ok := unitNouns[p.Unit]
	if !ok {
		noun = strings.ToLower(string(p.Unit))
	}
	if p.Magnitude != 1 {
		noun += "s"
	}
	return strconv.FormatInt(p.Magnitude, 10) + " " + noun
}

// ToPair picks the largest unit that divides ms exactly.
// Params: duration in milliseconds and target ladder.
// Returns: magnitude/unit pair; zero or negative ms yields magnitude 0 in the smallest unit.
func ToPair(ms int64, ladder Ladder) Pair {
	smallest := ladder.Smallest()
	if ms <= 0 {
		return Pair{Magnitude: 0, Unit: smallest.Unit}
	}
	for i := len(ladder.steps) - 1; i >= 0; i-- {
		step := ladder.steps[i]
		if ms%step.MsPerUnit == 0 && ms/step.MsPerUnit >= 1 {
			return Pair{Magnitude: ms / step.MsPerUnit, Unit: step.Unit}
		}
	}

	magnitude := ms / smallest.MsPerUnit
	if ladder.rounding == RoundNearest && (ms%smallest.MsPerUnit)*2 >= smallest.MsPerUnit {
		magnitude++
	}
	return Pair{Magnitude: magnitude, Unit: smallest.Unit}
}

// ToMilliseconds converts a pair back to milliseconds.
// Params: magnitude (clamped to at least 1), unit, and ladder holding the unit.
// Returns: millisecond value, ErrInvalidUnit, or ErrInvalidMagnitude on overflow.
func ToMilliseconds(magnitude int64, unit Unit, ladder Ladder) (int64, error) {
	factor, ok := ladder.factor(unit)
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrInvalidUnit, unit)
	}
	if magnitude < 1 {
		magnitude = 1
	}
	if magnitude > math.MaxInt64/factor {
		return 0, fmt.Errorf("%w: %d %s overflows milliseconds", ErrInvalidMagnitude, magnitude, unit)
	}
	return magnitude * factor, nil
}

// ToMillisecondsFloat converts form numeric input after finite/integral checks.
// Params: raw numeric magnitude, unit, and ladder.
// Returns: millisecond value or typed error.
func ToMillisecondsFloat(value float64, unit Unit, ladder Ladder) (int64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %v is not finite", ErrInvalidMagnitude, value)
	}
	if value != math.Trunc(value) {
		return 0, fmt.Errorf("%w: %v is not a whole number", ErrInvalidMagnitude, value)
	}
	if value >= math.MaxInt64 || value <= math.MinInt64 {
		return 0, fmt.Errorf("%w: %v is out of range", ErrInvalidMagnitude, value)
	}
	return ToMilliseconds(int64(value), unit, ladder)
}

// ParseMagnitude parses form text into a magnitude.
// Params: decimal text, optionally with surrounding spaces.
// Returns: integer magnitude or ErrInvalidMagnitude.
func ParseMagnitude(value string) (int64, error) {
	text := strings.TrimSpace(value)
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidMagnitude, value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %q is not a whole number", ErrInvalidMagnitude, value)
	}
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidMagnitude, value)
	}
	return int64(f), nil
}

// Format renders milliseconds as the ladder's readable pair.
// Params: milliseconds and ladder.
// Returns: text like "5 minutes".
func Format(ms int64, ladder Ladder) string {
	return ToPair(ms, ladder).String()
}
