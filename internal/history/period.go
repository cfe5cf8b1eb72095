package history

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"zte.szuro.net/pkg/expression"
)

// Period selects values from the history of one item. Count takes the newest
// Count values, Window takes every value younger than Window. Shift moves the
// end of the selection back in time. The zero Period selects nothing.
type Period struct {
	Count  int
	Window time.Duration
	Shift  time.Duration
}

// IsZero reports whether the period selects no values.
func (p Period) IsZero() bool {
	return p.Count == 0 && p.Window == 0
}

func (p Period) String() string {
	var s string
	if p.Count > 0 {
		s = "#" + strconv.Itoa(p.Count)
	} else {
		s = strconv.FormatInt(int64(p.Window/time.Second), 10)
	}
	if p.Shift > 0 {
		s += "," + strconv.FormatInt(int64(p.Shift/time.Second), 10)
	}
	return s
}

// ParsePeriod parses "#N" or a number of seconds with an optional time suffix.
// An empty string or "0" means the newest value.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return Period{Count: 1}, nil
	}
	if strings.HasPrefix(s, "#") {
		n, err := strconv.Atoi(s[1:])
		if err != nil || n <= 0 {
			return Period{}, fmt.Errorf("invalid value count %q", s)
		}
		return Period{Count: n}, nil
	}
	d, err := parseSeconds(s)
	if err != nil {
		return Period{}, err
	}
	return Period{Window: d}, nil
}

func parseSeconds(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	switch s[len(s)-1] {
	case 'K', 'M', 'G', 'T':
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	v, err := expression.ConvertSuffix(s)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(v * float64(time.Second)), nil
}

func parseShift(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	return parseSeconds(s)
}

// periodArg is the position of the period parameter of each function, or -1
// when the function reads a fixed number of values.
var periodArg = map[string]int{
	"avg":     0,
	"count":   0,
	"delta":   0,
	"last":    0,
	"max":     0,
	"min":     0,
	"strlen":  0,
	"sum":     0,
	"nodata":  0,
	"iregexp": 1,
	"regexp":  1,
	"str":     1,
}

// shiftArg is the position of the time shift parameter.
var shiftArg = map[string]int{
	"avg":   1,
	"delta": 1,
	"max":   1,
	"min":   1,
	"sum":   1,
	"count": 3,
	"last":  1,
}

// fixedCounts lists functions that always read the newest N values.
var fixedCounts = map[string]int{
	"abschange":   2,
	"change":      2,
	"diff":        2,
	"prev":        2,
	"fuzzytime":   1,
	"logeventid":  1,
	"logseverity": 1,
	"logsource":   1,
}

// Request returns the Period a function reads. Functions that do not read
// history, such as now() or date(), get the zero Period.
func Request(function string, params []string) (Period, error) {
	if n, ok := fixedCounts[function]; ok {
		return Period{Count: n}, nil
	}
	pos, ok := periodArg[function]
	if !ok {
		return Period{}, nil
	}

	var (
		p   Period
		err error
	)
	switch {
	case function == "nodata":
		if len(params) == 0 || strings.TrimSpace(params[0]) == "" {
			return Period{}, fmt.Errorf("nodata needs a period")
		}
		var d time.Duration
		if d, err = parseSeconds(strings.TrimSpace(params[0])); err != nil {
			return Period{}, err
		}
		return Period{Window: d}, nil
	case function == "count" || function == "avg" || function == "min" ||
		function == "max" || function == "sum" || function == "delta":
		if len(params) <= pos || strings.TrimSpace(params[pos]) == "" {
			return Period{}, fmt.Errorf("%s needs a period", function)
		}
		p, err = ParsePeriod(params[pos])
	default:
		arg := ""
		if len(params) > pos {
			arg = params[pos]
		}
		p, err = ParsePeriod(arg)
	}
	if err != nil {
		return Period{}, err
	}

	if pos, ok := shiftArg[function]; ok && len(params) > pos {
		if p.Shift, err = parseShift(params[pos]); err != nil {
			return Period{}, err
		}
	}
	return p, nil
}
