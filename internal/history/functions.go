package history

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"zte.szuro.net/pkg/expression"
	"zte.szuro.net/pkg/zbx"
)

var (
	ErrNoData              = errors.New("not enough data")
	ErrNotNumeric          = errors.New("function needs a numeric item")
	ErrNotLog              = errors.New("function needs a log item")
	ErrUnsupportedFunction = errors.New("unsupported function")
	ErrInvalidParameter    = errors.New("invalid function parameter")
)

// Compute evaluates function over values, which must be the selection
// returned by Store.Values for Request(function, params), newest first.
// The result is the text substituted into the trigger expression.
func Compute(values []Value, vt zbx.ValueType, function string, params []string, now time.Time) (string, error) {
	switch function {
	case "date":
		return now.Format("20060102"), nil
	case "time":
		return now.Format("150405"), nil
	case "now":
		return strconv.FormatInt(now.Unix(), 10), nil
	case "dayofmonth":
		return strconv.Itoa(now.Day()), nil
	case "dayofweek":
		wd := int(now.Weekday())
		if wd == 0 {
			wd = 7
		}
		return strconv.Itoa(wd), nil
	case "nodata":
		return boolResult(len(values) == 0), nil
	case "count":
		return count(values, vt, params)
	}

	if !zbx.IsFunction(function) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFunction, function)
	}
	if len(values) == 0 {
		return "", ErrNoData
	}

	switch function {
	case "last", "strlen":
		p, err := Request(function, params)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidParameter, err)
		}
		v := values[0].Value
		if p.Count > 1 {
			if len(values) < p.Count {
				return "", ErrNoData
			}
			v = values[p.Count-1].Value
		}
		if function == "strlen" {
			return strconv.Itoa(utf8.RuneCountInString(v)), nil
		}
		return v, nil
	case "prev":
		if len(values) < 2 {
			return "", ErrNoData
		}
		return values[1].Value, nil
	case "min", "max", "avg", "sum", "delta":
		return aggregate(values, vt, function)
	case "change", "abschange", "diff":
		return change(values, vt, function)
	case "str", "regexp", "iregexp":
		return match(values, function, params)
	case "fuzzytime":
		if !vt.IsNumeric() {
			return "", ErrNotNumeric
		}
		if len(params) == 0 {
			return "", fmt.Errorf("%w: fuzzytime needs a period", ErrInvalidParameter)
		}
		limit, err := parseSeconds(strings.TrimSpace(params[0]))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidParameter, err)
		}
		ts, err := strconv.ParseFloat(values[0].Value, 64)
		if err != nil {
			return "", ErrNotNumeric
		}
		return boolResult(math.Abs(ts-float64(now.Unix())) <= limit.Seconds()), nil
	case "logeventid", "logseverity", "logsource":
		return logFunction(values[0], vt, function, params)
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFunction, function)
}

func boolResult(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func numbers(values []Value) ([]float64, error) {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		f, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrNotNumeric, v.Value)
		}
		out = append(out, f)
	}
	return out, nil
}

func aggregate(values []Value, vt zbx.ValueType, function string) (string, error) {
	if !vt.IsNumeric() {
		return "", ErrNotNumeric
	}
	nums, err := numbers(values)
	if err != nil {
		return "", err
	}

	lo, hi, sum := nums[0], nums[0], 0.0
	for _, n := range nums {
		lo = math.Min(lo, n)
		hi = math.Max(hi, n)
		sum += n
	}

	var result float64
	switch function {
	case "min":
		result = lo
	case "max":
		result = hi
	case "sum":
		result = sum
	case "avg":
		result = sum / float64(len(nums))
	case "delta":
		result = hi - lo
	}
	return expression.FormatNumber(result), nil
}

func change(values []Value, vt zbx.ValueType, function string) (string, error) {
	if len(values) < 2 {
		return "", ErrNoData
	}
	last, prev := values[0], values[1]
	if !vt.IsNumeric() {
		return boolResult(last.Value != prev.Value), nil
	}

	nums, err := numbers([]Value{last, prev})
	if err != nil {
		return "", err
	}
	d := nums[0] - nums[1]
	switch function {
	case "abschange":
		d = math.Abs(d)
	case "diff":
		return boolResult(d != 0), nil
	}
	return expression.FormatNumber(d), nil
}

func match(values []Value, function string, params []string) (string, error) {
	if len(params) == 0 || params[0] == "" {
		return "", fmt.Errorf("%w: %s needs a pattern", ErrInvalidParameter, function)
	}
	pattern := params[0]

	var re *regexp.Regexp
	if function != "str" {
		if function == "iregexp" {
			pattern = "(?i)" + pattern
		}
		var err error
		if re, err = regexp.Compile(pattern); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidParameter, err)
		}
	}

	for _, v := range values {
		if re != nil && re.MatchString(v.Value) {
			return "1", nil
		}
		if re == nil && strings.Contains(v.Value, pattern) {
			return "1", nil
		}
	}
	return "0", nil
}

func count(values []Value, vt zbx.ValueType, params []string) (string, error) {
	if len(params) < 2 || params[1] == "" {
		return strconv.Itoa(len(values)), nil
	}
	pattern := params[1]

	op := "like"
	if vt.IsNumeric() {
		op = "eq"
	}
	if len(params) > 2 && strings.TrimSpace(params[2]) != "" {
		op = strings.TrimSpace(params[2])
	}

	cmp, err := counter(vt, pattern, op)
	if err != nil {
		return "", err
	}
	n := 0
	for _, v := range values {
		if cmp(v.Value) {
			n++
		}
	}
	return strconv.Itoa(n), nil
}

func counter(vt zbx.ValueType, pattern, op string) (func(string) bool, error) {
	switch op {
	case "like":
		return func(v string) bool { return strings.Contains(v, pattern) }, nil
	case "regexp", "iregexp":
		if op == "iregexp" {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
		}
		return re.MatchString, nil
	case "band":
		return bandCounter(pattern)
	}

	if !vt.IsNumeric() {
		switch op {
		case "eq":
			return func(v string) bool { return v == pattern }, nil
		case "ne":
			return func(v string) bool { return v != pattern }, nil
		}
		return nil, fmt.Errorf("%w: operator %s needs a numeric item", ErrInvalidParameter, op)
	}

	want, err := expression.ConvertSuffix(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidParameter, pattern)
	}
	var test func(float64) bool
	switch op {
	case "eq":
		test = func(f float64) bool { return f == want }
	case "ne":
		test = func(f float64) bool { return f != want }
	case "gt":
		test = func(f float64) bool { return f > want }
	case "ge":
		test = func(f float64) bool { return f >= want }
	case "lt":
		test = func(f float64) bool { return f < want }
	case "le":
		test = func(f float64) bool { return f <= want }
	default:
		return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidParameter, op)
	}
	return func(v string) bool {
		f, err := strconv.ParseFloat(v, 64)
		return err == nil && test(f)
	}, nil
}

// bandCounter matches values where value & mask equals the pattern. The
// pattern is "value" or "value/mask"; without a mask the value is the mask.
func bandCounter(pattern string) (func(string) bool, error) {
	wantText, maskText, hasMask := strings.Cut(pattern, "/")
	want, err := strconv.ParseUint(wantText, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: band pattern %q", ErrInvalidParameter, pattern)
	}
	mask := want
	if hasMask {
		if mask, err = strconv.ParseUint(maskText, 10, 64); err != nil {
			return nil, fmt.Errorf("%w: band mask %q", ErrInvalidParameter, pattern)
		}
	}
	return func(v string) bool {
		u, err := strconv.ParseUint(v, 10, 64)
		return err == nil && u&mask == want
	}, nil
}

func logFunction(v Value, vt zbx.ValueType, function string, params []string) (string, error) {
	if vt != zbx.LOG {
		return "", ErrNotLog
	}
	switch function {
	case "logseverity":
		return strconv.Itoa(v.Severity), nil
	case "logsource":
		if len(params) == 0 {
			return "", fmt.Errorf("%w: logsource needs a source", ErrInvalidParameter)
		}
		return boolResult(v.Source == params[0]), nil
	default:
		if len(params) == 0 {
			return "", fmt.Errorf("%w: logeventid needs a pattern", ErrInvalidParameter)
		}
		re, err := regexp.Compile(params[0])
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidParameter, err)
		}
		return boolResult(re.MatchString(strconv.Itoa(v.EventID))), nil
	}
}
