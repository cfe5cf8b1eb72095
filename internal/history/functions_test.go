package history

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zte.szuro.net/pkg/zbx"
)

func vals(texts ...string) []Value {
	out := make([]Value, 0, len(texts))
	for i, t := range texts {
		out = append(out, Value{Clock: 1000 - i*10, Value: t})
	}
	return out
}

func TestCompute(t *testing.T) {
	now := time.Date(2024, time.February, 29, 13, 5, 9, 0, time.Local)
	numeric := vals("5", "3", "10", "2")

	tests := []struct {
		name     string
		values   []Value
		vt       zbx.ValueType
		function string
		params   []string
		expected string
	}{
		{"Last", numeric, zbx.FLOAT, "last", nil, "5"},
		{"Last by count", numeric, zbx.FLOAT, "last", []string{"#3"}, "10"},
		{"Prev", numeric, zbx.FLOAT, "prev", nil, "3"},
		{"Min", numeric, zbx.FLOAT, "min", []string{"#4"}, "2"},
		{"Max", numeric, zbx.FLOAT, "max", []string{"#4"}, "10"},
		{"Sum", numeric, zbx.UNSIGNED, "sum", []string{"#4"}, "20"},
		{"Avg", numeric, zbx.FLOAT, "avg", []string{"#4"}, "5"},
		{"Delta", numeric, zbx.FLOAT, "delta", []string{"#4"}, "8"},
		{"Change", numeric, zbx.FLOAT, "change", nil, "2"},
		{"Negative change", vals("1", "4"), zbx.FLOAT, "change", nil, "-3"},
		{"Abschange", vals("1", "4"), zbx.FLOAT, "abschange", nil, "3"},
		{"Diff numeric", vals("1.0", "1"), zbx.FLOAT, "diff", nil, "0"},
		{"Diff text", vals("up", "down"), zbx.TEXT, "diff", nil, "1"},
		{"Change text", vals("up", "up"), zbx.CHARACTER, "change", nil, "0"},
		{"Strlen", vals("héllo"), zbx.TEXT, "strlen", nil, "5"},
		{"Count all", numeric, zbx.FLOAT, "count", []string{"#4"}, "4"},
		{"Count greater", numeric, zbx.FLOAT, "count", []string{"#4", "3", "gt"}, "2"},
		{"Count equal default", numeric, zbx.FLOAT, "count", []string{"#4", "10"}, "1"},
		{"Count like default", vals("error: x", "ok", "error: y"), zbx.TEXT, "count", []string{"#3", "error"}, "2"},
		{"Count regexp", vals("a1", "b2", "a3"), zbx.TEXT, "count", []string{"#3", "^a", "regexp"}, "2"},
		{"Count band", vals("6", "7", "2"), zbx.UNSIGNED, "count", []string{"#3", "6/6", "band"}, "2"},
		{"Count empty", nil, zbx.FLOAT, "count", []string{"60"}, "0"},
		{"Nodata without values", nil, zbx.FLOAT, "nodata", []string{"60"}, "1"},
		{"Nodata with values", numeric, zbx.FLOAT, "nodata", []string{"60"}, "0"},
		{"Str", vals("disk full", "ok"), zbx.TEXT, "str", []string{"full"}, "1"},
		{"Str miss", vals("ok"), zbx.TEXT, "str", []string{"full"}, "0"},
		{"Regexp", vals("ERR 42"), zbx.TEXT, "regexp", []string{`^ERR \d+$`}, "1"},
		{"Iregexp", vals("err 42"), zbx.TEXT, "iregexp", []string{"^ERR"}, "1"},
		{"Fuzzytime", vals("1000"), zbx.UNSIGNED, "fuzzytime", []string{"60"}, "0"},
		{"Logseverity", []Value{{Severity: 4}}, zbx.LOG, "logseverity", nil, "4"},
		{"Logsource", []Value{{Source: "kernel"}}, zbx.LOG, "logsource", []string{"kernel"}, "1"},
		{"Logeventid", []Value{{EventID: 4625}}, zbx.LOG, "logeventid", []string{"^46"}, "1"},
		{"Date", nil, zbx.FLOAT, "date", nil, "20240229"},
		{"Time", nil, zbx.FLOAT, "time", nil, "130509"},
		{"Dayofmonth", nil, zbx.FLOAT, "dayofmonth", nil, "29"},
		{"Dayofweek", nil, zbx.FLOAT, "dayofweek", nil, "4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Compute(tt.values, tt.vt, tt.function, tt.params, now)
			require.NoError(t, err)
			require.Equal(t, tt.expected, result)
		})
	}
}

func TestComputeNow(t *testing.T) {
	result, err := Compute(nil, zbx.FLOAT, "now", nil, time.Unix(1700000000, 0))
	require.NoError(t, err)
	require.Equal(t, "1700000000", result)
}

func TestComputeErrors(t *testing.T) {
	now := time.Unix(1000, 0)
	tests := []struct {
		name     string
		values   []Value
		vt       zbx.ValueType
		function string
		params   []string
		expected error
	}{
		{"No data", nil, zbx.FLOAT, "last", nil, ErrNoData},
		{"Prev of one", vals("1"), zbx.FLOAT, "prev", nil, ErrNoData},
		{"Last beyond stored", vals("1", "2"), zbx.FLOAT, "last", []string{"#3"}, ErrNoData},
		{"Avg of text", vals("a"), zbx.TEXT, "avg", []string{"#1"}, ErrNotNumeric},
		{"Broken number", vals("abc"), zbx.FLOAT, "max", []string{"#1"}, ErrNotNumeric},
		{"Unknown function", vals("1"), zbx.FLOAT, "forecast", nil, ErrUnsupportedFunction},
		{"Log function on float", vals("1"), zbx.FLOAT, "logseverity", nil, ErrNotLog},
		{"Bad regexp", vals("a"), zbx.TEXT, "regexp", []string{"("}, ErrInvalidParameter},
		{"Str without pattern", vals("a"), zbx.TEXT, "str", nil, ErrInvalidParameter},
		{"Count unknown operator", vals("1"), zbx.FLOAT, "count", []string{"#1", "1", "approx"}, ErrInvalidParameter},
		{"Count gt on text", vals("a"), zbx.TEXT, "count", []string{"#1", "a", "gt"}, ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.values, tt.vt, tt.function, tt.params, now)
			require.True(t, errors.Is(err, tt.expected), "got %v", err)
		})
	}
}

func TestRequest(t *testing.T) {
	tests := []struct {
		name     string
		function string
		params   []string
		expected Period
		wantErr  bool
	}{
		{"Last default", "last", nil, Period{Count: 1}, false},
		{"Last zero", "last", []string{"0"}, Period{Count: 1}, false},
		{"Last count", "last", []string{"#5"}, Period{Count: 5}, false},
		{"Avg window", "avg", []string{"5m"}, Period{Window: 5 * time.Minute}, false},
		{"Avg shifted", "avg", []string{"1h", "1d"}, Period{Window: time.Hour, Shift: 24 * time.Hour}, false},
		{"Count shifted", "count", []string{"600", "", "", "3600"}, Period{Window: 10 * time.Minute, Shift: time.Hour}, false},
		{"Prev", "prev", nil, Period{Count: 2}, false},
		{"Str default", "str", []string{"error"}, Period{Count: 1}, false},
		{"Regexp window", "regexp", []string{"error", "300"}, Period{Window: 5 * time.Minute}, false},
		{"Nodata", "nodata", []string{"2m"}, Period{Window: 2 * time.Minute}, false},
		{"Now", "now", nil, Period{}, false},
		{"Avg without period", "avg", nil, Period{}, true},
		{"Nodata without period", "nodata", nil, Period{}, true},
		{"Bad count", "last", []string{"#0"}, Period{}, true},
		{"Byte suffix", "min", []string{"5K"}, Period{}, true},
		{"Garbage", "max", []string{"soon"}, Period{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Request(tt.function, tt.params)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, p)
		})
	}
}

func TestPeriodString(t *testing.T) {
	require.Equal(t, "#3", Period{Count: 3}.String())
	require.Equal(t, "300,60", Period{Window: 5 * time.Minute, Shift: time.Minute}.String())
}

func TestComputeFuzzytimeWithinLimit(t *testing.T) {
	result, err := Compute(vals("1700000030"), zbx.UNSIGNED, "fuzzytime", []string{"1m"}, time.Unix(1700000000, 0))
	require.NoError(t, err)
	require.Equal(t, "1", result)
}
