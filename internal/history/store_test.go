package history

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zte.szuro.net/pkg/zbx"
)

func openStore(t *testing.T, retain int) *Store {
	t.Helper()
	s, err := Open("", retain, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func addValues(t *testing.T, s *Store, itemid int, clocks ...int) {
	t.Helper()
	for _, c := range clocks {
		require.NoError(t, s.Add(zbx.History{ItemID: itemid, Clock: c, Value: json.Number(strconv.Itoa(c)), Type: zbx.UNSIGNED}))
	}
}

func clocks(values []Value) []int {
	out := make([]int, 0, len(values))
	for _, v := range values {
		out = append(out, v.Clock)
	}
	return out
}

func TestStoreValues(t *testing.T) {
	s := openStore(t, 0)
	addValues(t, s, 1, 100, 110, 120, 130, 140)
	addValues(t, s, 2, 135)
	now := time.Unix(140, 0)

	tests := []struct {
		name     string
		period   Period
		expected []int
	}{
		{"Newest", Period{Count: 1}, []int{140}},
		{"Three newest", Period{Count: 3}, []int{140, 130, 120}},
		{"More than stored", Period{Count: 10}, []int{140, 130, 120, 110, 100}},
		{"Window", Period{Window: 25 * time.Second}, []int{140, 130, 120}},
		{"Shifted count", Period{Count: 2, Shift: 15 * time.Second}, []int{120, 110}},
		{"Shifted window", Period{Window: 20 * time.Second, Shift: 20 * time.Second}, []int{120, 110}},
		{"Zero period", Period{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := s.Values(1, tt.period, now)
			require.NoError(t, err)
			if tt.expected == nil {
				require.Empty(t, values)
				return
			}
			require.Equal(t, tt.expected, clocks(values))
		})
	}
}

func TestStoreRetain(t *testing.T) {
	s := openStore(t, 3)
	addValues(t, s, 7, 1, 2, 3, 4, 5)

	values, err := s.Values(7, Period{Count: 10}, time.Unix(10, 0))
	require.NoError(t, err)
	require.Equal(t, []int{5, 4, 3}, clocks(values))
}

func TestStoreKeepsLogFields(t *testing.T) {
	s := openStore(t, 0)
	require.NoError(t, s.Add(zbx.History{ItemID: 3, Clock: 50, Ns: 7, Value: "disk failure", Type: zbx.LOG, Severity: 4, Source: "kernel", EventID: 12}))

	values, err := s.Values(3, Period{Count: 1}, time.Unix(60, 0))
	require.NoError(t, err)
	require.Equal(t, []Value{{Clock: 50, Ns: 7, Value: "disk failure", Severity: 4, Source: "kernel", EventID: 12}}, values)
}
