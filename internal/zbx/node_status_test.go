//go:build !debug

package zbx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetFailoverDelay(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
	}{
		{"Valid input with delay", "Some text here. Failover delay: 30 seconds", 30 * time.Second},
		{"No delay", "garbage", DEFAULT_DELAY},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, GetFailoverDelay(tt.input))
		})
	}
}

func TestExtractNameAndStatus(t *testing.T) {
	name, status := ExtractNameAndStatus("1.  ckx5hmvqo0001  node-a  10.0.0.1:10051  active  0s")
	require.Equal(t, "node-a", name)
	require.Equal(t, "active", status)

	name, status = ExtractNameAndStatus("header")
	require.Empty(t, name)
	require.Empty(t, status)
}

func TestParseHaStatus(t *testing.T) {
	cluster := "Failover delay: 90 seconds\nCluster status:\n  #  ID  Name  Address  Status  Last Access\n" +
		"1.  ckx1  node-a  10.0.0.1:10051  active  0s\n" +
		"2.  ckx2  node-b  10.0.0.2:10051  standby  3s"

	tests := []struct {
		name   string
		output string
		node   string
		delay  time.Duration
		active bool
	}{
		{"Active node", cluster, "node-a", 90 * time.Second, true},
		{"Standby node", cluster, "node-b", 90 * time.Second, false},
		{"Standalone", "Failover delay: 60 seconds\nCluster status:\n  #  ID  Name  Address  Status  Last Access", "", 60 * time.Second, true},
		{"Non active", NON_ACTIVE, "node-a", DEFAULT_DELAY, false},
		{"Initial sync", INITIAL_SYNC, "node-a", DEFAULT_DELAY, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay, active := parseHaStatus(tt.output, tt.node)
			require.Equal(t, tt.delay, delay)
			require.Equal(t, tt.active, active)
		})
	}
}
