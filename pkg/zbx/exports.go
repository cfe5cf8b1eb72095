// Package zbx provides Zabbix domain types shared by the trigger engine.
//
// This package defines the records zte consumes and produces:
//   - History: individual item values from the Zabbix real-time export, the
//     input of trigger evaluation
//   - Event: problem and recovery events produced when a trigger changes state
//   - Item: the host/key/value type triple a function macro refers to
//   - FunctionInfo: value type and validation metadata of trigger functions
//
// Example usage:
//
//	import "zte.szuro.net/pkg/zbx"
//
//	info, err := zbx.LookupFunction("last", zbx.FLOAT)
//	if err != nil {
//	    var rerr *zbx.ResolveError
//	    if errors.As(err, &rerr) {
//	        // rerr.Code is FunctionUnknown
//	    }
//	}
//	fmt.Println(info.ValueType, info.Validation.Check("12.5"))
package zbx

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// File naming constants for Zabbix export files.
// These patterns are used to identify and locate history files created by Zabbix server.
const (
	// HISTORY_EXPORT is the filename pattern for history data exported by DB syncers.
	// The %d placeholder is replaced with the syncer number.
	HISTORY_EXPORT string = "history-history-syncer-%d.ndjson"

	// HISTORY_MAIN is the filename for history data from the main Zabbix process.
	HISTORY_MAIN string = "history-main-process-0.ndjson"
)

// ValueType is the Zabbix item value type.
type ValueType int

// Value type constants for Zabbix item values.
// These correspond to the different data types that Zabbix can collect and store.
const (
	// FLOAT represents numeric floating-point values (Zabbix value type 0).
	FLOAT ValueType = iota

	// CHARACTER represents character/string values (Zabbix value type 1).
	CHARACTER

	// LOG represents log file entries (Zabbix value type 2).
	LOG

	// UNSIGNED represents numeric unsigned integer values (Zabbix value type 3).
	UNSIGNED

	// TEXT represents text values (Zabbix value type 4).
	TEXT
)

var valueTypeLabels = map[ValueType]string{
	FLOAT:     "Numeric (float)",
	CHARACTER: "Character",
	LOG:       "Log",
	UNSIGNED:  "Numeric (unsigned)",
	TEXT:      "Text",
}

// String returns the label Zabbix shows for the value type.
func (v ValueType) String() string {
	if label, ok := valueTypeLabels[v]; ok {
		return label
	}
	return "Unknown (" + strconv.Itoa(int(v)) + ")"
}

// IsNumeric returns true for FLOAT and UNSIGNED.
func (v ValueType) IsNumeric() bool {
	return v == FLOAT || v == UNSIGNED
}

// HISTORY names the history export stream.
const HISTORY = "history"

// Host represents a Zabbix host with its technical name and display name.
type Host struct {
	// Host is the technical host name used internally by Zabbix.
	// Function macros refer to hosts by this name.
	Host string `json:"host" yaml:"host"`

	// Name is the visible/display name of the host as shown in Zabbix frontend.
	Name string `json:"name" yaml:"name"`
}

// Tag represents a key-value pair tag associated with Zabbix items or problems.
type Tag struct {
	// Tag is the tag name/key.
	Tag string `json:"tag" yaml:"tag"`

	// Value is the tag value.
	Value string `json:"value" yaml:"value"`
}

// Item identifies a monitored item by host and key.
type Item struct {
	// ItemID is the unique identifier of the Zabbix item. History records
	// refer to items by this id only.
	ItemID int `json:"itemid" yaml:"itemid"`

	// Host is the technical name of the owning host.
	Host string `json:"host" yaml:"host"`

	// Key is the full item key, e.g. "system.cpu.load[all,avg1]".
	Key string `json:"key" yaml:"key"`

	// ValueType decides which trigger functions the item supports.
	ValueType ValueType `json:"value_type" yaml:"value_type"`
}

// History represents a single Zabbix history record containing a collected item value.
// History records are created when Zabbix collects data from monitored items and
// feed the trigger functions of every expression that references the item.
type History struct {
	// Host contains the technical and display names of the host that owns this item.
	// May be nil in some export configurations.
	Host *Host `json:"host,omitempty"`

	// ItemID is the unique identifier of the Zabbix item.
	ItemID int `json:"itemid"`

	// Name is the visible/display name of the item as shown in Zabbix frontend.
	Name string `json:"name,omitempty"`

	// Clock is the Unix timestamp (seconds since epoch) when the value was collected.
	Clock int `json:"clock"`

	// Ns is the nanoseconds component to be added to Clock for precise timing.
	Ns int `json:"ns"`

	// Value contains the actual collected item value. The type depends on the item:
	// - Numeric items: json.Number or float64
	// - Text items: string
	// Use ValueString to get a uniform representation.
	Value json.Token `json:"value"`

	// Tags contains the list of tags associated with this item. May be empty.
	Tags []Tag `json:"item_tags,omitempty"`

	// Type indicates the value type using Zabbix value type constants.
	Type ValueType `json:"type"`

	// Severity represents the log entry severity level (log items only).
	Severity int `json:"severity,omitempty"`

	// Source is the source of the log entry (log items only).
	Source string `json:"source,omitempty"`

	// EventID is the related event ID for log entries (log items only).
	EventID int `json:"eventid,omitempty"`
}

// ValueString returns the value as text. Numbers are rendered without exponent.
func (h History) ValueString() string {
	switch v := h.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Event represents a problem or recovery event generated by a trigger.
// Events are generated when triggers change state, either from OK to PROBLEM (problem events)
// or from PROBLEM to OK (recovery events).
type Event struct {
	// Clock is the Unix timestamp (seconds since epoch) when the problem was
	// detected or resolved.
	Clock int `json:"clock"`

	// NS is the nanoseconds component to be added to Clock for precise timing.
	NS int `json:"ns"`

	// Value indicates the event type:
	// 1 - problem event (trigger went from OK to PROBLEM)
	// 0 - recovery event (trigger went from PROBLEM to OK)
	Value int `json:"value"`

	// EventID is the unique identifier for this specific event.
	EventID int `json:"eventid"`

	// PEventID is the ID of the related problem event (for recovery events only).
	PEventID int `json:"p_eventid,omitempty"`

	// Name is the name of the trigger that generated the event.
	Name string `json:"name,omitempty"`

	// Expression is the trigger expression that was evaluated.
	Expression string `json:"expression,omitempty"`

	// Severity indicates the severity level of the problem:
	// 0 - Not classified
	// 1 - Information
	// 2 - Warning
	// 3 - Average
	// 4 - High
	// 5 - Disaster
	Severity int `json:"severity,omitempty"`

	// Hosts contains the list of hosts referenced by the trigger expression.
	Hosts []Host `json:"hosts,omitempty"`

	// Tags contains the list of problem tags associated with this event.
	Tags []Tag `json:"tags,omitempty"`
}

// Hash generates a unique identifier for this event record.
func (e Event) Hash() []byte {
	return []byte("event_" + fmt.Sprint(e.EventID))
}

// IsProblem returns true for problem events.
func (e Event) IsProblem() bool {
	return e.Value == 1
}
