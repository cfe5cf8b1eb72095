package zbx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TypeTag is the input type of a value returned by a trigger function.
type TypeTag string

const (
	T_ZBX_INT TypeTag = "INT"
	T_ZBX_DBL TypeTag = "DBL"
	T_ZBX_STR TypeTag = "STR"
)

// Labels for function results that do not follow the item value type.
const (
	LABEL_0_OR_1   = "0 or 1"
	LABEL_ANY      = "Any"
	LABEL_DATE     = "YYYYMMDD"
	LABEL_TIME     = "HHMMSS"
	LABEL_WEEKDAY  = "1-7"
	LABEL_MONTHDAY = "1-31"
)

// ValidationKind selects how Validation checks a value.
type ValidationKind int

const (
	// NotEmpty accepts any non-empty value.
	NotEmpty ValidationKind = iota

	// In accepts one of Validation.Values.
	In

	// Range accepts numbers between Validation.Min and Validation.Max inclusive.
	Range

	// Length accepts values of exactly Validation.Length bytes.
	Length

	// Number accepts numeric constants with an optional unit suffix.
	Number
)

var numberPattern = regexp.MustCompile(`^[-+]?[0-9]+[.]?[0-9]*[KMGTsmhdw]?$`)

// Validation is the rule a value compared against a function result must satisfy.
type Validation struct {
	Kind   ValidationKind
	Values []string
	Min    float64
	Max    float64
	Length int
}

// Check reports whether value satisfies the rule.
func (v Validation) Check(value string) bool {
	switch v.Kind {
	case NotEmpty:
		return value != ""
	case In:
		for _, allowed := range v.Values {
			if value == allowed {
				return true
			}
		}
		return false
	case Range:
		f, err := strconv.ParseFloat(value, 64)
		return err == nil && f >= v.Min && f <= v.Max
	case Length:
		return len(value) == v.Length
	case Number:
		return numberPattern.MatchString(value)
	}
	return false
}

func (v Validation) String() string {
	switch v.Kind {
	case NotEmpty:
		return "NOT_EMPTY"
	case In:
		return "IN(" + strings.Join(v.Values, ",") + ")"
	case Range:
		return fmt.Sprintf("%s..%s", strconv.FormatFloat(v.Min, 'f', -1, 64), strconv.FormatFloat(v.Max, 'f', -1, 64))
	case Length:
		return fmt.Sprintf("LENGTH(%d)", v.Length)
	case Number:
		return "NUMBER"
	}
	return "UNKNOWN"
}

// FunctionInfo describes what a trigger function returns.
type FunctionInfo struct {
	// ValueType is the human readable label of the result, e.g. "Numeric (float)" or "0 or 1".
	ValueType string

	// Type is the input type of the result.
	Type TypeTag

	// Validation is the rule for constants compared with the result.
	Validation Validation
}

var (
	ruleNotEmpty = Validation{Kind: NotEmpty}
	rule0or1     = Validation{Kind: In, Values: []string{"0", "1"}}

	info0or1 = FunctionInfo{ValueType: LABEL_0_OR_1, Type: T_ZBX_INT, Validation: rule0or1}
	infoUint = FunctionInfo{ValueType: UNSIGNED.String(), Type: T_ZBX_INT, Validation: ruleNotEmpty}
)

// Functions whose result type follows the item value type.
var valueTypedFunctions = map[string]bool{
	"abschange": true,
	"avg":       true,
	"change":    true,
	"delta":     true,
	"last":      true,
	"max":       true,
	"min":       true,
	"prev":      true,
	"sum":       true,
}

var fixedFunctions = map[string]FunctionInfo{
	"count":       infoUint,
	"logseverity": infoUint,
	"now":         infoUint,
	"strlen":      infoUint,
	"diff":        info0or1,
	"fuzzytime":   info0or1,
	"iregexp":     info0or1,
	"logeventid":  info0or1,
	"logsource":   info0or1,
	"nodata":      info0or1,
	"regexp":      info0or1,
	"str":         info0or1,
	"date": {
		ValueType:  LABEL_DATE,
		Type:       T_ZBX_INT,
		Validation: Validation{Kind: Range, Min: 19700101, Max: 99991231},
	},
	"dayofmonth": {
		ValueType:  LABEL_MONTHDAY,
		Type:       T_ZBX_INT,
		Validation: Validation{Kind: Range, Min: 1, Max: 31},
	},
	"dayofweek": {
		ValueType:  LABEL_WEEKDAY,
		Type:       T_ZBX_INT,
		Validation: Validation{Kind: In, Values: []string{"1", "2", "3", "4", "5", "6", "7"}},
	},
	"time": {
		ValueType:  LABEL_TIME,
		Type:       T_ZBX_INT,
		Validation: Validation{Kind: Length, Length: 6},
	},
}

// IsFunction reports whether name is a known trigger function.
func IsFunction(name string) bool {
	if valueTypedFunctions[name] {
		return true
	}
	_, ok := fixedFunctions[name]
	return ok
}

// LookupFunction returns the result metadata of function applied to an item
// of type vt. Numeric results are validated as numeric constants.
func LookupFunction(function string, vt ValueType) (FunctionInfo, error) {
	if info, ok := fixedFunctions[function]; ok {
		return info, nil
	}
	if !valueTypedFunctions[function] {
		return FunctionInfo{}, &ResolveError{Code: FunctionUnknown}
	}
	if _, ok := valueTypeLabels[vt]; !ok {
		return FunctionInfo{}, &ResolveError{Code: UnsupportedValueType}
	}

	if vt.IsNumeric() {
		return FunctionInfo{ValueType: vt.String(), Type: T_ZBX_STR, Validation: Validation{Kind: Number}}, nil
	}
	return FunctionInfo{ValueType: vt.String(), Type: T_ZBX_STR, Validation: ruleNotEmpty}, nil
}

// MacroInfo is the metadata of {TRIGGER.VALUE}.
func MacroInfo() FunctionInfo {
	return info0or1
}

// UserMacroInfo is the metadata of user and LLD macros, which may expand to anything.
func UserMacroInfo() FunctionInfo {
	return FunctionInfo{ValueType: LABEL_ANY, Type: T_ZBX_STR, Validation: ruleNotEmpty}
}

// ResolveErrorCode classifies why a function macro could not be resolved.
type ResolveErrorCode int

const (
	HostUnknown ResolveErrorCode = iota + 1
	HostItemUnknown
	NotAMacro
	FunctionUnknown
	UnsupportedValueType
)

var resolveErrorNames = map[ResolveErrorCode]string{
	HostUnknown:          "HOST_UNKNOWN",
	HostItemUnknown:      "HOST_ITEM_UNKNOWN",
	NotAMacro:            "NOT_A_MACRO",
	FunctionUnknown:      "FUNCTION_UNKNOWN",
	UnsupportedValueType: "UNSUPPORTED_VALUE_TYPE",
}

func (c ResolveErrorCode) String() string {
	if name, ok := resolveErrorNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

var resolveErrorMessages = map[ResolveErrorCode]string{
	HostUnknown:          "unknown host, no such host present in system",
	HostItemUnknown:      "unknown host item, no such item in selected host",
	NotAMacro:            "given expression is not a macro",
	FunctionUnknown:      "incorrect function is used",
	UnsupportedValueType: "incorrect item value type",
}

// Message returns the user facing description of the code.
func (c ResolveErrorCode) Message() string {
	return resolveErrorMessages[c]
}

// ResolveError is returned by resolvers for expected lookup failures.
// Any other error from a resolver is an infrastructure failure.
type ResolveError struct {
	Code ResolveErrorCode

	// Macro is the macro text the error refers to, if known.
	Macro string
}

func (e *ResolveError) Error() string {
	if e.Macro == "" {
		return e.Code.String() + ": " + e.Code.Message()
	}
	return e.Code.String() + ": " + e.Macro + ": " + e.Code.Message()
}
