package portal

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// studentData is the typed form of one studentDataVOs element. Field names
// follow the payload; sections are decoded straight into Course records.
type studentData struct {
	Schools              []*School             `mapstructure:"schools"`
	Teachers             []*Teacher            `mapstructure:"teachers"`
	Terms                []*Term               `mapstructure:"terms"`
	ReportingTerms       []*ReportingTerm      `mapstructure:"reportingTerms"`
	Assignments          []*Assignment         `mapstructure:"assignments"`
	AssignmentScores     []*AssignmentScore    `mapstructure:"assignmentScores"`
	AssignmentCategories []*AssignmentCategory `mapstructure:"assignmentCategories"`
	AttendanceCodes      []*AttendanceCode     `mapstructure:"attendanceCodes"`
	Attendance           []*AttendanceRecord   `mapstructure:"attendance"`
	Periods              []*Period             `mapstructure:"periods"`
	Sections             []*Course             `mapstructure:"sections"`
	FinalGrades          []*FinalGrade         `mapstructure:"finalGrades"`
	NotInSessionDays     []*SchoolEvent        `mapstructure:"notInSessionDays"`
	Student              *Student              `mapstructure:"student"`
	YearID               int64                 `mapstructure:"yearId"`
}

// extractStudentData pulls the studentDataVOs element for the requested
// student out of the response body. The service sometimes nests the payload
// under "return" and collapses a single-student result from a list to a
// bare object, so both shapes are accepted.
func extractStudentData(body []byte) (map[string]any, error) {
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	raw, ok := envelope["studentDataVOs"]
	if !ok {
		if ret, isMap := envelope["return"].(map[string]any); isMap {
			raw, ok = ret["studentDataVOs"]
		}
	}
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: missing studentDataVOs", ErrMalformedPayload)
	}

	switch data := raw.(type) {
	case map[string]any:
		return data, nil
	case []any:
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: empty studentDataVOs", ErrMalformedPayload)
		}
		first, isMap := data[0].(map[string]any)
		if !isMap {
			return nil, fmt.Errorf("%w: unexpected studentDataVOs element", ErrMalformedPayload)
		}
		return first, nil
	default:
		return nil, fmt.Errorf("%w: unexpected studentDataVOs shape", ErrMalformedPayload)
	}
}

// decodeStudentData turns the loosely typed payload into typed records.
// Weak typing does the heavy lifting: collections the service sends as a
// bare object instead of a list are wrapped into one-element slices, and
// numbers and booleans that arrive as strings are coerced. Individual
// fields that still fail to parse decode to their zero value instead of
// failing the fetch.
func decodeStudentData(raw map[string]any) (*studentData, error) {
	var data studentData
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &data,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			lenientTimeHook,
			lenientScalarHook,
		),
	})
	if err != nil {
		return nil, fmt.Errorf("error building payload decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &data, nil
}

// decodeSession reads the login response. On bad credentials the portal
// answers with a null userSessionVO rather than an HTTP error. The VO is
// loosely typed in the same ways the student payload is (single student id
// as a bare number, numeric strings), so it goes through the same weak
// decoding.
func decodeSession(body []byte) (*sessionVO, error) {
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	raw, ok := envelope["userSessionVO"].(map[string]any)
	if !ok {
		return nil, ErrInvalidCredentials
	}

	var vo sessionVO
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &vo,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFunc(lenientScalarHook),
	})
	if err != nil {
		return nil, fmt.Errorf("error building session decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &vo, nil
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
}

var timeType = reflect.TypeOf(time.Time{})

// lenientTimeHook parses the handful of date formats the service emits.
// Anything unparsable reads as the zero time.
func lenientTimeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType {
		return data, nil
	}
	switch v := data.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, nil
	default:
		return time.Time{}, nil
	}
}

// lenientScalarHook coerces stringly typed numbers and booleans, falling
// back to the zero value where cast cannot make sense of the input.
func lenientScalarHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := cast.ToInt64E(data)
		if err != nil {
			return int64(0), nil
		}
		return n, nil
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(data)
		if err != nil {
			return float64(0), nil
		}
		return f, nil
	case reflect.Bool:
		b, err := cast.ToBoolE(data)
		if err != nil {
			return false, nil
		}
		return b, nil
	default:
		return data, nil
	}
}
