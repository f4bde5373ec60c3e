package models

import (
	"encoding/json"
	"time"

	"snow-mirror/pkg/converter"
)

const (
	// FieldSysID is the immutable remote identifier carried by every record.
	FieldSysID = "sys_id"
	// FieldUpdatedOn is the remote modification timestamp used as the watermark.
	FieldUpdatedOn = "sys_updated_on"

	// TimestampLayout is the instance wire format. Lexical order on this layout
	// matches chronological order, which the watermark comparison relies on.
	TimestampLayout = "2006-01-02 15:04:05"
)

// Record is one remote row as decoded from the Table API response: field name
// to raw JSON value. Reference-typed fields arrive as nested objects and are
// normalized through Flatten before anything else touches them.
type Record map[string]interface{}

// FieldKind tags the shape of a raw remote field value.
type FieldKind int

const (
	FieldKindNull FieldKind = iota
	FieldKindScalar
	FieldKindReference
	FieldKindList
)

// FieldValue is the normalized form of one remote field. Reference objects
// ({value, display_value}) and lists are collapsed here, once, at ingestion.
type FieldValue struct {
	Kind   FieldKind
	Scalar string
}

// ClassifyField normalizes one raw JSON value into its tagged form.
func ClassifyField(raw interface{}) FieldValue {
	switch v := raw.(type) {
	case nil:
		return FieldValue{Kind: FieldKindNull}
	case map[string]interface{}:
		return FieldValue{Kind: FieldKindReference, Scalar: referenceScalar(v)}
	case []interface{}:
		encoded, err := json.Marshal(v)
		if err != nil {
			return FieldValue{Kind: FieldKindList}
		}
		return FieldValue{Kind: FieldKindList, Scalar: string(encoded)}
	default:
		scalar, err := converter.ConvertScalarToString(v)
		if err != nil {
			return FieldValue{Kind: FieldKindNull}
		}
		return FieldValue{Kind: FieldKindScalar, Scalar: scalar}
	}
}

// StoreValue returns the value written to a TEXT column: a string, or nil for
// null fields so the column stays NULL rather than becoming "".
func (v FieldValue) StoreValue() interface{} {
	if v.Kind == FieldKindNull {
		return nil
	}
	return v.Scalar
}

func referenceScalar(ref map[string]interface{}) string {
	for _, key := range []string{"value", "display_value"} {
		if s, ok := ref[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Flatten collapses every field of the record to its stored form.
func (r Record) Flatten() map[string]interface{} {
	flat := make(map[string]interface{}, len(r))
	for k, raw := range r {
		flat[k] = ClassifyField(raw).StoreValue()
	}
	return flat
}

// SysID returns the record's primary key, unwrapping a reference blob if the
// identifier itself arrived nested.
func (r Record) SysID() string {
	return r.fieldAsString(FieldSysID)
}

// UpdatedOn returns the remote modification timestamp, or "" when absent.
func (r Record) UpdatedOn() string {
	return r.fieldAsString(FieldUpdatedOn)
}

func (r Record) fieldAsString(field string) string {
	v := ClassifyField(r[field])
	if v.Kind == FieldKindScalar || v.Kind == FieldKindReference {
		return v.Scalar
	}
	return ""
}

// NowTimestamp renders the current UTC time in the instance wire format.
func NowTimestamp() string {
	return time.Now().UTC().Format(TimestampLayout)
}
