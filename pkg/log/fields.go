package log

import "time"

// Field is a single key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// Str builds a string field.
func Str(key, value string) Field { return Field{Key: key, Value: value} }

// Int builds an int field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Int64 builds an int64 field.
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

// Uint64 builds a uint64 field.
func Uint64(key string, value uint64) Field { return Field{Key: key, Value: value} }

// Bool builds a bool field.
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Dur builds a duration field, rendered with time.Duration's String.
func Dur(key string, value time.Duration) Field { return Field{Key: key, Value: value} }

// Any builds a field holding an arbitrary value.
func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }

// Err builds the conventional "error" field. A nil error renders as null.
func Err(err error) Field {
	if err == nil {
		return Field{Key: ErrorKey, Value: nil}
	}
	return Field{Key: ErrorKey, Value: err.Error()}
}

// Component tags an entry with the subsystem that produced it.
func Component(name string) Field { return Field{Key: ComponentKey, Value: name} }
