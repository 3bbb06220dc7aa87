// Package codec implements the binary-safe argument codec (C1): encoding
// and decoding of single call arguments and batches of positional/keyword
// arguments, as carried inside Job Requests and Job Responses.
//
// The reference system leans on a pickle-equivalent that can serialize
// arbitrary objects, including closures. Go has no such universal
// mechanism, so this codec serializes a closed "value" envelope: plain
// Go values (primitives, slices, maps, structs with exported fields) via
// encoding/gob, and function values as a FunctionRef (a named pointer
// into a process-local registry) so that a decoded call can still invoke
// the original closure inside the same process.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/gob"
	"fmt"
	"reflect"

	flasherrors "github.com/runpod/flash/internal/errors"
)

// FunctionRef is what a function value encodes to: a reference to an
// entry registered with Register. It round-trips through the codec as an
// ordinary struct so that the gob stream never has to serialize code.
type FunctionRef struct {
	Name string
}

var functionRegistry = map[string]any{}

// Register names a callable so it can be round-tripped through the
// codec as a FunctionRef. Typically called once at package init for each
// annotated callable discovered at build time.
func Register(name string, fn any) {
	functionRegistry[name] = fn
}

// Lookup resolves a previously Register-ed callable by name.
func Lookup(name string) (any, bool) {
	fn, ok := functionRegistry[name]
	return fn, ok
}

// envelope is the gob-serialized wire shape for a single value. Kind
// distinguishes a plain value from a function reference so Decode knows
// which branch to take without type-switching on the registered gob
// concrete types (which may collide across packages).
type envelope struct {
	Kind  string // "value" or "function"
	Value any
	Ref   FunctionRef
}

func init() {
	gob.Register(FunctionRef{})
}

// EncodeOne encodes a single value to a base64, text-safe string.
// Closures (functions) encode as a FunctionRef; everything else encodes
// by value. Generators have no Go analogue and are rejected by the type
// system at compile time; open file handles (*os.File) are rejected
// explicitly since gob cannot serialize live OS handles.
func EncodeOne(v any) (string, error) {
	env := envelope{Kind: "value", Value: v}

	if fn := reflect.ValueOf(v); v != nil && fn.Kind() == reflect.Func {
		name := fmt.Sprintf("closure@%x", fn.Pointer())
		Register(name, v)
		env = envelope{Kind: "function", Ref: FunctionRef{Name: name}}
	}

	if err := rejectUnserializable(v); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if env.Kind == "value" && v != nil {
		gob.Register(v)
	}
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(&env); err != nil {
		return "", flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationEncode,
			"value is not serializable")
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// rejectUnserializable fails encoding for values with no safe wire
// representation: open file handles and anything backed by a live OS
// resource or channel (the closest Go analogue to a Python generator).
func rejectUnserializable(v any) error {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan:
		return flasherrors.Serialization(flasherrors.CodeSerializationEncode,
			"channels are not serializable (generator-equivalent)")
	case reflect.Ptr:
		if _, ok := v.(interface{ Fd() uintptr }); ok {
			return flasherrors.Serialization(flasherrors.CodeSerializationEncode,
				"open file handles are not serializable")
		}
	}
	return nil
}

// DecodeOne decodes a value previously produced by EncodeOne. If the
// original value was a function, the returned value is the looked-up
// callable (or an error if the process that encoded it never registered
// it, e.g. after a restart).
func DecodeOne(s string) (any, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationDecode,
			"invalid base64 payload")
	}
	var env envelope
	dec := gob.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&env); err != nil {
		return nil, flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationDecode,
			"failed to decode value")
	}
	if env.Kind == "function" {
		fn, ok := Lookup(env.Ref.Name)
		if !ok {
			return nil, flasherrors.Serialization(flasherrors.CodeSerializationDecode,
				fmt.Sprintf("function reference %q not registered in this process", env.Ref.Name))
		}
		return fn, nil
	}
	return env.Value, nil
}

// EncodePositional encodes a slice of positional arguments.
func EncodePositional(vs []any) ([]string, error) {
	out := make([]string, len(vs))
	for i, v := range vs {
		s, err := EncodeOne(v)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// DecodePositional decodes a slice previously produced by EncodePositional.
func DecodePositional(vs []string) ([]any, error) {
	out := make([]any, len(vs))
	for i, v := range vs {
		d, err := DecodeOne(v)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// EncodeNamed encodes a keyword-argument map.
func EncodeNamed(m map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(m))
	for k, v := range m {
		s, err := EncodeOne(v)
		if err != nil {
			return nil, err
		}
		out[k] = s
	}
	return out, nil
}

// DecodeNamed decodes a keyword-argument map previously produced by
// EncodeNamed.
func DecodeNamed(m map[string]string) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		d, err := DecodeOne(v)
		if err != nil {
			return nil, err
		}
		out[k] = d
	}
	return out, nil
}
