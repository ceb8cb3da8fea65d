// Package globalid encodes and decodes relay-style opaque identifiers.
// A global ID is the standard base64 encoding of "TypeName:primaryKey".
package globalid

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned when an identifier cannot be decoded
var ErrMalformed = errors.New("malformed global id")

// WrongTypeError is returned when an identifier decodes to an unexpected type
type WrongTypeError struct {
	Expected string
	ID       string
}

func (e *WrongTypeError) Error() string {
	return fmt.Sprintf("Must receive %s id: %s.", e.Expected, e.ID)
}

// UnresolvedError lists identifiers that could not be decoded
type UnresolvedError struct {
	IDs []string
}

func (e *UnresolvedError) Error() string {
	quoted := make([]string, 0, len(e.IDs))
	for _, id := range e.IDs {
		quoted = append(quoted, strconv.Quote(id))
	}
	return fmt.Sprintf("Could not resolve to a node with the global id list of '[%s]'.", strings.Join(quoted, ", "))
}

func (e *UnresolvedError) Unwrap() error {
	return ErrMalformed
}

// ToGlobalID encodes a type name and primary key into a global ID
func ToGlobalID(typeName string, pk int64) string {
	raw := typeName + ":" + strconv.FormatInt(pk, 10)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// FromGlobalID decodes a global ID into its type name and raw primary key
func FromGlobalID(id string) (string, string, error) {
	if id == "" {
		return "", "", fmt.Errorf("%w: empty id", ErrMalformed)
	}
	raw, err := base64.StdEncoding.DecodeString(id)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q is not base64", ErrMalformed, id)
	}
	typeName, pk, ok := strings.Cut(string(raw), ":")
	if !ok || typeName == "" || pk == "" {
		return "", "", fmt.Errorf("%w: %q has no type prefix", ErrMalformed, id)
	}
	return typeName, pk, nil
}

// ParseID decodes a global ID of the expected type into an integer primary key
func ParseID(id string, expectedType string) (int64, error) {
	typeName, raw, err := FromGlobalID(id)
	if err != nil {
		return 0, err
	}
	if typeName != expectedType {
		return 0, &WrongTypeError{Expected: expectedType, ID: id}
	}
	pk, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || pk <= 0 {
		return 0, fmt.Errorf("%w: %q does not carry a numeric key", ErrMalformed, id)
	}
	return pk, nil
}

// ResolveToPrimaryKeys decodes a list of global IDs of the expected type.
// A type mismatch fails immediately; undecodable IDs are collected and
// reported together. Keys are returned in input order.
func ResolveToPrimaryKeys(ids []string, expectedType string) ([]int64, error) {
	pks := make([]int64, 0, len(ids))
	var invalid []string

	for _, id := range ids {
		pk, err := ParseID(id, expectedType)
		if err != nil {
			var wrongType *WrongTypeError
			if errors.As(err, &wrongType) {
				return nil, wrongType
			}
			invalid = append(invalid, id)
			continue
		}
		pks = append(pks, pk)
	}

	if len(invalid) > 0 {
		return nil, &UnresolvedError{IDs: invalid}
	}
	return pks, nil
}

// ToGlobalIDs encodes each primary key with the given type name
func ToGlobalIDs(typeName string, pks []int64) []string {
	ids := make([]string, 0, len(pks))
	for _, pk := range pks {
		ids = append(ids, ToGlobalID(typeName, pk))
	}
	return ids
}
