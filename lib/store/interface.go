package store

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/sdcs/lib/envelope"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the generic interface for interacting with a key–value store.
// It is implemented by the local store, by the node service (which routes to
// the owning node) and by the RPC client of a remote node, so callers never
// need to know where a key lives.
type IStore interface {
	// Set inserts or updates a key–value pair.
	Set(key string, value envelope.Envelope) (err error)
	// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
	// An absent key is not an error.
	Get(key string) (value envelope.Envelope, loaded bool, err error)
	// Remove deletes a key–value pair. The boolean return value indicates whether an entry existed.
	Remove(key string) (existed bool, err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// RetCode returns the numeric return code, it is carried over the wire by the rpc layer
func (e *Error) RetCode() uint64 {
	return uint64(e.Code)
}

// NewError creates a new store Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// HasCode reports whether err or any error it wraps is a store Error with the given code
func HasCode(err error, code RetCode) bool {
	var storeErr *Error
	return errors.As(err, &storeErr) && storeErr.Code == code
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess       RetCode = iota // 0: Command executed successfully.
	RetCInternalError                // 1: Command failed due to an internal error.
	RetCInvalidValue                 // 2: The value is not a valid envelope.
	RetCMisrouted                    // 3: A forwarded key is not owned by the node that received it.
	RetCMisaddressed                 // 4: The request was addressed to another node.
	RetCUnsupported                  // 5: The operation is not supported.
)

// String returns the name of the return code
func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCInvalidValue:
		return "InvalidValue"
	case RetCMisrouted:
		return "Misrouted"
	case RetCMisaddressed:
		return "Misaddressed"
	case RetCUnsupported:
		return "Unsupported"
	default:
		return "Unknown"
	}
}
