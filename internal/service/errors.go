package service

import "errors"

// Domain errors returned by Service. They are wrapped with the offending
// name, id or amount; match them with errors.Is.
var (
	ErrAlreadyRegistered = errors.New("cigarro already registered")
	ErrNotFound          = errors.New("cigarro not found")
	ErrStockExceeded     = errors.New("increment exceeds the max stock capacity")
	ErrInsufficientStock = errors.New("decrement would leave negative stock")
	ErrConcurrentUpdate  = errors.New("cigarro stock changed concurrently, retry the request")
)
