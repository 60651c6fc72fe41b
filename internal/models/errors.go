package models

import "errors"

var (
	// ErrMalformedPayload marks an inbound document that does not match the webhook schema.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrMissingCredential marks a request for which no Cachet token could be resolved.
	ErrMissingCredential = errors.New("missing credential")
	// ErrTransport marks a directive whose outbound call failed below HTTP.
	ErrTransport = errors.New("transport failure")
	// ErrSerialization marks an outcome list that could not be encoded.
	ErrSerialization = errors.New("serialization failure")
)
