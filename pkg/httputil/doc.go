// Package httputil provides HTTP utilities for standardized request/response
// handling: JSON encoding/decoding, error responses, and common middleware.
package httputil
