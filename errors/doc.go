// Package errors provides the error taxonomy shared by the upload coordinator,
// the streaming gateway and the HTTP layer.
//
// Every failure that leaves a core operation is an *AppError carrying a code,
// a short client-safe message and the HTTP status it maps to. The underlying
// cause is kept for logging and never serialized.
package errors
