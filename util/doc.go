// Package util holds small helpers shared across streamgate packages:
// human-readable byte sizes and secret masking.
package util
