// Package validation checks request input for the streamgate handlers.
//
// Struct tags cover JSON bodies:
//
//	type startUploadRequest struct {
//	    FileName string `json:"fileName" validate:"required"`
//	}
//	err := validation.Validate(req)
//
// The chained Validator covers multipart form fields, which arrive as
// strings:
//
//	v := validation.New()
//	idx := v.Required("uploadId", uploadID).Integer("chunkIndex", raw)
//	if err := v.Validate(); err != nil { ... }
package validation
