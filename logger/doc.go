// Package logger provides structured logging for streamgate using zerolog.
//
// Loggers carry a service name and optional component tag. Fields are passed
// as maps so call sites stay independent of the zerolog event API:
//
//	log := logger.WithComponent("upload")
//	log.Info("part stored", map[string]interface{}{
//		logger.FieldUploadID:   id,
//		logger.FieldPartNumber: n,
//	})
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
package logger
