// Package requestid tags every inbound request with an id.
//
// Middleware keeps a well-formed X-Request-ID sent by the caller (a provider
// retrying a receipt, say) and generates a uuid otherwise. The id is echoed
// in the response and stored in the request context, where Extractor adds
// it to log records:
//
//	log := logger.New(logger.WithContextExtractors(requestid.Extractor()))
//	r.Use(requestid.Middleware)
package requestid
