// Package request turns a streaming inbound HTTP request into an immutable
// Snapshot that matchers can inspect synchronously, any number of times.
//
// An http.Request body can only be read once, and reading it blocks. Matchers
// need neither restriction, so the request is captured exactly once when it
// arrives and every consumer receives a pointer to the same Snapshot.
//
// # Capturing
//
//	snap, err := request.CaptureHTTP(r)
//	if err != nil {
//	    var capErr *request.CaptureError
//	    if errors.As(err, &capErr) && capErr.Kind == request.KindTransport {
//	        // malformed target or header
//	    }
//	}
//
// Capture works from a RawRequest, which callers outside net/http can build
// directly:
//
//	snap, err := request.Capture(ctx, request.RawRequest{
//	    Method:  "POST",
//	    Target:  "/orders?dry_run=1",
//	    Headers: []request.HeaderPair{{Name: "Content-Type", Value: "application/json"}},
//	    Body:    request.NewBodySource(strings.NewReader(`{"id":1}`)),
//	})
//
// Origin-form targets are resolved against http://localhost, so Snapshot.URL
// is always absolute.
//
// # Headers
//
// Header is keyed by the ASCII-lowercased header name. Repeated names collapse
// into one field whose values keep arrival order. The display name of a field
// is the casing seen first.
//
// # Rendering and decoding
//
// Snapshot.String renders the diagnostic form used in logs and failure
// messages:
//
//	POST http://localhost/orders?dry_run=1
//	Content-Type: application/json
//	{"id":1}
//
// Invalid UTF-8 is replaced rather than rejected. DecodeJSON, DecodeYAML,
// DecodeXML, DecodeJSONSchema and QueryJSONPath read the body without
// consuming it and are safe to call concurrently.
package request
