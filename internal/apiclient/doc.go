// Package apiclient provides the HTTP client for the forensic-response
// console's REST API.
//
// # Overview
//
// Every resource lives under /api/ on the console. Callers name resources by
// logical path ("clients/C.1234/flows") and the client turns that into a URL,
// encoding each "/"-delimited segment on its own:
//
//	client.URL("clients/C.1/vfs-files/fs/os/a b", nil)
//	→ http://127.0.0.1:8000/api/clients/C.1/vfs-files/fs/os/a%20b
//
// # Client Usage
//
//	client, err := apiclient.NewClient(cfg.APIURL,
//		apiclient.WithLoading(registry),
//		apiclient.WithLogger(log),
//	)
//	if err != nil {
//		return err
//	}
//
//	resp, err := client.Get(ctx, "/clients/C.1234", nil)
//	if err != nil {
//		return err
//	}
//	fmt.Println(resp.Field("os_info.system").String())
//
// # Calls Without a Payload
//
// HEAD and GET send their params as a query string with keys sorted.
// GetCached (or Settings.Cache) serves repeated GETs from a bounded LRU
// cache keyed by the full URL; Get never reads or fills that cache. Any
// successful POST, PATCH or DELETE purges the cache.
//
// # Calls With a Payload
//
// POST, PATCH and DELETE send their params as JSON. Values read back from the
// API carry type metadata ({"value": ..., "type": ...}); with
// PayloadOptions.StripTypeInfo set the params go through StripTypeInfo first.
// When PayloadOptions.Files is set the request becomes multipart/form-data:
// one part per file, plus a "_params_" field with the JSON params. The
// multipart writer derives the Content-Type and its boundary.
//
// # Loading Indicator
//
// Each call takes a loading token right before it is sent and returns it when
// the call settles, successful or not.
//
// # Error Handling
//
// Every failure is a *ResponseError. For a non-2xx reply it carries the raw
// Response (status, headers, body); for a transport failure Response is nil
// and Err holds the cause. Nothing is retried.
//
//   - "api GET clients returned status 500"
//   - "api GET clients: execute request: dial tcp: connection refused"
//
// # Payload Trees
//
// StripTypeInfo classifies nodes with KindOf: leaves, arrays, wrapped objects
// (those with a "value" key) and plain objects. Plain objects are returned
// without visiting their fields; wrapped values nested below them are left as
// they are.
package apiclient
