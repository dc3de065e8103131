// Package download retrieves files exposed by the console API.
//
// A download runs in two phases. First a HEAD request probes whether the
// caller may fetch the resource; its body is ignored. A 403 reply carries
// the refused subject and the reason in the X-GRR-Unauthorized-Access-*
// headers, which are handed to a Notifier before the original error is
// returned.
//
// Then the URL, with the params as a sorted query string, is loaded into a
// Frame by a FrameLoader and the frame is probed on a fixed interval (500ms
// by default) until it reports ready. A frame that cannot be probed means
// the server sent an error page instead of the file; Download returns a
// *RenderError. One ticker is active per download and it is stopped, and the
// frame closed, on every return path.
//
// FileLoader is the frame loader used by grrctl: it streams the file to a
// directory and reports ErrFrameAccess for non-2xx replies.
package download
