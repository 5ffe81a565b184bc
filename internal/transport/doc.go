// Package transport implements the raw HTTP/1.1 exchange gatecrawl uses
// instead of net/http.
//
// # Architecture
//
// Two pieces: the Client opens one encrypted TCP connection per request,
// writes raw bytes, and reads until the peer closes the stream; the codec
// in message.go builds request bytes and parses response bytes. The
// protocol relies on "Connection: close", so end-of-stream rather than a
// length header delimits every response. There is no connection reuse.
//
// Design decision: We build requests and parse responses by hand rather
// than using net/http because:
//  1. The exchange must be byte-exact: request line, header order, CRLF
//     termination, and the close-delimited read are the protocol here
//  2. net/http's transport insists on keep-alive, chunked handling, and
//     redirect following, all of which this crawler must own itself
//  3. The cookie handling is deliberately minimal (two named cookies)
//
// # Errors
//
// A socket or TLS failure surfaces as *ConnectionError and a malformed
// status line as *ParseError. Both are fatal to the whole crawl; there is
// no per-request recovery at this layer.
package transport
