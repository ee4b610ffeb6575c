/*
Package gateway is the single translation point between in-process values and
the engine call surface.

Every table and dashboard operation goes through a Gateway: arguments are
encoded as UTF-8 text (JSON for structured values, raw text for scalars), the
engine is invoked exactly once, and the text response is decoded according to
the operation's response convention:

  - SnapshotResponse: a non-empty response is the new snapshot; an empty one is a failure.
  - ValueResponse: the response is a value (JSON, integer or raw text).
  - StatusResponse: an empty response is success; anything else is the error message.

The Gateway performs no retries and no caching. It holds no per-handle state
and is safe for concurrent use.
*/
package gateway
