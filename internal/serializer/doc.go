// Package serializer encodes and decodes the opaque task and event
// payloads the store persists as byte blobs. The core is agnostic to the
// concrete wire format; the shipped Codec uses JSON with a small type
// registry so a decoded blob can be reconstructed into the embedder's
// concrete Go type. A decode failure never propagates as a hard error —
// it surfaces as a DecodeError so callers can substitute a
// task.LegacyPayload / task.LegacyEvent placeholder that preserves the
// original bytes.
package serializer
