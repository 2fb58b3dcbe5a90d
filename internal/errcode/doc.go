// Package errcode provides a toolkit for defining and assigning the QUIC
// transport error codes of RFC 9000 §20. An ErrorCode is identified
// globally by a string value, typically all uppercase, by convention.
// Unlike a free-running identity registry, an ErrorCode's numeric value is
// fixed to the wire value defined by the RFC, since CONNECTION_CLOSE frames
// carry that value directly to the peer.
//
// Use of this package is defined by the following flow:
//   - Each error is registered with the errcode package via the Register()
//     function. Register() takes a group name and an ErrorDescriptor. The
//     group name allows errors to be associated with a particular
//     component (transport-level vs. application-level).
//   - Once an error is registered, the returned ErrorCode can be used just
//     like any other error type.
//   - WithArgs() and WithDetail() attach per-occurrence context: WithArgs
//     substitutes the descriptor's Message template, WithDetail attaches
//     arbitrary structured detail for logging.
package errcode
