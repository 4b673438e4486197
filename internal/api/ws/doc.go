// Package ws streams evaluation results over a WebSocket.
//
// Clients send {"type":"select","snippet":"<id>"} or {"type":"ping"}. The
// server answers a selection with {"type":"selected","cycle":...} and later
// pushes {"type":"result",...} once that cycle publishes. Results of
// superseded cycles are never sent.
package ws
