// Package auth owns the client's session lifecycle: a process-wide store of
// the last-known authentication snapshot, a controller that populates it
// once at startup and keeps it updated from gateway notifications, and a
// timeout guard that bounds how long consumers wait for initialization.
//
// The store holds immutable snapshots that are replaced wholesale, never
// patched in place, so readers can never observe a torn state. Concurrent
// fetch sequences are serialized by sequence tokens: a sequence that started
// later always wins at publish time, even if an earlier sequence's fetches
// finish after it.
package auth
