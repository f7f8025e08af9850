// Package kobject implements the kernel-object handle: a single reference-counted
// handle type that stands for any resource a process can hold open.
//
// A Kobject wraps exactly one backend resource of one of six kinds:
//   - File and Directory (a Dirent from the filesystem layer)
//   - Device (a block device)
//   - Window (a compositor window and its event queue)
//   - Console (a text console bound to a window)
//   - Pipe (a byte-stream pipe)
//
// Reference Counting:
// Two counters live at two layers. The Kobject counts its own aliases
// (AddRef/Close) while every backend resource counts its own lifetime
// (Resource.AddRef/Resource.Release). Copy creates a new Kobject with a fresh
// alias count and a fresh offset, sharing only the resource.
//
// Dispatch:
// Every operation checks the kind before touching the backend and returns a
// distinguished *Error (NotFound, NotImplemented, InvalidRequest,
// NotADirectory) when the operation is not defined for the kind.
//
// Thread Safety:
// This package performs no synchronization. The caller serializes access to a
// given Kobject. Blocking behavior belongs to the backends.
package kobject
