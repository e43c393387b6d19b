// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package provider defines the renderer state contract and the concrete
// per-kind states.
//
// A provider is the stateful half of a renderer: it owns the activation
// state machine (Inactive <-> Active), caches the last applied data of its
// message kinds, and answers whether a candidate request would be redundant
// given that cache. The rendering itself (HTML, tree views) lives outside
// this package; providers expose a render hook and already-decoded data.
//
// One provider instance exists per (session x kind). Messages outside a
// provider's kind set must be ignored without side effects. Snapshot kinds
// replace the cache outright; incremental kinds merge by a declared merge
// key. Cached data survives Active -> Inactive -> Active cycles while it
// is still valid under the kind's own freshness rule; Dispose tears
// everything down, including caches that depend on other kinds.
package provider
