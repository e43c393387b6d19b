// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session owns one supervised analyzer connection per artifact.
//
// A session is created by the engine after a successful handshake and owns
// the outbound request queue, the inbound decoded-message stream, an
// append-only response log, and the provider states attached to it. One
// writer goroutine drains the queue so request order is preserved and
// concurrent senders never interleave partial writes; one read loop feeds
// the framer and decoder so messages reach providers in the exact order
// the analyzer emitted them.
//
// Stopping is the only cancellation primitive. Stop is idempotent; a
// stopped session silently discards further sends and inbound data, and
// queued writes die with it rather than leaking into a successor session
// for the same artifact. Frame, decode, and reject failures are fatal to
// the session; errors inside one provider's message handling are isolated
// to that provider.
package session
