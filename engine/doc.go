// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine is the session registry and analyzer process supervisor.
//
// The engine holds the identity map: at most one live session per artifact
// identity. Start spawns the analyzer process, runs the handshake
// (Spawning -> WaitingForListen -> Connecting -> WaitingForAccept ->
// Ready), and only inserts the session into the registry once Ready; any
// earlier failure kills the spawned process and surfaces a handshake
// error. Stop delegates to the session and is the registry's only other
// mutation point.
//
// Renderer kinds are registered with the engine before any session starts;
// each session snapshots the registered kinds at creation.
package engine
