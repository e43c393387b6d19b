// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package wire implements the analyzer transport framing.
//
// Messages travel as JSON text terminated by a reserved delimiter character
// that never appears inside a payload. The socket may fragment one message
// across reads or coalesce several into one; the Framer reassembles exact
// frames in emission order. The Writer produces outbound frames and keeps
// concurrent writers from interleaving partial payloads.
package wire
