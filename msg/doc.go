// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package msg defines the analyzer wire messages and the decoding catalog.
//
// Every message the analyzer emits is a JSON object carrying a "name" tag
// that identifies its kind. The catalog maps each tag to a decoding routine
// and produces one typed, immutable value per wire message. Decoding is
// pure: it performs no I/O and mutates no shared state, so it can be tested
// with literal JSON strings.
//
// Requests flow the other way (client to analyzer) and are encoded but
// never decoded; only response kinds participate in the decode catalog.
//
// Dispatch on decoded values is by the Kind discriminant, not by runtime
// type probing: callers switch on Message.MsgKind() or type-switch on the
// concrete variant.
package msg
