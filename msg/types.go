// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package msg

// =============================================================================
// KINDS
// =============================================================================

// Kind is the textual type tag carried in every wire message's "name" field.
type Kind string

// Response message kinds supported by the catalog.
const (
	KindDiagnostic     Kind = "Diagnostic"
	KindCommandLine    Kind = "CommandLine"
	KindStatistic      Kind = "Statistic"
	KindFileList       Kind = "FileList"
	KindFunctionList   Kind = "FunctionList"
	KindLoopTree       Kind = "LoopTree"
	KindCalleeFuncList Kind = "CalleeFuncList"
	KindAliasTree      Kind = "AliasTree"
)

// Message is a tagged value decoded from wire text.
//
// Implementations are plain structs produced by Decode and must be treated
// as immutable after decoding.
type Message interface {
	// MsgKind returns the discriminant tag for this message.
	MsgKind() Kind
}

// =============================================================================
// SHARED VALUE TYPES
// =============================================================================

// Location is a source position reported by the analyzer. Line and Column
// are 1-indexed. MacroLine/MacroColumn point at the macro expansion site
// when the primary position is inside a macro body.
type Location struct {
	// Line is the 1-indexed line number.
	Line int `json:"Line"`

	// Column is the 1-indexed column number.
	Column int `json:"Column"`

	// MacroLine is the macro expansion line, or 0 when not in a macro.
	MacroLine int `json:"MacroLine"`

	// MacroColumn is the macro expansion column, or 0 when not in a macro.
	MacroColumn int `json:"MacroColumn"`

	// Path is the file the position refers to, relative to the artifact.
	Path string `json:"Path"`
}

// DiagnosticStatus is the analyzer's verdict on a request.
type DiagnosticStatus string

// Diagnostic status values.
const (
	StatusSuccess DiagnosticStatus = "Success"
	StatusError   DiagnosticStatus = "Error"
	StatusInvalid DiagnosticStatus = "Invalid"
)

// =============================================================================
// RESPONSE MESSAGES
// =============================================================================

// Diagnostic reports the outcome of a request. Diagnostics are data, not
// exceptions: error and invalid statuses travel the normal dispatch path.
type Diagnostic struct {
	// Status is the overall verdict.
	Status DiagnosticStatus `json:"Status"`

	// Error lists analyzer-reported errors.
	Error []string `json:"Error"`

	// Warning lists analyzer-reported warnings.
	Warning []string `json:"Warning"`

	// Terminal is optional console output to surface verbatim.
	Terminal string `json:"Terminal"`
}

// MsgKind implements Message.
func (Diagnostic) MsgKind() Kind { return KindDiagnostic }

// CommandLine describes the analyzer's effective command line for the
// artifact, including redirections and the active query.
type CommandLine struct {
	// Args is the analyzer argv, Args[0] being the tool name.
	Args []string `json:"Args"`

	// Input is the input redirection, empty when unset.
	Input string `json:"Input"`

	// Output is the output redirection, empty when unset.
	Output string `json:"Output"`

	// Error is the error-stream redirection, empty when unset.
	Error string `json:"Error"`

	// Query is the active analysis query, empty when unset.
	Query string `json:"Query"`
}

// MsgKind implements Message.
func (CommandLine) MsgKind() Kind { return KindCommandLine }

// Statistic carries per-artifact analysis counters.
type Statistic struct {
	// Files maps a file role (e.g. "user", "system") to a file count.
	Files map[string]int `json:"Files"`

	// Functions is the total number of analyzed functions.
	Functions int `json:"Functions"`

	// UserFunctions is the subset of Functions defined in user code.
	UserFunctions int `json:"UserFunctions"`

	// Loops is the total number of analyzed loops.
	Loops int `json:"Loops"`

	// ParallelLoops is the subset of Loops proven parallelizable.
	ParallelLoops int `json:"ParallelLoops"`

	// Traits maps a trait name to the number of entities exhibiting it.
	Traits map[string]int `json:"Traits"`
}

// MsgKind implements Message.
func (Statistic) MsgKind() Kind { return KindStatistic }

// File is one source file known to the analyzer.
type File struct {
	// ID is the analyzer's stable numeric identifier for the file.
	ID int `json:"ID"`

	// Name is the file path as the analyzer sees it.
	Name string `json:"Name"`
}

// FileList enumerates the source files the analyzer has visited.
type FileList struct {
	Files []File `json:"Files"`
}

// MsgKind implements Message.
func (FileList) MsgKind() Kind { return KindFileList }

// Function is one analyzed function.
type Function struct {
	// ID is the analyzer's stable numeric identifier for the function.
	ID int `json:"ID"`

	// Name is the function's source name.
	Name string `json:"Name"`

	// User is true when the function is defined in user code.
	User bool `json:"User"`

	// Lines is the function body's line extent.
	Lines int `json:"Lines"`

	// Loc is the definition location.
	Loc Location `json:"Loc"`

	// Traits maps trait names to the analyzer's yes/no verdict.
	Traits map[string]string `json:"Traits"`

	// Exit is the number of function exits, -1 when unknown.
	Exit int `json:"Exit"`
}

// FunctionList is the analyzer's snapshot of all functions in the artifact.
type FunctionList struct {
	Functions []Function `json:"Functions"`
}

// MsgKind implements Message.
func (FunctionList) MsgKind() Kind { return KindFunctionList }

// Loop is one loop in a function's loop tree.
type Loop struct {
	// ID is the analyzer's stable numeric identifier for the loop.
	ID int `json:"ID"`

	// Level is the nesting depth, 1 for top-level loops.
	Level int `json:"Level"`

	// Type describes the loop construct (e.g. "for", "while", "implicit").
	Type string `json:"Type"`

	// IsAnalyzed is false when the analyzer skipped the loop body.
	IsAnalyzed bool `json:"IsAnalyzed"`

	// StartLoc is the loop's opening position.
	StartLoc Location `json:"StartLoc"`

	// EndLoc is the loop's closing position.
	EndLoc Location `json:"EndLoc"`

	// Traits maps trait names to the analyzer's yes/no verdict.
	Traits map[string]string `json:"Traits"`

	// Exit is the number of loop exits, -1 when unknown.
	Exit int `json:"Exit"`
}

// LoopTree is the loop hierarchy of one function, flattened in pre-order
// with nesting encoded by Loop.Level.
type LoopTree struct {
	// FunctionID identifies the owning function.
	FunctionID int `json:"FunctionID"`

	Loops []Loop `json:"Loops"`
}

// MsgKind implements Message.
func (LoopTree) MsgKind() Kind { return KindLoopTree }

// CalleeKind classifies a callee entry in a CalleeFuncList.
type CalleeKind string

// Callee kinds.
const (
	CalleeFunction CalleeKind = "Function"
	CalleeGoto     CalleeKind = "Goto"
	CalleeBreak    CalleeKind = "Break"
	CalleeReturn   CalleeKind = "Return"
	CalleeExit     CalleeKind = "Exit"
)

// CalleeFunc is one callee (or control-flow exit) reachable from the
// requested scope.
type CalleeFunc struct {
	// Kind classifies the entry.
	Kind CalleeKind `json:"Kind"`

	// CalleeID is the callee function's numeric ID, 0 for non-function kinds.
	CalleeID int `json:"CalleeID"`

	// Name is the callee's source name, empty for non-function kinds.
	Name string `json:"Name"`

	// StartLoc lists every call (or statement) site.
	StartLoc []Location `json:"StartLoc"`
}

// CalleeFuncList is the incremental call-graph response for one scope.
type CalleeFuncList struct {
	// FuncID identifies the function whose scope was queried.
	FuncID int `json:"FuncID"`

	// LoopID narrows the scope to a loop, 0 for the whole function.
	LoopID int `json:"LoopID"`

	// Attr lists the trait attributes the query filtered on.
	Attr []string `json:"Attr"`

	Functions []CalleeFunc `json:"Functions"`
}

// MsgKind implements Message.
func (CalleeFuncList) MsgKind() Kind { return KindCalleeFuncList }

// AliasNodeKind classifies a node in an alias tree.
type AliasNodeKind string

// Alias node kinds.
const (
	AliasTop       AliasNodeKind = "Top"
	AliasUnknown   AliasNodeKind = "Unknown"
	AliasEstimate  AliasNodeKind = "Estimate"
	AliasCollapsed AliasNodeKind = "Collapsed"
)

// AliasNode is one node of an alias tree.
type AliasNode struct {
	// ID is the analyzer's stable numeric identifier for the node.
	ID int `json:"ID"`

	// Kind classifies the node.
	Kind AliasNodeKind `json:"Kind"`

	// Coverage is true when the node covers its children's locations.
	Coverage bool `json:"Coverage"`

	// Traits maps trait names to the analyzer's verdict.
	Traits map[string]string `json:"Traits"`

	// MemoryLocations lists the memory locations the node represents.
	MemoryLocations []string `json:"MemoryLocations"`
}

// AliasEdge links two alias tree nodes.
type AliasEdge struct {
	// From is the parent node ID.
	From int `json:"From"`

	// To is the child node ID.
	To int `json:"To"`

	// Kind describes the edge (e.g. "Unknown", "Child").
	Kind string `json:"Kind"`
}

// AliasTree is the alias analysis result for one (function, loop) scope.
type AliasTree struct {
	// FuncID identifies the function whose scope was queried.
	FuncID int `json:"FuncID"`

	// LoopID narrows the scope to a loop, 0 for the whole function.
	LoopID int `json:"LoopID"`

	Nodes []AliasNode `json:"Nodes"`
	Edges []AliasEdge `json:"Edges"`
}

// MsgKind implements Message.
func (AliasTree) MsgKind() Kind { return KindAliasTree }
