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

import (
	"errors"
	"reflect"
	"testing"
)

func TestCatalog_Decode(t *testing.T) {
	c := Default()

	t.Run("diagnostic", func(t *testing.T) {
		m, err := c.Decode(`{"name":"Diagnostic","Status":"Error","Error":["no input"],"Terminal":"tsar: no input"}`)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		d, ok := m.(Diagnostic)
		if !ok {
			t.Fatalf("Decode() = %T, want Diagnostic", m)
		}
		if d.Status != StatusError {
			t.Errorf("Status = %q, want %q", d.Status, StatusError)
		}
		if len(d.Error) != 1 || d.Error[0] != "no input" {
			t.Errorf("Error = %v, want [no input]", d.Error)
		}
	})

	t.Run("function list", func(t *testing.T) {
		m, err := c.Decode(`{"name":"FunctionList","Functions":[{"ID":7,"Name":"main","User":true,"Loc":{"Line":3,"Column":1,"Path":"main.c"}}]}`)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		fl, ok := m.(FunctionList)
		if !ok {
			t.Fatalf("Decode() = %T, want FunctionList", m)
		}
		if len(fl.Functions) != 1 || fl.Functions[0].ID != 7 || fl.Functions[0].Name != "main" {
			t.Errorf("Functions = %+v", fl.Functions)
		}
	})

	t.Run("loop tree", func(t *testing.T) {
		m, err := c.Decode(`{"name":"LoopTree","FunctionID":7,"Loops":[{"ID":1,"Level":1,"Type":"for","IsAnalyzed":true}]}`)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		lt := m.(LoopTree)
		if lt.FunctionID != 7 || len(lt.Loops) != 1 || lt.Loops[0].Type != "for" {
			t.Errorf("LoopTree = %+v", lt)
		}
	})

	t.Run("callee list", func(t *testing.T) {
		m, err := c.Decode(`{"name":"CalleeFuncList","FuncID":7,"LoopID":1,"Attr":["AlwaysReturn"],"Functions":[{"Kind":"Goto","StartLoc":[{"Line":9,"Column":5}]}]}`)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		cl := m.(CalleeFuncList)
		if cl.FuncID != 7 || cl.LoopID != 1 || cl.Functions[0].Kind != CalleeGoto {
			t.Errorf("CalleeFuncList = %+v", cl)
		}
	})

	t.Run("unknown tag", func(t *testing.T) {
		_, err := c.Decode(`{"name":"Mystery","X":1}`)
		if !errors.Is(err, ErrUnknownKind) {
			t.Fatalf("Decode() error = %v, want ErrUnknownKind", err)
		}
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("Decode() error type = %T, want *DecodeError", err)
		}
		if de.Kind != "Mystery" {
			t.Errorf("DecodeError.Kind = %q, want Mystery", de.Kind)
		}
	})

	t.Run("missing tag", func(t *testing.T) {
		_, err := c.Decode(`{"Status":"Success"}`)
		if !errors.Is(err, ErrMissingTag) {
			t.Errorf("Decode() error = %v, want ErrMissingTag", err)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		m, err := c.Decode(`{"name":"Statistic","Loops":"not-a-number"}`)
		if err == nil {
			t.Fatalf("Decode() = %v, want error", m)
		}
		if m != nil {
			t.Errorf("Decode() returned a partial value %v on failure", m)
		}
	})

	t.Run("truncated frame", func(t *testing.T) {
		if _, err := c.Decode(`{"name":"Statistic","Loo`); err == nil {
			t.Error("Decode() accepted truncated input")
		}
	})
}

func TestCatalog_Register(t *testing.T) {
	c := NewCatalog()
	if err := c.Register(KindDiagnostic, decodeAs[Diagnostic]); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := c.Register(KindDiagnostic, decodeAs[Diagnostic]); !errors.Is(err, ErrKindRegistered) {
		t.Errorf("Register() duplicate error = %v, want ErrKindRegistered", err)
	}
	if got := c.Kinds(); len(got) != 1 || got[0] != KindDiagnostic {
		t.Errorf("Kinds() = %v", got)
	}
}

func TestEncodeRequest(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"statistic", StatisticRequest{}, `{"name":"Statistic"}`},
		{"file list", FileListRequest{}, `{"name":"FileList"}`},
		{"function list", FunctionListRequest{}, `{"name":"FunctionList"}`},
		{"loop tree", LoopTreeRequest{FunctionID: 7}, `{"name":"LoopTree","FunctionID":7}`},
		{
			"callee list",
			CalleeFuncListRequest{FuncID: 7, LoopID: 2, Attr: []string{"InOut"}},
			`{"name":"CalleeFuncList","FuncID":7,"LoopID":2,"Attr":["InOut"]}`,
		},
		{"alias tree", AliasTreeRequest{FuncID: 7}, `{"name":"AliasTree","FuncID":7,"LoopID":0}`},
		{"command line fetch", CommandLineRequest{}, `{"name":"CommandLine"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeRequest(tt.req)
			if err != nil {
				t.Fatalf("EncodeRequest() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("EncodeRequest() = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestEncodeDecodeRoundTrip checks that every response kind survives an
// encode/decode cycle unchanged.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := Default()
	messages := []Message{
		Diagnostic{Status: StatusSuccess, Warning: []string{"late"}},
		CommandLine{Args: []string{"tsar-server", "-f"}, Query: "loops"},
		Statistic{Functions: 4, UserFunctions: 2, Traits: map[string]int{"Readonly": 3}},
		FileList{Files: []File{{ID: 1, Name: "main.c"}}},
		FunctionList{Functions: []Function{{ID: 7, Name: "main", User: true, Exit: 1}}},
		LoopTree{FunctionID: 7, Loops: []Loop{{ID: 1, Level: 1, Type: "while"}}},
		CalleeFuncList{FuncID: 7, Functions: []CalleeFunc{{Kind: CalleeFunction, CalleeID: 9, Name: "helper"}}},
		AliasTree{FuncID: 7, LoopID: 1, Nodes: []AliasNode{{ID: 1, Kind: AliasTop}}, Edges: []AliasEdge{{From: 1, To: 2, Kind: "Child"}}},
	}
	for _, m := range messages {
		t.Run(string(m.MsgKind()), func(t *testing.T) {
			encoded, err := Encode(m)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			decoded, err := c.Decode(string(encoded))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(decoded, m) {
				t.Errorf("round trip = %+v, want %+v", decoded, m)
			}
		})
	}
}
