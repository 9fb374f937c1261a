package models

import (
	"encoding/json"
	"testing"
)

func TestFlexIDUnmarshal(t *testing.T) {
	cases := []struct {
		in   string
		want FlexID
	}{
		{`"42"`, "42"},
		{`42`, "42"},
		{`7.5`, "7.5"},
		{`null`, ""},
		{`""`, ""},
	}
	for _, tc := range cases {
		var id FlexID
		if err := json.Unmarshal([]byte(tc.in), &id); err != nil {
			t.Errorf("Unmarshal(%s): %v", tc.in, err)
			continue
		}
		if id != tc.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tc.in, id, tc.want)
		}
	}
}

func TestFlexIDUnmarshalRejectsObjects(t *testing.T) {
	var id FlexID
	if err := json.Unmarshal([]byte(`{"id":1}`), &id); err == nil {
		t.Error("expected error for object value")
	}
}

func TestFlexIDMarshal(t *testing.T) {
	out, err := json.Marshal(FlexID("42"))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `"42"` {
		t.Errorf("Marshal = %s, want \"42\"", out)
	}
}
