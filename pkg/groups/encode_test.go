package groups

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestEncodeRoundTrip(t *testing.T) {
	for _, name := range []string{"channel_groups.json", "channel_groups.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			data, err := Encode(path, Example()...)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			store, err := Parse(path, data)
			if err != nil {
				t.Fatalf("parse encoded document: %v\n%s", err, data)
			}

			for _, want := range Example() {
				got, ok := store.Lookup(want.Name)
				if !ok {
					t.Fatalf("group %q missing after round trip", want.Name)
				}
				if got.Description != want.Description || !reflect.DeepEqual(got.Channels, want.Channels) {
					t.Fatalf("group %q changed: got %+v, want %+v", want.Name, got, want)
				}
			}
		})
	}
}

func TestEncodeRejectsDuplicates(t *testing.T) {
	_, err := Encode("g.json", Group{Name: "a", Channels: []string{"#x"}}, Group{Name: "a"})
	if err == nil {
		t.Fatalf("expected a duplicate group error")
	}
}
