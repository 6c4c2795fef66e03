package activitypub

import "testing"

func TestIsPublic(t *testing.T) {
	tests := []struct {
		name     string
		activity map[string]interface{}
		want     bool
	}{
		{
			"public in to",
			map[string]interface{}{"to": []interface{}{PublicAudience}},
			true,
		},
		{
			"public in cc",
			map[string]interface{}{"cc": []interface{}{"https://example.com/followers", PublicAudience}},
			true,
		},
		{
			"public as bare string",
			map[string]interface{}{"to": PublicAudience},
			true,
		},
		{
			"mastodon shorthand",
			map[string]interface{}{"to": []interface{}{"as:Public"}},
			true,
		},
		{
			"public on embedded object only",
			map[string]interface{}{
				"object": map[string]interface{}{"to": []interface{}{PublicAudience}},
			},
			true,
		},
		{
			"addressed to a user",
			map[string]interface{}{"to": []interface{}{"https://mastodon.example/users/bob"}},
			false,
		},
		{
			"no addressing at all",
			map[string]interface{}{"type": "Create"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPublic(tt.activity); got != tt.want {
				t.Errorf("IsPublic = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsSupportedType(t *testing.T) {
	for _, supported := range []string{"Follow", "Undo", "Create", "Announce", "Delete", "Like", "Accept", "Note"} {
		if !IsSupportedType(supported) {
			t.Errorf("Expected %s to be supported", supported)
		}
	}
	for _, unsupported := range []string{"Block", "Move", "Question", ""} {
		if IsSupportedType(unsupported) {
			t.Errorf("Expected %s to be unsupported", unsupported)
		}
	}
}

func TestObjectID(t *testing.T) {
	if got := objectID("https://example.com/1"); got != "https://example.com/1" {
		t.Errorf("objectID(string) = %q", got)
	}
	if got := objectID(map[string]interface{}{"id": "https://example.com/2"}); got != "https://example.com/2" {
		t.Errorf("objectID(map) = %q", got)
	}
	if got := objectID(nil); got != "" {
		t.Errorf("objectID(nil) = %q", got)
	}
	if got := objectID(42); got != "" {
		t.Errorf("objectID(int) = %q", got)
	}
}
