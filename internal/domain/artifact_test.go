package domain

import "testing"

func TestUsableArtifactURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{name: "https cdn", url: "https://cdn.example.com/img/1.png", want: true},
		{name: "http allowed", url: "http://images.example.com/1.jpg", want: true},
		{name: "surrounding whitespace trimmed", url: "  https://cdn.example.com/1.png  ", want: true},
		{name: "blob scheme", url: "blob:https://app.example.com/550e8400", want: false},
		{name: "data scheme", url: "data:image/png;base64,iVBORw0KGgo=", want: false},
		{name: "file scheme", url: "file:///tmp/out.png", want: false},
		{name: "relative reference", url: "/static/out.png", want: false},
		{name: "empty", url: "", want: false},
		{name: "localhost", url: "http://localhost:9000/out.png", want: false},
		{name: "loopback v4", url: "http://127.0.0.1/out.png", want: false},
		{name: "loopback v6", url: "http://[::1]/out.png", want: false},
		{name: "placeholder host", url: "https://via.placeholder.com/300", want: false},
		{name: "placehold co", url: "https://placehold.co/600x400", want: false},
		{name: "scheme case insensitive", url: "HTTPS://cdn.example.com/1.png", want: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := UsableArtifactURL(tc.url); got != tc.want {
				t.Fatalf("UsableArtifactURL(%q) = %v, want %v", tc.url, got, tc.want)
			}
		})
	}
}

func TestPostPrimaryImageURL(t *testing.T) {
	post := &Post{Images: []Artifact{
		{URL: "https://cdn.example.com/1.png", Selected: false},
		{URL: "https://cdn.example.com/2.png", Selected: true},
	}}
	if got := post.PrimaryImageURL(); got != "https://cdn.example.com/2.png" {
		t.Fatalf("PrimaryImageURL() = %q, want first selected", got)
	}

	post.Images[1].Selected = false
	if got := post.PrimaryImageURL(); got != "https://cdn.example.com/1.png" {
		t.Fatalf("PrimaryImageURL() = %q, want first image fallback", got)
	}

	var nilPost *Post
	if got := nilPost.PrimaryImageURL(); got != "" {
		t.Fatalf("nil post PrimaryImageURL() = %q, want empty", got)
	}
}

func TestPostPersistable(t *testing.T) {
	if (&Post{ID: 0}).Persistable() {
		t.Fatal("post without id should not be persistable")
	}
	if !(&Post{ID: 42}).Persistable() {
		t.Fatal("post with id should be persistable")
	}
	var nilPost *Post
	if nilPost.Persistable() {
		t.Fatal("nil post should not be persistable")
	}
}
