package synth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestHTTPCatalog_Voices(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"strings", `{"voices":["af_bella","am_adam"]}`, []string{"af_bella", "am_adam"}},
		{"objects", `{"voices":[{"id":"v1"},{"name":"Second"}]}`, []string{"v1", "Second"}},
		{"empty list", `{"voices":[]}`, DefaultVoices},
		{"garbage", `not json`, DefaultVoices},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/audio/voices" {
					t.Errorf("path = %s", r.URL.Path)
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			got := NewHTTPCatalog(HTTPConfig{BaseURL: server.URL}).Voices(context.Background())
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Voices() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTTPCatalog_Unreachable(t *testing.T) {
	got := NewHTTPCatalog(HTTPConfig{BaseURL: "http://127.0.0.1:1"}).Voices(context.Background())
	if !reflect.DeepEqual(got, DefaultVoices) {
		t.Errorf("Voices() = %q, want defaults", got)
	}

	got[0] = "mutated"
	if DefaultVoices[0] == "mutated" {
		t.Error("Voices returned the shared default slice")
	}
}
