package intake

import (
	"reflect"
	"strings"
	"testing"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

func TestMarkerDetector(t *testing.T) {
	detector := NewMarkerDetector(DefaultMarkers())

	cases := []struct {
		text string
		want bool
	}{
		{"I THINK this text from my bank is fake", true},
		{"got this, what should I do about it?", true},
		{"Can you help me understand this?", true},
		{"Your account will be suspended in 1 hour unless you verify now", false},
		{"hey are we still on for lunch tomorrow", false},
	}
	for _, tc := range cases {
		if got := detector.IsConversational(tc.text); got != tc.want {
			t.Fatalf("IsConversational(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestLoadMarkersOverridesDefaults(t *testing.T) {
	markers, err := LoadMarkers(strings.NewReader("markers:\n  - je pense\n  - \"  \"\n  - Aidez-moi\n"))
	if err != nil {
		t.Fatalf("LoadMarkers() error = %v", err)
	}
	if !reflect.DeepEqual(markers, []string{"je pense", "Aidez-moi"}) {
		t.Fatalf("unexpected markers: %q", markers)
	}

	detector := NewMarkerDetector(markers)
	if !detector.IsConversational("aidez-moi avec ce message svp") {
		t.Fatalf("expected loaded marker to match")
	}
	if detector.IsConversational("I think this is fine") {
		t.Fatalf("loaded markers replace the defaults")
	}
}

func TestLoadMarkersRejectsEmptyList(t *testing.T) {
	if _, err := LoadMarkers(strings.NewReader("markers: []\n")); err == nil {
		t.Fatalf("expected error for an empty marker list")
	}
}

func TestNormalizeText(t *testing.T) {
	text, err := NormalizeText(domain.StringField("   Your parcel is held at customs, pay now  "), DefaultMinLength)
	if err != nil {
		t.Fatalf("NormalizeText() error = %v", err)
	}
	if text != "Your parcel is held at customs, pay now" {
		t.Fatalf("unexpected text %q", text)
	}

	cases := []struct {
		name  string
		field domain.Field
		want  domain.RejectionCode
	}{
		{"too short", domain.StringField("too short"), domain.CodeTextTooShort},
		{"blank", domain.StringField("     "), domain.CodeEmptyText},
		{"not a string", domain.Field{Present: true, IsString: false}, domain.CodeEmptyText},
	}
	for _, tc := range cases {
		_, err := NormalizeText(tc.field, DefaultMinLength)
		code, ok := domain.RejectionCodeOf(err)
		if !ok || code != tc.want {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.want, err)
		}
	}
}

func TestLengthCountsCharactersNotBytes(t *testing.T) {
	// 20 accented characters, 40 bytes.
	if !LongEnough(strings.Repeat("é", 20), DefaultMinLength) {
		t.Fatalf("20 characters should be long enough")
	}
	if LongEnough(strings.Repeat("é", 19), DefaultMinLength) {
		t.Fatalf("19 characters should be too short")
	}
}
