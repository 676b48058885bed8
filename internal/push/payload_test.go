package push

import (
	"errors"
	"testing"
	"time"

	"github.com/lmoreira/courier/internal/store"
)

func TestParseText(t *testing.T) {
	sentAt := time.UnixMilli(1700000000000)
	in, err := Parse(map[string]string{
		KeyMessageType: "1",
		KeyTitle:       "5511999990000",
		KeyMessage:     "hello there",
	}, sentAt)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if in.SenderID != "5511999990000" {
		t.Errorf("sender = %q, want 5511999990000", in.SenderID)
	}
	if in.Kind != store.KindText {
		t.Errorf("kind = %d, want text", in.Kind)
	}
	if in.Body == nil || *in.Body != "hello there" {
		t.Errorf("body = %v, want hello there", in.Body)
	}
	if in.SentAt != 1700000000000 {
		t.Errorf("sentAt = %d, want 1700000000000", in.SentAt)
	}
}

func TestParseImage(t *testing.T) {
	in, err := Parse(map[string]string{
		KeyMessageType: "2",
		KeyTitle:       "5511999990000",
		KeyImage:       "media-abc",
		KeyPreview:     "dGlueQ==",
		KeyWidth:       "640",
		KeyHeight:      "480",
	}, time.Now())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if in.Kind != store.KindImage {
		t.Errorf("kind = %d, want image", in.Kind)
	}
	if in.MediaID != "media-abc" {
		t.Errorf("mediaID = %q, want media-abc", in.MediaID)
	}
	if in.Width != 640 || in.Height != 480 {
		t.Errorf("dimensions = %dx%d, want 640x480", in.Width, in.Height)
	}
	if in.Body != nil {
		t.Errorf("body = %v, want nil for image without caption", in.Body)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		data map[string]string
	}{
		{"empty", map[string]string{}},
		{"missing type", map[string]string{KeyTitle: "1", KeyMessage: "x"}},
		{"non-numeric type", map[string]string{KeyMessageType: "text", KeyTitle: "1", KeyMessage: "x"}},
		{"unknown type", map[string]string{KeyMessageType: "7", KeyTitle: "1", KeyMessage: "x"}},
		{"missing sender", map[string]string{KeyMessageType: "1", KeyMessage: "x"}},
		{"text without body", map[string]string{KeyMessageType: "1", KeyTitle: "1"}},
		{"image without media id", map[string]string{KeyMessageType: "2", KeyTitle: "1", KeyPreview: "p", KeyWidth: "1", KeyHeight: "1"}},
		{"image without preview", map[string]string{KeyMessageType: "2", KeyTitle: "1", KeyImage: "m", KeyWidth: "1", KeyHeight: "1"}},
		{"image bad width", map[string]string{KeyMessageType: "2", KeyTitle: "1", KeyImage: "m", KeyPreview: "p", KeyWidth: "wide", KeyHeight: "1"}},
		{"image missing height", map[string]string{KeyMessageType: "2", KeyTitle: "1", KeyImage: "m", KeyPreview: "p", KeyWidth: "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data, time.Now())
			if !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("Parse() error = %v, want ErrMalformedPayload", err)
			}
		})
	}
}
