package display

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/gemimg/gemimg/pkg/models"
)

func TestDisplay(t *testing.T) {
	var out bytes.Buffer
	d := New(&out)

	img := &models.ResultImage{Data: []byte("fake image bytes"), MIMEType: models.MIMEPNG}
	if err := d.Display(img); err != nil {
		t.Fatalf("Display() error = %v", err)
	}

	got := out.String()
	if !strings.HasPrefix(got, escapeStart+"a=T,f=100,q=2;") {
		t.Errorf("output does not start with a kitty transmit sequence: %q", got[:min(40, len(got))])
	}
	wantPayload := base64.StdEncoding.EncodeToString(img.Data)
	if !strings.Contains(got, wantPayload) {
		t.Error("output does not contain the base64 payload")
	}
}

func TestDisplayNoData(t *testing.T) {
	d := New(&bytes.Buffer{})
	if err := d.Display(nil); err == nil {
		t.Error("Display(nil) expected error")
	}
	if err := d.Display(&models.ResultImage{}); err == nil {
		t.Error("Display(empty) expected error")
	}
}

func TestKittyEncoderChunking(t *testing.T) {
	// More than one chunk of base64 output.
	data := bytes.Repeat([]byte{0xAB}, chunkSize)

	var out bytes.Buffer
	if err := NewKittyEncoder(&out).Encode(data); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "m=1") {
		t.Error("chunked output missing continuation marker")
	}
	if !strings.Contains(got, escapeStart+"m=0;") {
		t.Error("chunked output missing final chunk marker")
	}

	// Reassembling the payload chunks yields the full encoding.
	var payload strings.Builder
	for _, seq := range strings.Split(got, escapeEnd) {
		if seq == "" {
			continue
		}
		body := seq[strings.Index(seq, ";")+1:]
		payload.WriteString(body)
	}
	if payload.String() != base64.StdEncoding.EncodeToString(data) {
		t.Error("reassembled chunks do not match the encoded payload")
	}
}

func TestKittyEncoderEmpty(t *testing.T) {
	var out bytes.Buffer
	if err := NewKittyEncoder(&out).Encode(nil); err != nil {
		t.Fatalf("Encode(nil) error = %v", err)
	}
	if out.Len() != 0 {
		t.Error("empty input should produce no output")
	}
}
