package dotheworkv1

import (
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(Codec)
	if c == nil {
		t.Fatalf("codec %q not registered", Codec)
	}

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	raw, err := c.Marshal(&CreateBookingRequest{ServiceId: "s1", StartTime: timestamppb.New(start)})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if !strings.Contains(string(raw), `"service_id":"s1"`) {
		t.Fatalf("payload = %s", raw)
	}

	var got CreateBookingRequest
	if err := c.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !got.StartTime.AsTime().Equal(start) {
		t.Fatalf("start_time = %v, want %v", got.StartTime.AsTime(), start)
	}
}
