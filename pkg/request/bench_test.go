package request

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
)

func benchRaw(bodySize, headerCount int) RawRequest {
	headers := make([]HeaderPair, 0, headerCount)
	for i := 0; i < headerCount; i++ {
		headers = append(headers, HeaderPair{Name: fmt.Sprintf("X-Header-%d", i%8), Value: "value"})
	}
	return RawRequest{
		Method:  "POST",
		Target:  "/api/orders?page=2",
		Headers: headers,
		Body:    NewBodySource(strings.NewReader(strings.Repeat("x", bodySize))),
	}
}

func BenchmarkCapture(b *testing.B) {
	for _, size := range []int{0, 1 << 10, 64 << 10} {
		b.Run(fmt.Sprintf("body=%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(size))
			for i := 0; i < b.N; i++ {
				if _, err := Capture(context.Background(), benchRaw(size, 16)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRender(b *testing.B) {
	snap, err := Capture(context.Background(), benchRaw(1<<10, 16))
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = RenderTo(io.Discard, snap)
	}
}

func BenchmarkDecodeJSON(b *testing.B) {
	snap := &Snapshot{Body: []byte(`{"id":7,"items":[{"sku":"a","qty":1},{"sku":"b","qty":2}],"note":"rush"}`)}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := DecodeJSON[map[string]any](snap); err != nil {
			b.Fatal(err)
		}
	}
}
