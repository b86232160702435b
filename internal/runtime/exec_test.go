package runtime

import (
	"errors"
	"io"
	"sort"
	"strings"
	"testing"
	"testing/iotest"
)

func TestMergeEnv(t *testing.T) {
	tests := []struct {
		name      string
		base      []string
		overrides []string
		want      []string
	}{
		{
			name:      "override wins over container spec",
			base:      []string{"PATH=/usr/bin", "PYTHONDONTWRITEBYTECODE=0"},
			overrides: []string{"PYTHONDONTWRITEBYTECODE=1"},
			want:      []string{"PATH=/usr/bin", "PYTHONDONTWRITEBYTECODE=1"},
		},
		{
			name:      "new key added",
			base:      []string{"PATH=/usr/bin"},
			overrides: []string{"PYTHONDONTWRITEBYTECODE=1"},
			want:      []string{"PATH=/usr/bin", "PYTHONDONTWRITEBYTECODE=1"},
		},
		{
			name:      "no base env",
			base:      nil,
			overrides: []string{"HOME=/home/app"},
			want:      []string{"HOME=/home/app"},
		},
		{
			name:      "no overrides",
			base:      []string{"PATH=/usr/bin"},
			overrides: nil,
			want:      []string{"PATH=/usr/bin"},
		},
		{
			name:      "value containing equals sign survives",
			base:      []string{"UV_INDEX=https://pypi.org/simple?x=1"},
			overrides: nil,
			want:      []string{"UV_INDEX=https://pypi.org/simple?x=1"},
		},
		{
			name:      "entries without equals sign dropped",
			base:      []string{"GARBAGE", "PATH=/usr/bin"},
			overrides: []string{"ALSOGARBAGE"},
			want:      []string{"PATH=/usr/bin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeEnv(tt.base, tt.overrides)
			sort.Strings(got)
			sort.Strings(tt.want)

			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d\ngot:  %v\nwant: %v", len(got), len(tt.want), got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNextExecID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		id := nextExecID()
		if id == "" {
			t.Fatal("nextExecID returned empty string")
		}
		if seen[id] {
			t.Fatalf("nextExecID returned duplicate: %q", id)
		}
		seen[id] = true
	}
}

func TestStdinReaderSignalsEOF(t *testing.T) {
	in := newStdinReader(strings.NewReader("tar bytes"))

	if _, err := io.Copy(io.Discard, in); err != nil {
		t.Fatalf("draining: %v", err)
	}

	select {
	case <-in.done:
	default:
		t.Fatal("done channel not closed after EOF")
	}
}

func TestStdinReaderSignalsProducerFailure(t *testing.T) {
	// A host-side pipe closed with an error must still end the stream, or
	// the in-container reader would block on a half-open stdin forever.
	streamErr := errors.New("producer died")
	in := newStdinReader(io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(streamErr)))

	if _, err := io.Copy(io.Discard, in); !errors.Is(err, streamErr) {
		t.Fatalf("drain error = %v, want the producer error", err)
	}

	select {
	case <-in.done:
	default:
		t.Fatal("done channel not closed after producer failure")
	}
}

func TestStdinReaderSignalsOnce(t *testing.T) {
	in := newStdinReader(strings.NewReader(""))

	buf := make([]byte, 8)
	for i := 0; i < 3; i++ {
		if _, err := in.Read(buf); err != io.EOF {
			t.Fatalf("Read %d = %v, want io.EOF", i, err)
		}
	}

	select {
	case <-in.done:
	default:
		t.Fatal("done channel not closed")
	}
}
