package audio

import "testing"

func TestBufferSource_ReadSamples(t *testing.T) {
	src := NewBufferSource([]float32{1, 2, 3, 4, 5})

	got, err := src.ReadSamples(3)
	if err != nil {
		t.Fatalf("ReadSamples: %v", err)
	}
	want := []float32{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}

	if _, err := src.ReadSamples(10); err == nil {
		t.Error("expected an error reading past the end of the buffer")
	}
}

func TestRepeatingSource_WrapsAround(t *testing.T) {
	src := NewRepeatingSource([]float32{1, 2, 3})
	got, err := src.ReadSamples(7)
	if err != nil {
		t.Fatalf("ReadSamples: %v", err)
	}
	want := []float32{1, 2, 3, 1, 2, 3, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBufferSink_WriteSamples(t *testing.T) {
	sink := NewBufferSink()
	if err := sink.WriteSamples([]float32{1, 2}); err != nil {
		t.Fatalf("WriteSamples: %v", err)
	}
	if err := sink.WriteSamples([]float32{3}); err != nil {
		t.Fatalf("WriteSamples: %v", err)
	}
	got := sink.Samples()
	want := []float32{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}
