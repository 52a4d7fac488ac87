package namelist

import (
	"reflect"
	"testing"
)

func TestNormalizeMasksGlyphs(t *testing.T) {
	got := NormalizeMasks([]string{" 王X明 ", "李○華", "陳＊安", "", "林■文"})
	want := []string{"王*明", "李*華", "陳*安", "林*文"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestNormalizeMasksSiblingInference(t *testing.T) {
	got := NormalizeMasks([]string{"張*睿", "林*茹", "盧嘉"})
	want := []string{"張*睿", "林*茹", "盧*嘉"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestNormalizeMasksNoInferenceWhenMinorityMasked(t *testing.T) {
	in := []string{"王小明", "李大華", "張*睿"}
	got := NormalizeMasks(append([]string{}, in...))
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("got %v want unchanged %v", got, in)
	}
}

func TestNormalizeMasksKeepsMaskedLengths(t *testing.T) {
	// A token that already carries a mask is never padded, even when its
	// shape disagrees with the modal one.
	got := NormalizeMasks([]string{"張*睿", "林*茹", "歐陽*妮"})
	want := []string{"張*睿", "林*茹", "歐陽*妮"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
