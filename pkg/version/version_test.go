package version

import (
	"errors"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		input string
		major uint8
		minor uint8
	}{
		{"1.0", 1, 0},
		{"2.1", 2, 1},
		{"10.23", 10, 23},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if v.Major != tt.major {
				t.Errorf("Major = %d, want %d", v.Major, tt.major)
			}
			if v.Minor != tt.minor {
				t.Errorf("Minor = %d, want %d", v.Minor, tt.minor)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"",
		"2",
		"abc",
		"2.0.0",
		"2.x",
		"-1.0",
		"300.0",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			if err == nil {
				t.Errorf("Parse(%q) should return error", input)
			}
		})
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	v, err := Decode([]byte{2, 1})
	if err != nil {
		t.Fatalf("Decode() returned error: %v", err)
	}
	if v != (ApiVersion{Major: 2, Minor: 1}) {
		t.Errorf("Decode() = %v, want 2.1", v)
	}

	got := v.Encode()
	if len(got) != 2 || got[0] != 2 || got[1] != 1 {
		t.Errorf("Encode() = %v, want [2 1]", got)
	}

	if _, err := Decode([]byte{2}); !errors.Is(err, ErrBadEncoding) {
		t.Errorf("Decode(short) err = %v, want ErrBadEncoding", err)
	}
}

func TestString(t *testing.T) {
	v := ApiVersion{Major: 2, Minor: 1}
	if v.String() != "2.1" {
		t.Errorf("String() = %q, want \"2.1\"", v.String())
	}
}

func TestCompatible(t *testing.T) {
	v20 := ApiVersion{Major: 2, Minor: 0}
	v21 := ApiVersion{Major: 2, Minor: 1}
	v30 := ApiVersion{Major: 3, Minor: 0}

	if !v20.Compatible(v21) {
		t.Error("2.0 should be compatible with 2.1")
	}
	if v21.Compatible(v30) {
		t.Error("2.1 should not be compatible with 3.0")
	}
}
