package yamlutil

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func TestUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		want    sample
		wantErr error
	}{
		{
			name: "valid document",
			data: "name: render\ncount: 3\n",
			want: sample{Name: "render", Count: 3},
		},
		{
			name:    "empty data",
			data:    "",
			wantErr: ErrNilData,
		},
		{
			name:    "malformed document",
			data:    "name: [unclosed",
			wantErr: errors.New("yamlutil"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got sample
			err := Unmarshal([]byte(tt.data), &got)
			if tt.wantErr != nil {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, tt.wantErr) && !strings.Contains(err.Error(), tt.wantErr.Error()) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if got != tt.want {
				t.Errorf("Unmarshal = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestUnmarshalNilDestination(t *testing.T) {
	t.Parallel()

	if err := Unmarshal([]byte("a: 1"), nil); !errors.Is(err, ErrNilDestination) {
		t.Errorf("err = %v, want ErrNilDestination", err)
	}
}

func TestUnmarshalStrict(t *testing.T) {
	t.Parallel()

	var got sample
	if err := UnmarshalStrict([]byte("name: x\ncount: 1\n"), &got); err != nil {
		t.Fatalf("UnmarshalStrict: %v", err)
	}

	if err := UnmarshalStrict([]byte("name: x\nbogus: 1\n"), &got); err == nil {
		t.Error("unknown field accepted in strict mode")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	in := sample{Name: "viewer", Count: 7}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out sample
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}
