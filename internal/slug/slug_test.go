package slug

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMake(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "simple", in: "SuperData", want: "superdata"},
		{name: "spaces", in: "Stripe Payments API", want: "stripe-payments-api"},
		{name: "punctuation runs", in: "Foo!!  Bar__v2", want: "foo-bar-v2"},
		{name: "leading and trailing junk", in: "  (Weather) ", want: "weather"},
		{name: "unicode stripped", in: "Café API", want: "caf-api"},
		{name: "empty", in: "", want: ""},
		{name: "only punctuation", in: "!!!", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Make(tt.in)); diff != "" {
				t.Errorf("Make(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}
