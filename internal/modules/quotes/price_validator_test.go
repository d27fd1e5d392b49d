package quotes

import (
	"testing"

	"github.com/aristath/storable/internal/domain"
	testingpkg "github.com/aristath/storable/internal/testing"
	"github.com/stretchr/testify/assert"
)

func TestValidateQuote(t *testing.T) {
	quote := func(o, h, l, c string) domain.Quote {
		return domain.Quote{
			Open:  testingpkg.Dec(o),
			High:  testingpkg.Dec(h),
			Low:   testingpkg.Dec(l),
			Close: testingpkg.Dec(c),
		}
	}

	testCases := []struct {
		name   string
		quote  domain.Quote
		valid  bool
		reason string
	}{
		{"consistent", quote("120", "122", "119", "121"), true, ""},
		{"flat day", quote("10", "10", "10", "10"), true, ""},
		{"high below low", quote("120", "118", "119", "119"), false, "high_below_low"},
		{"high below open", quote("123", "122", "119", "121"), false, "high_below_open"},
		{"high below close", quote("120", "122", "119", "123"), false, "high_below_close"},
		{"low above open", quote("118", "122", "119", "121"), false, "low_above_open"},
		{"low above close", quote("120", "122", "119", "118.5"), false, "low_above_close"},
		{"zero prices", quote("0", "0", "0", "0"), false, "non_positive_price"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			valid, reason := ValidateQuote(tc.quote)
			assert.Equal(t, tc.valid, valid)
			assert.Equal(t, tc.reason, reason)
		})
	}
}
