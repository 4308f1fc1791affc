package pipeline

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValuePatterns(t *testing.T) {
	cases := []struct {
		name  string
		re    *regexp.Regexp
		input string
		want  string
	}{
		{name: "state comma token", re: reStateFallback, input: "Macon, GA 31201", want: "GA"},
		{name: "state at end", re: reStateFallback, input: "Macon, GA", want: "GA"},
		{name: "city before state", re: reCityFallback, input: "12 Elm St, Macon, GA", want: "Macon"},
		{name: "wo prose", re: reWorkOrderFallback, input: "re: W.O. 44512 follow up", want: "44512"},
		{name: "po prose", re: rePOFallback, input: "under PO#31337", want: "31337"},
		{name: "amount", re: reAmount, input: "price $1,250.00", want: "1,250.00"},
		{name: "order token", re: reOrderToken, input: " No. WO-55", want: "WO-55"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := tc.re.FindStringSubmatch(tc.input)
			if assert.NotNil(t, m) {
				assert.Equal(t, tc.want, m[1])
			}
		})
	}
}

func TestPatternsRejectLookalikes(t *testing.T) {
	assert.False(t, reStateFallback.MatchString("Macon, Ga"))
	assert.False(t, rePOFallback.MatchString("P.O. Box 12"))
	assert.False(t, rePOAbbrevLabel.MatchString("P.O. Box 12"))
	assert.False(t, reWorkOrderFallback.MatchString("two 12345"))
	assert.False(t, reOrderToken.MatchString(" Details"))
	assert.False(t, reStateLabel.MatchString("Statement: 4"))
}

func TestEmailAndPhonePatterns(t *testing.T) {
	assert.Equal(t, "pm@example.com", reEmail.FindString("send to <pm@example.com>"))
	assert.Equal(t, "(555) 123-4567", rePhone.FindString("call (555) 123-4567 now"))
	assert.Equal(t, "555.123.4567", rePhone.FindString("555.123.4567"))
	assert.Empty(t, reEmail.FindString("pm at example dot com"))
	assert.Equal(t, "3/4/25", reDate.FindString("on 3/4/25 at noon"))
}
