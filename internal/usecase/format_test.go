package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatGNF(t *testing.T) {
	cases := map[int64]string{
		0:       "0 GNF",
		950:     "950 GNF",
		35000:   "35 000 GNF",
		115000:  "115 000 GNF",
		1250000: "1 250 000 GNF",
		-80000:  "-80 000 GNF",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatGNF(in))
	}
}

func TestRecipientKey(t *testing.T) {
	assert.Equal(t, "email:fatou@example.gn", Recipient{Email: " Fatou@Example.gn "}.Key())
}
