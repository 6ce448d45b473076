package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeText(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		text string
		out  []string
	}{
		{text: "", out: []string{}},
		{text: "Hello, world!", out: []string{"hello", "world"}},
		{text: "Gdańsk", out: []string{"gdansk"}},
		{text: "d.i.d system", out: []string{"d", "i", "d", "system"}},
		{text: "semi-colon", out: []string{"semi", "colon"}},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, TokenizeText(fix.text))
	}
}
