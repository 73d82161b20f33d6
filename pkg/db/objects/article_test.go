package objects

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Personalized Medicine: The Future of Healthcare": "personalized-medicine-the-future-of-healthcare",
		"  Quantum Computing -- Real-World Applications!  ": "quantum-computing-real-world-applications",
		"Go 1.24 发布":  "go-1-24-发布",
		"???":          "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}

	long := Slugify(strings.Repeat("abcdefghij ", 20))
	assert.LessOrEqual(t, len(long), 80)
	assert.False(t, strings.HasSuffix(long, "-"))

	cjk := Slugify(strings.Repeat("量", 30))
	assert.True(t, utf8.ValidString(cjk))
	assert.Equal(t, strings.Repeat("量", 26), cjk)

	mixed := Slugify(strings.Repeat("a", 79) + "量子")
	assert.Equal(t, strings.Repeat("a", 79), mixed)
}

func TestReadingTimeFor(t *testing.T) {
	assert.Equal(t, 1, ReadingTimeFor(""))
	assert.Equal(t, 1, ReadingTimeFor(strings.Repeat("word ", 200)))
	assert.Equal(t, 2, ReadingTimeFor(strings.Repeat("word ", 201)))
	assert.Equal(t, 5, ReadingTimeFor(strings.Repeat("word ", 1000)))
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory("technology"))
	assert.True(t, ValidCategory(" Health "))
	assert.False(t, ValidCategory("crypto"))
	assert.False(t, ValidCategory(""))
}
