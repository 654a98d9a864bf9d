package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"paragraphs", "<p>one</p><p>two</p>", "one\n\ntwo"},
		{"line break", "a<br>b", "a\nb"},
		{"list", "<ul><li>x</li><li>y</li></ul>", "- x\n- y"},
		{"skips style", "<style>p{color:red}</style><p>text</p>", "text"},
		{"skips script", "<script>alert(1)</script>ok", "ok"},
		{"collapses spaces", "<div>a    b</div>", "a b"},
		{"entities", "<p>Tom &amp; Jerry</p>", "Tom & Jerry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTMLToText(tt.in))
		})
	}
}
