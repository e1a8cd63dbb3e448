package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessLists(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "Numbered list",
			content: "1. 甲は支払う。\n2. 乙は履行する。",
			want:    `<div class="article-list"><ol><li>甲は支払う。</li><li>乙は履行する。</li></ol></div>`,
		},
		{
			name:    "Numbered list skips blank lines and keeps plain lines",
			content: "1. 一\n\n補足\n2. 二",
			want:    `<div class="article-list"><ol><li>一</li>補足<li>二</li></ol></div>`,
		},
		{
			name:    "Bulleted list",
			content: "前文\n- 一\n* 二\n後文",
			want:    "<div class=\"article-list\"><ul>前文<li>一</li><li>二</li>後文</ul></div>",
		},
		{
			name:    "Plain text unchanged",
			content: "第一行\n第二行",
			want:    "第一行\n第二行",
		},
		{
			name:    "Number without space is not a list",
			content: "1.5倍とする",
			want:    "1.5倍とする",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProcessLists(tt.content))
		})
	}
}

func TestConvertLineBreaks(t *testing.T) {
	assert.Equal(t, "a<br>b<br>", ConvertLineBreaks("a\nb\n"))
}
