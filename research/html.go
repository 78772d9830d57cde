package research

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML 去除搜索片段中的标记（例如 <span class="searchmatch">），
// 解码实体并压缩空白。
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	var parts []string
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(strings.Join(parts, "")), " ")
		case html.TextToken:
			parts = append(parts, string(z.Text()))
		}
	}
}
