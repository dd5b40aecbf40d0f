package utils

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// EnhanceHTMLContent 为图片增加防盗链和懒加载属性，外链统一 noopener
func EnhanceHTMLContent(htmlStr string) string {
	if htmlStr == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return htmlStr
	}

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("referrerpolicy", "no-referrer")
		s.SetAttr("loading", "lazy")
	})
	doc.Find("a[target=_blank]").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("rel", "nofollow noreferrer noopener")
	})

	// goquery wraps fragments in html/body
	out, err := doc.Find("body").Html()
	if err != nil || out == "" {
		return htmlStr
	}
	return out
}
