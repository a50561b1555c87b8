package stepdraft

import (
	"net/url"
	"strings"
)

// 一般的すぎて手掛かりにならない URL トークンの除外リストです。
var tokenStoplist = map[string]struct{}{
	"www": {}, "com": {}, "net": {}, "org": {}, "edu": {}, "gov": {},
	"http": {}, "https": {}, "html": {}, "htm": {}, "php": {}, "aspx": {},
	"index": {}, "page": {}, "pages": {}, "view": {}, "default": {},
	"the": {}, "and": {}, "for": {},
}

// reconcileLinks は注釈リンクを下書きへ割り当てます。各リンクの URL から
// キーワードトークンを取り出し、まだリンクを持たない下書きをタイトルと説明
// への部分文字列一致数で採点して、最高得点(1 以上)の下書きへ割り当てます。
// どの下書きとも一致しなかったリンクは、元の出現順のまま、残りの未リンク
// 下書きへ 1 対 1 で配ります。
func reconcileLinks(drafts []Draft, links []LinkAnnotation) {
	var leftovers []string
	for _, link := range links {
		tokens := urlTokens(link.URL)
		best := -1
		bestScore := 0
		for idx := range drafts {
			if drafts[idx].Link != "" {
				continue
			}
			score := matchScore(drafts[idx], tokens)
			if score > bestScore {
				bestScore = score
				best = idx
			}
		}
		if best >= 0 {
			drafts[best].Link = link.URL
		} else {
			leftovers = append(leftovers, link.URL)
		}
	}

	next := 0
	for _, leftover := range leftovers {
		for next < len(drafts) && drafts[next].Link != "" {
			next++
		}
		if next >= len(drafts) {
			break
		}
		drafts[next].Link = leftover
	}
}

// urlTokens はホスト名とパスセグメントから長さ 3 以上の小文字トークンを
// 取り出します。
func urlTokens(raw string) []string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil
	}

	var parts []string
	parts = append(parts, strings.Split(parsed.Hostname(), ".")...)
	for _, seg := range strings.Split(parsed.EscapedPath(), "/") {
		parts = append(parts, splitNonAlnum(seg)...)
	}

	var tokens []string
	for _, part := range parts {
		token := strings.ToLower(strings.TrimSpace(part))
		if len(token) < 3 {
			continue
		}
		if _, stop := tokenStoplist[token]; stop {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

func splitNonAlnum(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		return !isAlnum
	})
}

func matchScore(d Draft, tokens []string) int {
	haystack := strings.ToLower(d.Title + " " + d.Description)
	score := 0
	for _, token := range tokens {
		if strings.Contains(haystack, token) {
			score++
		}
	}
	return score
}
