// Package stepdraft は抽出済みドキュメントテキストをステップ下書きの列へ
// 変換するヒューリスティックなパーサーです。純粋関数のみで構成され、外部
// 状態には依存しません。
package stepdraft

import (
	"regexp"
	"strings"
)

// Draft は解析で得られたステップの下書きです。
type Draft struct {
	Title       string
	Description string
	Link        string
}

// LinkAnnotation は抽出時に得られたハイパーリンク注釈です。Y はドキュメント
// 内の縦方向座標で、注釈の出現順を保つために保持します。
type LinkAnnotation struct {
	URL string
	Y   float64
}

type lineKind int

const (
	kindSkip lineKind = iota
	kindBullet
	kindImperative
	kindHeader
	kindBareURL
	kindContinuation
)

var (
	numberedPattern = regexp.MustCompile(`^\d{1,3}[.)]\s+`)
	letteredPattern = regexp.MustCompile(`^[A-Za-z][.)]\s+`)
	barePeriod      = regexp.MustCompile(`^\.\s+`)
	bareURLPattern  = regexp.MustCompile(`^https?://\S+$`)
)

var bulletPrefixes = []string{
	"- ", "* ", "+ ", "> ",
	"→", "•", "◦", "▪", "●", "○", "·", "‣",
	"☐", "☑", "✓", "✔",
	"[ ]", "[x]", "[X]",
}

var taskVerbs = map[string]struct{}{
	"setup": {}, "set": {}, "install": {}, "complete": {}, "review": {},
	"read": {}, "sign": {}, "schedule": {}, "attend": {}, "configure": {},
	"create": {}, "submit": {}, "register": {}, "contact": {}, "request": {},
	"update": {}, "verify": {}, "join": {}, "meet": {}, "order": {},
	"enroll": {}, "activate": {}, "download": {}, "upload": {}, "provide": {},
	"obtain": {}, "collect": {}, "return": {}, "watch": {}, "learn": {},
	"shadow": {}, "prepare": {}, "send": {}, "book": {}, "fill": {},
	"get": {}, "add": {}, "check": {}, "confirm": {}, "email": {},
	"call": {}, "visit": {}, "bring": {}, "pick": {}, "finish": {},
	"start": {}, "open": {}, "connect": {}, "enable": {}, "access": {},
}

// Parse は複数行のテキストと任意のリンク注釈からステップ下書きの列を生成
// します。1 回の前方走査で各行を分類し、箇条書きと命令形の行を下書きとして
// 取り出します。下書きが 1 つも得られなかった場合は、長さ 8〜200 文字の行を
// そのままタイトルとする予備走査に切り替えます。注釈リンクが与えられた
// 場合は、URL のキーワード一致で未リンクの下書きへ割り当てます。
func Parse(text string, links []LinkAnnotation) []Draft {
	var (
		drafts  []Draft
		pending string
	)

	lines := nonEmptyLines(text)
	for _, line := range lines {
		switch classify(line) {
		case kindBullet:
			content := stripBulletMarker(line)
			drafts = append(drafts, newDraft(content, &pending))
		case kindImperative:
			drafts = append(drafts, newDraft(line, &pending))
		case kindHeader:
			body := strings.TrimSpace(strings.TrimSuffix(line, ":"))
			if containsTaskVerb(body) {
				drafts = append(drafts, newDraft(body, &pending))
				continue
			}
			if len(drafts) > 0 {
				appendDescription(&drafts[len(drafts)-1], body)
			} else {
				pending = joinText(pending, body)
			}
		case kindBareURL:
			if len(drafts) > 0 && drafts[len(drafts)-1].Link == "" {
				drafts[len(drafts)-1].Link = line
			}
		case kindContinuation:
			if len(drafts) > 0 {
				appendDescription(&drafts[len(drafts)-1], line)
			} else {
				pending = joinText(pending, line)
			}
		}
	}

	if len(drafts) == 0 {
		drafts = fallbackDrafts(lines)
	}

	if len(links) > 0 {
		reconcileLinks(drafts, links)
	}
	return drafts
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func classify(line string) lineKind {
	if isBulletLine(line) {
		return kindBullet
	}
	if isImperativeLine(line) {
		return kindImperative
	}
	if isHeaderLine(line) {
		return kindHeader
	}
	if bareURLPattern.MatchString(line) {
		return kindBareURL
	}
	if len(line) >= 15 && len(line) <= 300 {
		return kindContinuation
	}
	return kindSkip
}

func isBulletLine(line string) bool {
	for _, prefix := range bulletPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return numberedPattern.MatchString(line) ||
		letteredPattern.MatchString(line) ||
		barePeriod.MatchString(line)
}

func isImperativeLine(line string) bool {
	if len(line) < 8 || len(line) > 200 || strings.HasSuffix(line, ":") {
		return false
	}
	first, _, _ := strings.Cut(line, " ")
	_, ok := taskVerbs[strings.ToLower(strings.Trim(first, ".,;"))]
	return ok
}

func isHeaderLine(line string) bool {
	if !strings.HasSuffix(line, ":") || len(line) < 8 || len(line) > 80 {
		return false
	}
	first := rune(line[0])
	return (first >= 'A' && first <= 'Z') || (first >= '0' && first <= '9')
}

func containsTaskVerb(body string) bool {
	for _, word := range strings.Fields(strings.ToLower(body)) {
		if _, ok := taskVerbs[strings.Trim(word, ".,;")]; ok {
			return true
		}
	}
	return false
}

func stripBulletMarker(line string) string {
	for _, prefix := range bulletPrefixes {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	if loc := numberedPattern.FindStringIndex(line); loc != nil {
		return strings.TrimSpace(line[loc[1]:])
	}
	if loc := letteredPattern.FindStringIndex(line); loc != nil {
		return strings.TrimSpace(line[loc[1]:])
	}
	if loc := barePeriod.FindStringIndex(line); loc != nil {
		return strings.TrimSpace(line[loc[1]:])
	}
	return line
}

// newDraft はタイトルと説明を分離して下書きを生成します。em ダッシュまたは
// 二重ハイフンの最初の区切りで分割し、溜まっていた文脈を説明の先頭へ付けて
// 消費します。
func newDraft(content string, pending *string) Draft {
	title, description := splitTitle(content)
	if *pending != "" {
		description = joinText(*pending, description)
		*pending = ""
	}
	return Draft{Title: title, Description: description}
}

func splitTitle(content string) (title, description string) {
	for _, sep := range []string{"—", "--"} {
		if before, after, found := strings.Cut(content, sep); found {
			return strings.TrimSpace(before), strings.TrimSpace(after)
		}
	}
	return strings.TrimSpace(content), ""
}

func appendDescription(d *Draft, text string) {
	d.Description = joinText(d.Description, text)
}

func joinText(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

func fallbackDrafts(lines []string) []Draft {
	var out []Draft
	for _, line := range lines {
		if len(line) >= 8 && len(line) <= 200 {
			out = append(out, Draft{Title: line})
		}
	}
	return out
}
