// ============================================================================
// AI Demo Passage Matcher - 功能點原文定位
// ============================================================================
//
// Package: internal/matcher
// 文件: matcher.go
// 功能: 將功能點的定位線索（exact_phrases / keywords / section_hint）
//       映射到需求文檔的行範圍，並給出匹配置信度
//
// 匹配流程（單個功能點）:
//   1. 精確短語逐字命中 → 取覆蓋各短語首次出現位置的最小行區間，置信度 high
//   2. 關鍵詞密度 → 找出命中關鍵詞的最長連續行段，密度明顯高於閾值為
//      medium，僅勉強超過為 low
//   3. section_hint 標題命中（唯一證據時）→ low
//   4. 毫無證據 → 整篇文檔作為範圍，low（顯式降級，永遠不是錯誤）
//
// 邊界消解（同一文檔的所有功能點之間）:
//   按候選起始行排序；兩個範圍重疊時，把靠前者的結束行裁剪到靠後者
//   起始行的前一行。裁剪會使靠前範圍為空時放棄裁剪，接受重疊
//   （已知限制，不引入更複雜的分配器）。
//
// 行號約定: 1-based 閉區間，按字面換行符 "\n" 切分。
//
// ============================================================================

package matcher

import (
	"strings"

	"github.com/Linn0813/ai-demo-service/pkg/types"
)

const (
	// mediumDensity 關鍵詞密度（命中數 / 行數）達到此值視為明顯高於閾值
	mediumDensity = 1.5
	// sectionSpan section_hint 命中後向下延伸的最大行數
	sectionSpan = 20
)

// span 候選行範圍，1-based 閉區間
type span struct {
	start int
	end   int
}

func (s span) valid() bool { return s.start >= 1 && s.start <= s.end }

func (s span) overlaps(o span) bool {
	return s.start <= o.end && o.start <= s.end
}

// Lines 按字面換行符切分需求文檔
func Lines(doc string) []string {
	return strings.Split(doc, "\n")
}

// normalize 匹配用的文本標準化：小寫並壓縮空白
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// isHeadingFor 判斷某行是否為 hint 對應的標題行
// （Markdown 標題 "## 標題" 或整行即為 hint 文本）
func isHeadingFor(line, hint string) bool {
	trimmed := strings.TrimSpace(line)
	normalizedHint := normalize(hint)
	if normalizedHint == "" {
		return false
	}
	if strings.HasPrefix(trimmed, "#") {
		heading := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		return normalize(heading) == normalizedHint
	}
	return normalize(trimmed) == normalizedHint
}

// Match 對整組功能點執行匹配並消解邊界，返回填寫了
// matched_content / matched_positions / match_confidence 的副本。
func Match(doc string, points []types.FunctionPoint) []types.FunctionPoint {
	lines := Lines(doc)

	out := make([]types.FunctionPoint, len(points))
	spans := make([]span, len(points))
	for i, fp := range points {
		sp, conf := matchOne(lines, fp)
		out[i] = fp
		out[i].MatchConfidence = conf
		spans[i] = sp
	}

	resolveBoundaries(spans)

	for i := range out {
		applySpan(&out[i], lines, spans[i])
	}
	return out
}

// Rematch 只為單個功能點重新執行匹配，再依其他功能點的現有範圍
// 消解邊界（其他功能點不會被重算）。返回更新後的目標功能點。
func Rematch(doc string, target types.FunctionPoint, all []types.FunctionPoint) types.FunctionPoint {
	lines := Lines(doc)

	sp, conf := matchOne(lines, target)
	target.MatchConfidence = conf

	// 只有目標範圍靠前時裁剪規則才作用於目標本身；
	// 其他功能點靠前且重疊時規則要求裁剪對方，但對方不可變，接受重疊。
	nearest := 0
	for _, other := range all {
		if other.ID == target.ID || len(other.MatchedPositions) != 2 {
			continue
		}
		o := span{start: other.MatchedPositions[0], end: other.MatchedPositions[1]}
		if !sp.overlaps(o) || o.start <= sp.start {
			continue
		}
		if nearest == 0 || o.start < nearest {
			nearest = o.start
		}
	}
	if nearest > 0 && nearest-1 >= sp.start {
		sp.end = nearest - 1
	}

	applySpan(&target, lines, sp)
	return target
}

// matchOne 為單個功能點計算候選範圍與置信度（未消解邊界）
func matchOne(lines []string, fp types.FunctionPoint) (span, types.MatchConfidence) {
	// 第一步：精確短語逐字命中
	if sp, ok := matchExactPhrases(lines, fp.ExactPhrases); ok {
		return sp, types.ConfidenceHigh
	}

	// 第二步：關鍵詞密度
	if sp, density, ok := matchKeywordRun(lines, fp.Keywords); ok {
		if density >= mediumDensity {
			return sp, types.ConfidenceMedium
		}
		return sp, types.ConfidenceLow
	}

	// 第三步：section_hint 標題是唯一證據
	if sp, ok := matchSectionHint(lines, fp.SectionHint); ok {
		return sp, types.ConfidenceLow
	}

	// 第四步：顯式降級 - 整篇文檔
	return span{start: 1, end: len(lines)}, types.ConfidenceLow
}

// matchExactPhrases 取覆蓋各命中短語首次出現位置的最小行區間
func matchExactPhrases(lines []string, phrases []string) (span, bool) {
	first, last := 0, 0
	for _, phrase := range phrases {
		if strings.TrimSpace(phrase) == "" {
			continue
		}
		for idx, line := range lines {
			if strings.Contains(line, phrase) {
				lineNo := idx + 1
				if first == 0 || lineNo < first {
					first = lineNo
				}
				if lineNo > last {
					last = lineNo
				}
				break // 只取該短語的首次出現
			}
		}
	}
	if first == 0 {
		return span{}, false
	}
	return span{start: first, end: last}, true
}

// matchKeywordRun 逐行統計關鍵詞命中數，取命中行的最長連續段。
// 返回 (範圍, 密度 = 命中總數/行數, 是否有任何命中)。
func matchKeywordRun(lines []string, keywords []string) (span, float64, bool) {
	usable := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if n := normalize(kw); n != "" {
			usable = append(usable, n)
		}
	}
	if len(usable) == 0 {
		return span{}, 0, false
	}

	hits := make([]int, len(lines))
	anyHit := false
	for i, line := range lines {
		normalizedLine := normalize(line)
		for _, kw := range usable {
			if strings.Contains(normalizedLine, kw) {
				hits[i]++
				anyHit = true
			}
		}
	}
	if !anyHit {
		return span{}, 0, false
	}

	best := span{}
	bestHits := 0
	runStart := -1
	runHits := 0
	flush := func(endIdx int) {
		if runStart < 0 {
			return
		}
		candidate := span{start: runStart + 1, end: endIdx + 1}
		length := candidate.end - candidate.start + 1
		bestLen := best.end - best.start + 1
		if !best.valid() || length > bestLen || (length == bestLen && runHits > bestHits) {
			best = candidate
			bestHits = runHits
		}
	}
	for i := range lines {
		if hits[i] > 0 {
			if runStart < 0 {
				runStart = i
				runHits = 0
			}
			runHits += hits[i]
			continue
		}
		flush(i - 1)
		runStart = -1
	}
	flush(len(lines) - 1)

	density := float64(bestHits) / float64(best.end-best.start+1)
	return best, density, true
}

// matchSectionHint 尋找 hint 對應的標題行，範圍延伸到下一個標題或
// sectionSpan 行為止
func matchSectionHint(lines []string, hint string) (span, bool) {
	if strings.TrimSpace(hint) == "" {
		return span{}, false
	}
	for idx, line := range lines {
		if !isHeadingFor(line, hint) {
			continue
		}
		start := idx + 1
		end := len(lines)
		if start+sectionSpan-1 < end {
			end = start + sectionSpan - 1
		}
		for j := idx + 1; j < len(lines); j++ {
			if strings.HasPrefix(strings.TrimSpace(lines[j]), "#") {
				end = j // 下一個標題的前一行（1-based）
				break
			}
		}
		if end < start {
			end = start
		}
		return span{start: start, end: end}, true
	}
	return span{}, false
}

// resolveBoundaries 按起始行排序後就地裁剪重疊範圍。
// 靠前範圍會被裁剪到緊鄰的後續起始行之前；裁剪導致範圍為空時
// 保持原樣並接受重疊。
func resolveBoundaries(spans []span) {
	order := make([]int, 0, len(spans))
	for i, sp := range spans {
		if sp.valid() {
			order = append(order, i)
		}
	}
	// 插入排序依起始行排序索引（數量級很小）
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && spans[order[j]].start < spans[order[j-1]].start; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	for i := 0; i < len(order)-1; i++ {
		cur := order[i]
		for j := i + 1; j < len(order); j++ {
			next := order[j]
			if !spans[cur].overlaps(spans[next]) {
				continue
			}
			clipped := spans[next].start - 1
			if clipped >= spans[cur].start {
				spans[cur].end = clipped
			}
			// 裁剪會清空範圍時不動，接受重疊
			break
		}
	}
}

// applySpan 將行範圍寫回功能點
func applySpan(fp *types.FunctionPoint, lines []string, sp span) {
	if !sp.valid() {
		sp = span{start: 1, end: len(lines)}
	}
	if sp.end > len(lines) {
		sp.end = len(lines)
	}
	fp.MatchedPositions = []int{sp.start, sp.end}
	fp.MatchedContent = strings.Join(lines[sp.start-1:sp.end], "\n")
}
