package indexer

import "suitetoc/pkg/contract"

// Chapters 将按 SortKey 升序排列的小节按前 splitLevel 个字符分章。
//
// 每遇到新前缀即以该小节的拷贝开一章；若该小节没有测试，它只作为章节标题
// 占位，不计入本章成员。其余小节（含零测试的非首节）全部计入当前章节。
// SortKey 短于 splitLevel 时以整个 SortKey 为前缀。
func Chapters(sorted []*contract.Section, splitLevel int) []contract.Chapter {
	var out []contract.Chapter
	last, started := "", false
	for _, s := range sorted {
		p := keyPrefix(s.SortKey, splitLevel)
		if !started || p != last {
			started, last = true, p
			out = append(out, contract.ChapterFrom(s))
			if !s.HasTests() {
				continue
			}
		}
		ch := &out[len(out)-1]
		ch.TestCount += s.TestCount()
		ch.Sections = append(ch.Sections, s)
	}
	return out
}

func keyPrefix(key string, n int) string {
	if n < 0 {
		n = 0
	}
	if n > len(key) {
		return key
	}
	return key[:n]
}
