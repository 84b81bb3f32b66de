package contract

// SectionURI: 规范小节的唯一标识（通常为带锚点的 URL）。
type SectionURI string

// GroupName: 测试分组名（同一抽取上下文下的一组测试文件）。
type GroupName string

// TestMetadata: 单个测试文件抽取得到的定长元数据记录。
// 约束：
// - File 由索引阶段填写：group + "/" + test；
// - Links/Credits 保持抽取顺序，去重由抽取器负责；
// - 索引时按值拷贝，不回写抽取器持有的原记录。
type TestMetadata struct {
	File    string
	Links   []SectionURI
	Credits []string
	Title   string
	Flags   []string
	Assert  string
}

// Clone 返回浅拷贝（切片独立，元素为不可变字符串）。
func (m TestMetadata) Clone() TestMetadata {
	out := m
	out.Links = cloneSlice(m.Links)
	out.Credits = cloneSlice(m.Credits)
	out.Flags = cloneSlice(m.Flags)
	return out
}

// HasFlag 判断测试是否带有指定 flag（例如 "ahem"、"image"）。
func (m TestMetadata) HasFlag(flag string) bool {
	for _, f := range m.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Section: 规范中的一个可寻址小节。
// SortKey 为定宽零填充串，按字节序比较即得到规范章节顺序。
// Tests 仅在索引阶段追加，按分组名归档。
type Section struct {
	URI     SectionURI
	Title   string
	SortKey string
	Number  string
	Tests   map[GroupName][]TestMetadata
}

// NewSection 构造空测试表的小节。
func NewSection(uri SectionURI, title, sortKey, number string) *Section {
	return &Section{URI: uri, Title: title, SortKey: sortKey, Number: number, Tests: map[GroupName][]TestMetadata{}}
}

// AddTest 将记录追加到 group 下。
func (s *Section) AddTest(group GroupName, m TestMetadata) {
	if s.Tests == nil {
		s.Tests = map[GroupName][]TestMetadata{}
	}
	s.Tests[group] = append(s.Tests[group], m)
}

// TestCount 返回各分组下测试记录总数。
func (s *Section) TestCount() int {
	n := 0
	for _, l := range s.Tests {
		n += len(l)
	}
	return n
}

// HasTests 报告小节是否至少挂有一条测试。
func (s *Section) HasTests() bool { return s.TestCount() > 0 }

// Chapter: 共享 SortKey 前缀的一段连续小节。
// 由起始 Section 的字段拷贝构造，不复用（不改写）该 Section。
type Chapter struct {
	URI       SectionURI
	Title     string
	SortKey   string
	Number    string
	Sections  []*Section
	TestCount int
}

// ChapterFrom 以拷贝方式由小节构造章节（Sections 为空、TestCount 为 0）。
func ChapterFrom(s *Section) Chapter {
	return Chapter{URI: s.URI, Title: s.Title, SortKey: s.SortKey, Number: s.Number, Sections: []*Section{}}
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
