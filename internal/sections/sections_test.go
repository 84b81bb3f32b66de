package sections

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suitetoc/pkg/contract"
)

const sample = "01\turiA\t1\tIntro\n" +
	"0101\turiB\t1.1\tDetails\r\n" +
	"\n" +
	"02\turiC\t2\tBox model\n"

func TestParse(t *testing.T) {
	reg, err := Parse(strings.NewReader(sample), Options{})
	require.NoError(t, err)
	require.Equal(t, 3, reg.Len())

	b, ok := reg.Get("uriB")
	require.True(t, ok)
	assert.Equal(t, "Details", b.Title)
	assert.Equal(t, "0101", b.SortKey)
	assert.Equal(t, "1.1", b.Number)
	assert.Empty(t, b.Tests)

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestParseFieldCount(t *testing.T) {
	cases := map[string]string{
		"三字段":  "01\turiA\tIntro\n",
		"五字段":  "01\turiA\t1\tIntro\textra\n",
		"无制表符": "just text\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(in), Options{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, contract.ErrFormat))
			assert.Contains(t, err.Error(), "line 1")
		})
	}
}

// 默认策略：重复 URI 后者覆盖前者。
func TestParseDuplicateLastWins(t *testing.T) {
	in := "01\turiA\t1\tFirst\n02\turiA\t2\tSecond\n"
	reg, err := Parse(strings.NewReader(in), Options{Duplicates: LastWins})
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
	s, _ := reg.Get("uriA")
	assert.Equal(t, "Second", s.Title)
}

func TestParseDuplicateReject(t *testing.T) {
	in := "01\turiA\t1\tFirst\n02\turiA\t2\tSecond\n"
	_, err := Parse(strings.NewReader(in), Options{Duplicates: Reject})
	require.Error(t, err)
	assert.True(t, errors.Is(err, contract.ErrDuplicateSection))
	assert.Contains(t, err.Error(), "line 2")
}

func TestSorted(t *testing.T) {
	in := "02\turiC\t2\tC\n0101\turiB\t1.1\tB\n01\turiA\t1\tA\n"
	reg, err := Parse(strings.NewReader(in), Options{})
	require.NoError(t, err)
	var keys []string
	for _, s := range reg.Sorted() {
		keys = append(keys, s.SortKey)
	}
	assert.Equal(t, []string{"01", "0101", "02"}, keys)
}

// 同一文件重复加载结果一致。
func TestLoadIdempotent(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sections.dat")
	require.NoError(t, os.WriteFile(p, []byte(sample), 0o644))

	a, err := Load(p, Options{})
	require.NoError(t, err)
	b, err := Load(p, Options{})
	require.NoError(t, err)
	assert.Equal(t, a.Sorted(), b.Sorted())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.dat"), Options{})
	assert.True(t, errors.Is(err, os.ErrNotExist))

	p := filepath.Join(t.TempDir(), "bad.dat")
	require.NoError(t, os.WriteFile(p, []byte("x\ty\n"), 0o644))
	_, err = Load(p, Options{})
	assert.True(t, errors.Is(err, contract.ErrFormat))
	assert.Contains(t, err.Error(), p)
}
