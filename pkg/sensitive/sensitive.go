// Package sensitive 话题标题的屏蔽词过滤
package sensitive

import (
	"fmt"
	"strings"

	"github.com/importcjj/sensitive"
)

// DefaultDictPath 默认词库位置，一行一个词
const DefaultDictPath = "resources/sensitive/blocked.txt"

type Word struct {
	Filter *sensitive.Filter
	size   int
}

// NewWord 加载词库文件 (可为空) 并追加配置中的词
func NewWord(dictPath string, words ...string) (*Word, error) {
	filter := sensitive.New()
	w := &Word{Filter: filter}

	if dictPath != "" {
		if err := filter.LoadWordDict(dictPath); err != nil {
			return nil, fmt.Errorf("load sensitive dict %s: %w", dictPath, err)
		}
		w.size = -1
	}

	for _, word := range words {
		word = normalize(word)
		if word == "" {
			continue
		}
		filter.AddWord(word)
		if w.size >= 0 {
			w.size++
		}
	}
	return w, nil
}

// Empty 没有任何屏蔽词时为 true，使用词库文件时总是 false
func (w *Word) Empty() bool {
	return w == nil || w.size == 0
}

// Validate 返回 (是否通过, 命中的第一个词)，忽略大小写和空白
func (w *Word) Validate(content string) (bool, string) {
	if w == nil {
		return true, ""
	}
	return w.Filter.Validate(normalize(content))
}

func (w *Word) Replace(content string, replChar rune) string {
	if w == nil {
		return content
	}
	return w.Filter.Replace(content, replChar)
}

// normalize 小写并去掉所有空白，词库与待检文本按同样方式处理
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}
