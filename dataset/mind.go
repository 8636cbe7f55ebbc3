// Package dataset 提供 MIND 新闻数据集的解析、采样与 batch 构建。
//
// 目录约定（与官方发布包一致）：
//   <root>/train/news.tsv, <root>/train/behaviors.tsv
//   <root>/valid/news.tsv, <root>/valid/behaviors.tsv
package dataset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rushteam/mindrs/core"
)

// News 是一条新闻及其 token 化标题。
type News struct {
	// ID 原始新闻 ID，例如 "N12345"
	ID string

	// Index 全局新闻索引（0 保留给 padding）
	Index int

	// Category / SubCategory 分类
	Category    string
	SubCategory string

	// Tokens 标题 token 序列（定长 padding）
	Tokens []int
}

// Behavior 是一条曝光日志：用户、历史、候选与标签。
type Behavior struct {
	// ImpressionIndex 曝光全局唯一索引
	ImpressionIndex int

	// UID 用户索引（uid 词典内），0 表示未知用户
	UID int

	// History 历史新闻索引（按时间先后）
	History []int

	// Candidates 候选新闻索引
	Candidates []int

	// Labels 候选点击标签，与 Candidates 对齐；测试集可为 nil
	Labels []float64
}

// Corpus 是解析后的 MIND 语料：新闻表 + 曝光表 + 词典。
type Corpus struct {
	// NewsTokens 按新闻索引排列的 token 矩阵，第 0 行是 padding 新闻
	NewsTokens [][]int

	// NewsIndex 新闻 ID 到全局索引
	NewsIndex map[string]int

	// Behaviors 曝光日志
	Behaviors []Behavior

	// WordDict 词典（word -> token id，0 保留给 padding/UNK）
	WordDict map[string]int

	// UIDDict 用户词典（user id -> index），可为 nil
	UIDDict map[string]int

	// TitleLen 标题 padding 长度
	TitleLen int
}

// CorpusOptions 控制解析行为。
type CorpusOptions struct {
	// TitleLen 标题截断/padding 长度，默认 30
	TitleLen int

	// WordDict 预置词典；为 nil 时从语料构建
	WordDict map[string]int

	// UIDDict 用户词典；user_embed_method 非空时必需
	UIDDict map[string]int
}

// LoadCorpus 解析一个 phase 目录（train 或 valid）。
func LoadCorpus(dir string, opts CorpusOptions) (*Corpus, error) {
	if opts.TitleLen <= 0 {
		opts.TitleLen = 30
	}
	c := &Corpus{
		NewsIndex: map[string]int{},
		WordDict:  opts.WordDict,
		UIDDict:   opts.UIDDict,
		TitleLen:  opts.TitleLen,
	}
	if c.WordDict == nil {
		c.WordDict = map[string]int{}
	}
	// 索引 0 是 padding 新闻（全零 token）
	c.NewsTokens = append(c.NewsTokens, make([]int, opts.TitleLen))

	if err := c.loadNews(filepath.Join(dir, "news.tsv")); err != nil {
		return nil, err
	}
	if err := c.loadBehaviors(filepath.Join(dir, "behaviors.tsv")); err != nil {
		return nil, err
	}
	return c, nil
}

// loadNews 解析 news.tsv：newsID, category, subcategory, title, ...
func (c *Corpus) loadNews(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open news file: %w", err)
	}
	defer f.Close()

	growDict := len(c.WordDict) == 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		cols := strings.Split(scanner.Text(), "\t")
		if len(cols) < 4 {
			continue
		}
		id := cols[0]
		if _, ok := c.NewsIndex[id]; ok {
			continue
		}
		tokens := c.tokenize(cols[3], growDict)
		c.NewsIndex[id] = len(c.NewsTokens)
		c.NewsTokens = append(c.NewsTokens, tokens)
	}
	return scanner.Err()
}

// tokenize 小写分词 + 词典映射 + 定长 padding。
func (c *Corpus) tokenize(title string, growDict bool) []int {
	words := strings.Fields(strings.ToLower(title))
	tokens := make([]int, c.TitleLen)
	n := 0
	for _, w := range words {
		if n >= c.TitleLen {
			break
		}
		id, ok := c.WordDict[w]
		if !ok {
			if !growDict {
				continue // 词典外的词跳过（与预置词典对齐）
			}
			id = len(c.WordDict) + 1
			c.WordDict[w] = id
		}
		tokens[n] = id
		n++
	}
	return tokens
}

// loadBehaviors 解析 behaviors.tsv：impID, userID, time, history, impressions。
// impressions 列形如 "N1-1 N2-0 ..."；无标签（测试集）时只有新闻 ID。
func (c *Corpus) loadBehaviors(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open behaviors file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		cols := strings.Split(scanner.Text(), "\t")
		if len(cols) < 5 {
			continue
		}
		b := Behavior{ImpressionIndex: len(c.Behaviors)}
		if c.UIDDict != nil {
			b.UID = c.UIDDict[cols[1]]
		}
		for _, nid := range strings.Fields(cols[3]) {
			if idx, ok := c.NewsIndex[nid]; ok {
				b.History = append(b.History, idx)
			}
		}
		labeled := true
		for _, imp := range strings.Fields(cols[4]) {
			nid, label := imp, -1.0
			if i := strings.LastIndexByte(imp, '-'); i > 0 {
				nid = imp[:i]
				switch imp[i+1:] {
				case "1":
					label = 1
				case "0":
					label = 0
				}
			}
			idx, ok := c.NewsIndex[nid]
			if !ok {
				continue
			}
			b.Candidates = append(b.Candidates, idx)
			if label < 0 {
				labeled = false
			} else {
				b.Labels = append(b.Labels, label)
			}
		}
		if !labeled {
			b.Labels = nil
		}
		if len(b.Candidates) > 0 {
			c.Behaviors = append(c.Behaviors, b)
		}
	}
	return scanner.Err()
}

// NewsCount 返回新闻总数（含 padding 新闻）。
func (c *Corpus) NewsCount() int { return len(c.NewsTokens) }

// VocabSize 返回词典大小（不含 padding id 0）。
func (c *Corpus) VocabSize() int { return len(c.WordDict) }

// RequireUIDDict 校验 uid 词典存在（user_embed_method 非空时的构造期检查）。
func (c *Corpus) RequireUIDDict(method core.UserEmbedMethod) error {
	if method == core.UserEmbedNone {
		return nil
	}
	if c.UIDDict == nil {
		return core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			fmt.Sprintf("user_embed_method %q requires a uid dictionary", string(method)))
	}
	return nil
}
