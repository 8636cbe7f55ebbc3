package model

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rushteam/mindrs/core"
)

// NRSModel 是新闻推荐（News Recommendation System）模型。
//
// 核心思想：
//   - 新闻编码器：标题词向量均值池化后做非线性投影，得到新闻向量
//   - 用户编码器：对点击历史做加性注意力聚合，得到用户向量
//   - 打分：用户向量与候选新闻向量点积
//
// 工程特征：
//   - 反向传播为手写解析梯度，Forward 在训练态缓存中间量供 Backward 使用
//   - 实现 core.NewsEncoder，新闻向量可离线缓存用于快速评估
//   - variational_topic 变体附加主题头，输出 KL 散度项
type NRSModel struct {
	opts Options

	vocabSize int
	wordDim   int
	newsDim   int
	attnDim   int

	// 可训练参数（行主序展平）
	embed    *core.Param // [V][Dw] 词向量，行 0 为 padding（不更新）
	projW    *core.Param // [Dw][D] 新闻投影
	projB    *core.Param // [D]
	attnW    *core.Param // [D][A] 注意力隐层
	attnB    *core.Param // [A]
	attnV    *core.Param // [A] 注意力打分向量
	userEmb  *core.Param // init: [U][A]；cat: [U][D]；未启用时为 nil
	topicW   *core.Param // [D][T]，仅 variational_topic
	topicB   *core.Param // [T]

	training bool
	state    *forwardState
}

// Options 是 NRS 模型的构建配置。
type Options struct {
	// WordEmbeds 词向量初始值，[V][Dw]，行 0 为 padding 零向量
	WordEmbeds [][]float64

	// NewsDim 新闻向量维度，默认 64
	NewsDim int

	// AttentionDim 注意力隐层维度，默认 64
	AttentionDim int

	// TopicVariant 主题建模变体，默认 base
	TopicVariant core.TopicVariant

	// TopicNum 主题数，variational_topic 时生效，默认 50
	TopicNum int

	// UserEmbedMethod 用户 ID embedding 接入方式，默认不启用
	UserEmbedMethod core.UserEmbedMethod

	// UserNum 用户数（含 padding 行 0），启用用户 embedding 时必填
	UserNum int

	// ReturnWeight 是否在输出中携带注意力权重
	ReturnWeight bool

	// WithEntropy 是否启用注意力熵辅助项
	WithEntropy bool

	// Seed 参数初始化随机种子
	Seed int64
}

// forwardState 是训练态 Forward 缓存的中间量，Backward 消费。
type forwardState struct {
	batch    *core.Batch
	histMean [][][]float64 // [N][H][Dw] 历史新闻词向量均值
	histCnt  [][]int       // [N][H] 非 padding 词数
	histVec  [][][]float64 // [N][H][D]
	candMean [][][]float64
	candCnt  [][]int
	candVec  [][][]float64
	attnT    [][][]float64 // [N][H][A] 注意力隐层 tanh 激活
	alpha    [][]float64   // [N][H] 注意力权重（无效位为 0）
	userVec  [][]float64   // [N][D] 最终用户向量
	entropy  []float64     // [N] 逐行注意力熵
	topicQ   [][]float64   // [N][T] 主题分布
	pred     [][]float64
}

// NewNRSModel 创建 NRS 模型并初始化参数。
func NewNRSModel(opts Options) (*NRSModel, error) {
	if len(opts.WordEmbeds) == 0 || len(opts.WordEmbeds[0]) == 0 {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			"word embeddings are required")
	}
	if opts.NewsDim <= 0 {
		opts.NewsDim = 64
	}
	if opts.AttentionDim <= 0 {
		opts.AttentionDim = 64
	}
	if opts.TopicVariant == "" {
		opts.TopicVariant = core.TopicVariantBase
	}
	if err := opts.TopicVariant.Validate(); err != nil {
		return nil, err
	}
	if opts.TopicNum <= 0 {
		opts.TopicNum = 50
	}
	if err := opts.UserEmbedMethod.Validate(); err != nil {
		return nil, err
	}
	if opts.UserEmbedMethod != core.UserEmbedNone && opts.UserNum <= 0 {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			fmt.Sprintf("user_embed_method %q requires a uid dict", opts.UserEmbedMethod))
	}

	m := &NRSModel{
		opts:      opts,
		vocabSize: len(opts.WordEmbeds),
		wordDim:   len(opts.WordEmbeds[0]),
		newsDim:   opts.NewsDim,
		attnDim:   opts.AttentionDim,
		training:  true,
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	flat := make([]float64, m.vocabSize*m.wordDim)
	for i, row := range opts.WordEmbeds {
		if len(row) != m.wordDim {
			return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
				fmt.Sprintf("word embedding row %d has dim %d, want %d", i, len(row), m.wordDim))
		}
		copy(flat[i*m.wordDim:], row)
	}
	m.embed = core.NewParam("embedding", flat)
	m.projW = core.NewParam("news_proj_w", xavierInit(rng, m.wordDim, m.newsDim))
	m.projB = core.NewParam("news_proj_b", make([]float64, m.newsDim))
	m.attnW = core.NewParam("attn_w", xavierInit(rng, m.newsDim, m.attnDim))
	m.attnB = core.NewParam("attn_b", make([]float64, m.attnDim))
	m.attnV = core.NewParam("attn_query", xavierInit(rng, m.attnDim, 1))

	switch opts.UserEmbedMethod {
	case core.UserEmbedInit:
		m.userEmb = core.NewParam("user_embedding", xavierInit(rng, opts.UserNum, m.attnDim))
	case core.UserEmbedCat:
		m.userEmb = core.NewParam("user_embedding", xavierInit(rng, opts.UserNum, m.newsDim))
	}
	if opts.TopicVariant == core.TopicVariantVariational {
		m.topicW = core.NewParam("topic_w", xavierInit(rng, m.newsDim, opts.TopicNum))
		m.topicB = core.NewParam("topic_b", make([]float64, opts.TopicNum))
	}
	return m, nil
}

// Name 返回模型名。
func (m *NRSModel) Name() string {
	if m.opts.TopicVariant == core.TopicVariantVariational {
		return "nrs_variational_topic"
	}
	return "nrs"
}

// Train 切换训练态（Forward 缓存中间量）。
func (m *NRSModel) Train() { m.training = true }

// Eval 切换推理态。
func (m *NRSModel) Eval() { m.training = false; m.state = nil }

// SupportsFastEvaluation 返回当前配置能否走缓存向量打分。
// 注意力权重、熵与 KL 都依赖完整前向，三者任一开启都不可用。
func (m *NRSModel) SupportsFastEvaluation() bool {
	return !m.opts.ReturnWeight && !m.opts.WithEntropy &&
		m.opts.TopicVariant != core.TopicVariantVariational
}

// Parameters 返回全部可训练参数。
func (m *NRSModel) Parameters() []*core.Param {
	ps := []*core.Param{m.embed, m.projW, m.projB, m.attnW, m.attnB, m.attnV}
	if m.userEmb != nil {
		ps = append(ps, m.userEmb)
	}
	if m.topicW != nil {
		ps = append(ps, m.topicW, m.topicB)
	}
	return ps
}

// Forward 对一个 batch 做前向。
func (m *NRSModel) Forward(batch *core.Batch) (*core.Output, error) {
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	n := batch.Size()
	st := &forwardState{
		batch:    batch,
		histMean: make([][][]float64, n),
		histCnt:  make([][]int, n),
		histVec:  make([][][]float64, n),
		candMean: make([][][]float64, n),
		candCnt:  make([][]int, n),
		candVec:  make([][][]float64, n),
		attnT:    make([][][]float64, n),
		alpha:    make([][]float64, n),
		userVec:  make([][]float64, n),
		entropy:  make([]float64, n),
		pred:     make([][]float64, n),
	}
	if m.topicW != nil {
		st.topicQ = make([][]float64, n)
	}

	out := &core.Output{Pred: make([][]float64, n)}
	for i := 0; i < n; i++ {
		if err := m.forwardRow(batch, st, i); err != nil {
			return nil, err
		}
		out.Pred[i] = st.pred[i]
	}

	if m.opts.WithEntropy {
		var s float64
		for _, e := range st.entropy {
			s += e
		}
		out.Entropy = s / float64(n)
	}
	if m.topicW != nil {
		t := float64(m.opts.TopicNum)
		var s float64
		for _, q := range st.topicQ {
			kl := math.Log(t)
			for _, p := range q {
				if p > 0 {
					kl += p * math.Log(p)
				}
			}
			s += kl
		}
		out.KLDivergence = s / float64(n)
	}
	if m.opts.ReturnWeight {
		out.Weights = map[string][][]float64{
			"history_weight":   st.alpha,
			"candidate_weight": candidateWeights(st.pred, batch.CandidateLength),
		}
	}

	if m.training {
		m.state = st
	}
	return out, nil
}

// forwardRow 编码第 i 行：历史与候选新闻、注意力用户向量、逐候选打分。
func (m *NRSModel) forwardRow(batch *core.Batch, st *forwardState, i int) error {
	hl := batch.HistoryLength[i]
	hPad := len(batch.HistoryNews[i])
	cPad := len(batch.CandidateNews[i])

	// 1. 新闻编码
	st.histMean[i] = make([][]float64, hPad)
	st.histCnt[i] = make([]int, hPad)
	st.histVec[i] = make([][]float64, hPad)
	for h := 0; h < hPad; h++ {
		mean, cnt := m.meanEmbed(batch.HistoryNews[i][h])
		st.histMean[i][h] = mean
		st.histCnt[i][h] = cnt
		st.histVec[i][h] = m.projectNews(mean)
	}
	st.candMean[i] = make([][]float64, cPad)
	st.candCnt[i] = make([]int, cPad)
	st.candVec[i] = make([][]float64, cPad)
	for c := 0; c < cPad; c++ {
		mean, cnt := m.meanEmbed(batch.CandidateNews[i][c])
		st.candMean[i][c] = mean
		st.candCnt[i][c] = cnt
		st.candVec[i][c] = m.projectNews(mean)
	}

	// 2. 注意力用户向量
	var initQ []float64
	if m.opts.UserEmbedMethod == core.UserEmbedInit {
		initQ = m.userRow(batch.UID[i], m.attnDim)
	}
	st.attnT[i] = make([][]float64, hPad)
	scores := make([]float64, hl)
	for h := 0; h < hl; h++ {
		t := m.attnHidden(st.histVec[i][h], initQ)
		st.attnT[i][h] = t
		scores[h] = dot(m.attnV.Data, t)
	}
	alpha := softmaxVec(scores)
	st.alpha[i] = make([]float64, hPad)
	copy(st.alpha[i], alpha)

	u := make([]float64, m.newsDim)
	for h := 0; h < hl; h++ {
		axpy(alpha[h], st.histVec[i][h], u)
	}
	if m.opts.UserEmbedMethod == core.UserEmbedCat {
		axpy(1, m.userRow(batch.UID[i], m.newsDim), u)
	}
	st.userVec[i] = u

	// 3. 注意力熵
	var ent float64
	for _, a := range alpha {
		if a > 0 {
			ent -= a * math.Log(a)
		}
	}
	st.entropy[i] = ent

	// 4. 主题分布
	if m.topicW != nil {
		logits := make([]float64, m.opts.TopicNum)
		matVecAccum(m.topicW.Data, u, logits, m.opts.TopicNum)
		axpy(1, m.topicB.Data, logits)
		st.topicQ[i] = softmaxVec(logits)
	}

	// 5. 打分
	pred := make([]float64, cPad)
	for c := 0; c < cPad; c++ {
		pred[c] = dot(u, st.candVec[i][c])
	}
	st.pred[i] = pred
	return nil
}

// Backward 以输出各项的上游梯度做反向，梯度累积到 Parameters。
func (m *NRSModel) Backward(batch *core.Batch, grad *core.OutputGrad) error {
	if !m.training {
		return core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			"backward called in eval mode")
	}
	st := m.state
	if st == nil || st.batch != batch {
		return core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			"backward without a matching forward")
	}
	if grad == nil || len(grad.Pred) != batch.Size() {
		return core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			"pred gradient shape mismatch")
	}

	n := batch.Size()
	entCoef := grad.Entropy / float64(n)
	klCoef := grad.KLDivergence / float64(n)
	for i := 0; i < n; i++ {
		m.backwardRow(batch, st, i, grad.Pred[i], entCoef, klCoef)
	}
	m.state = nil
	return nil
}

// backwardRow 对第 i 行做反向。梯度链路与 forwardRow 的编号一一对应，逆序执行。
func (m *NRSModel) backwardRow(batch *core.Batch, st *forwardState, i int, gPred []float64, entCoef, klCoef float64) {
	hl := batch.HistoryLength[i]
	cl := batch.CandidateLength[i]
	u := st.userVec[i]

	// 5. 打分反向：du 聚合自全部有效候选，候选向量拿到 gPred[c]*u
	du := make([]float64, m.newsDim)
	for c := 0; c < cl; c++ {
		g := gPred[c]
		if g == 0 {
			continue
		}
		axpy(g, st.candVec[i][c], du)
		dy := scaled(g, u)
		m.newsBackward(batch.CandidateNews[i][c], st.candMean[i][c], st.candCnt[i][c], st.candVec[i][c], dy)
	}

	// 4. 主题头反向（KL 对 logits 的梯度经 softmax 收缩）
	if m.topicW != nil && klCoef != 0 {
		q := st.topicQ[i]
		t := float64(m.opts.TopicNum)
		var mean float64
		g := make([]float64, len(q))
		for j, p := range q {
			if p > 0 {
				g[j] = math.Log(p * t)
			}
			mean += q[j] * g[j]
		}
		for j := range g {
			dl := klCoef * q[j] * (g[j] - mean)
			m.topicB.Grad[j] += dl
			for d := 0; d < m.newsDim; d++ {
				m.topicW.Grad[d*m.opts.TopicNum+j] += u[d] * dl
				du[d] += m.topicW.Data[d*m.opts.TopicNum+j] * dl
			}
		}
	}

	// 2. 用户向量反向：cat 变体的用户 embedding 与注意力聚合共享 du
	if m.opts.UserEmbedMethod == core.UserEmbedCat {
		m.userRowGradAccum(batch.UID[i], m.newsDim, du)
	}

	// 注意力 softmax 反向，叠加熵项的梯度
	dalpha := make([]float64, hl)
	var alphaDot float64
	for h := 0; h < hl; h++ {
		dalpha[h] = dot(du, st.histVec[i][h])
		alphaDot += st.alpha[i][h] * dalpha[h]
	}
	ent := st.entropy[i]
	for h := 0; h < hl; h++ {
		a := st.alpha[i][h]
		ds := a * (dalpha[h] - alphaDot)
		if entCoef != 0 && a > 0 {
			ds += entCoef * a * (-math.Log(a) - ent)
		}

		// 注意力隐层反向
		t := st.attnT[i][h]
		dz := make([]float64, m.attnDim)
		for a2 := 0; a2 < m.attnDim; a2++ {
			m.attnV.Grad[a2] += ds * t[a2]
			dz[a2] = ds * m.attnV.Data[a2] * (1 - t[a2]*t[a2])
		}
		axpy(1, dz, m.attnB.Grad)
		if m.opts.UserEmbedMethod == core.UserEmbedInit {
			m.userRowGradAccum(batch.UID[i], m.attnDim, dz)
		}

		// 历史新闻向量：注意力聚合路径 + 隐层路径
		dh := scaled(st.alpha[i][h], du)
		hv := st.histVec[i][h]
		for d := 0; d < m.newsDim; d++ {
			for a2 := 0; a2 < m.attnDim; a2++ {
				m.attnW.Grad[d*m.attnDim+a2] += hv[d] * dz[a2]
				dh[d] += m.attnW.Data[d*m.attnDim+a2] * dz[a2]
			}
		}

		// 1. 新闻编码反向
		m.newsBackward(batch.HistoryNews[i][h], st.histMean[i][h], st.histCnt[i][h], hv, dh)
	}
}

// newsBackward 新闻编码器反向：tanh 投影到词向量均值再到词表。
func (m *NRSModel) newsBackward(tokens []int, mean []float64, cnt int, y, dy []float64) {
	dpre := make([]float64, m.newsDim)
	for d := 0; d < m.newsDim; d++ {
		dpre[d] = dy[d] * (1 - y[d]*y[d])
	}
	axpy(1, dpre, m.projB.Grad)

	dm := make([]float64, m.wordDim)
	for k := 0; k < m.wordDim; k++ {
		base := k * m.newsDim
		for d := 0; d < m.newsDim; d++ {
			m.projW.Grad[base+d] += mean[k] * dpre[d]
			dm[k] += m.projW.Data[base+d] * dpre[d]
		}
	}
	if cnt == 0 {
		return
	}
	inv := 1 / float64(cnt)
	for _, w := range tokens {
		if w <= 0 || w >= m.vocabSize {
			continue
		}
		axpy(inv, dm, m.embed.Grad[w*m.wordDim:(w+1)*m.wordDim])
	}
}

// EncodeNews 编码一批新闻 token 序列（无状态，可并发调用）。
func (m *NRSModel) EncodeNews(tokens [][]int) ([][]float64, error) {
	out := make([][]float64, len(tokens))
	for i, ts := range tokens {
		mean, _ := m.meanEmbed(ts)
		out[i] = m.projectNews(mean)
	}
	return out, nil
}

// ScoreWithEmbeds 使用 batch 携带的缓存新闻向量打分，跳过新闻编码。
func (m *NRSModel) ScoreWithEmbeds(batch *core.Batch) (*core.Output, error) {
	if batch.CandidateEmbeds == nil || batch.HistoryEmbeds == nil {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			"batch carries no cached news embeddings")
	}
	n := batch.Size()
	out := &core.Output{Pred: make([][]float64, n)}
	for i := 0; i < n; i++ {
		hl := batch.HistoryLength[i]
		hv := batch.HistoryEmbeds[i]
		var initQ []float64
		if m.opts.UserEmbedMethod == core.UserEmbedInit {
			initQ = m.userRow(batch.UID[i], m.attnDim)
		}
		scores := make([]float64, hl)
		for h := 0; h < hl; h++ {
			scores[h] = dot(m.attnV.Data, m.attnHidden(hv[h], initQ))
		}
		alpha := softmaxVec(scores)
		u := make([]float64, m.newsDim)
		for h := 0; h < hl; h++ {
			axpy(alpha[h], hv[h], u)
		}
		if m.opts.UserEmbedMethod == core.UserEmbedCat {
			axpy(1, m.userRow(batch.UID[i], m.newsDim), u)
		}
		pred := make([]float64, len(batch.CandidateEmbeds[i]))
		for c, cv := range batch.CandidateEmbeds[i] {
			pred[c] = dot(u, cv)
		}
		out.Pred[i] = pred
	}
	return out, nil
}

// meanEmbed 对标题 token 做词向量均值池化，padding 词（0）不参与。
func (m *NRSModel) meanEmbed(tokens []int) ([]float64, int) {
	mean := make([]float64, m.wordDim)
	cnt := 0
	for _, w := range tokens {
		if w <= 0 || w >= m.vocabSize {
			continue
		}
		axpy(1, m.embed.Data[w*m.wordDim:(w+1)*m.wordDim], mean)
		cnt++
	}
	if cnt > 0 {
		scale(1/float64(cnt), mean)
	}
	return mean, cnt
}

// projectNews 词向量均值 -> tanh 非线性投影 -> 新闻向量。
func (m *NRSModel) projectNews(mean []float64) []float64 {
	pre := make([]float64, m.newsDim)
	copy(pre, m.projB.Data)
	for k := 0; k < m.wordDim; k++ {
		if mean[k] == 0 {
			continue
		}
		axpy(mean[k], m.projW.Data[k*m.newsDim:(k+1)*m.newsDim], pre)
	}
	for d := range pre {
		pre[d] = math.Tanh(pre[d])
	}
	return pre
}

// attnHidden 注意力隐层：tanh(Wa^T h + ba [+ 用户查询])。
func (m *NRSModel) attnHidden(hv, initQ []float64) []float64 {
	z := make([]float64, m.attnDim)
	copy(z, m.attnB.Data)
	if initQ != nil {
		axpy(1, initQ, z)
	}
	for d := 0; d < m.newsDim; d++ {
		if hv[d] == 0 {
			continue
		}
		axpy(hv[d], m.attnW.Data[d*m.attnDim:(d+1)*m.attnDim], z)
	}
	for a := range z {
		z[a] = math.Tanh(z[a])
	}
	return z
}

// userRow 取用户 embedding 行；越界 uid 落到 padding 行 0。
func (m *NRSModel) userRow(uid, dim int) []float64 {
	if uid < 0 || uid >= m.opts.UserNum {
		uid = 0
	}
	return m.userEmb.Data[uid*dim : (uid+1)*dim]
}

func (m *NRSModel) userRowGradAccum(uid, dim int, g []float64) {
	if uid < 0 || uid >= m.opts.UserNum {
		uid = 0
	}
	axpy(1, g, m.userEmb.Grad[uid*dim:(uid+1)*dim])
}

// candidateWeights 把逐候选分数转成候选注意力权重（有效长度内 softmax）。
func candidateWeights(pred [][]float64, candLen []int) [][]float64 {
	out := make([][]float64, len(pred))
	for i, row := range pred {
		cl := candLen[i]
		w := make([]float64, len(row))
		copy(w[:cl], softmaxVec(row[:cl]))
		out[i] = w
	}
	return out
}

var (
	_ core.Model            = (*NRSModel)(nil)
	_ core.NewsEncoder      = (*NRSModel)(nil)
	_ core.EvalCapabilities = (*NRSModel)(nil)
)
