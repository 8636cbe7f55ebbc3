package embedding

import (
	"context"
	"fmt"
	"strconv"

	feastsdk "github.com/feast-dev/feast/sdk/go"
)

// FeastProvider 是基于 Feast Feature Store 的新闻向量提供方。
//
// 向量按维度拆列存储：特征名为 "<view>:dim_0" ... "<view>:dim_{D-1}"，
// 实体键为 news_id（新闻全局索引）。
//
// 使用场景：
//   - 新闻向量由离线管道物化到 Feast 在线存储，
//     验证时直接拉取，跳过模型编码
type FeastProvider struct {
	// client 官方 SDK 的 gRPC 客户端
	client *feastsdk.GrpcClient

	// Project 项目名称
	Project string

	// FeatureView 特征视图名称，例如 "news_embedding"
	FeatureView string

	dim      int
	features []string
}

// NewFeastProvider 创建 Feast 新闻向量提供方。
//
// 参数：
//   - host/port: Feast Feature Server 地址，port 为 0 时取默认 6565
//   - project: 项目名称
//   - featureView: 向量所在的特征视图
//   - dim: 向量维度（决定拉取的特征列数）
func NewFeastProvider(host string, port int, project, featureView string, dim int) (*FeastProvider, error) {
	if port == 0 {
		port = 6565 // 默认 gRPC 端口
	}
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}

	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("create feast grpc client: %w", err)
	}

	features := make([]string, dim)
	for d := 0; d < dim; d++ {
		features[d] = fmt.Sprintf("%s:dim_%d", featureView, d)
	}

	return &FeastProvider{
		client:      client,
		Project:     project,
		FeatureView: featureView,
		dim:         dim,
		features:    features,
	}, nil
}

func (p *FeastProvider) Name() string { return "feast" }

func (p *FeastProvider) Dimension() int { return p.dim }

// BatchGet 拉取一批新闻的向量。
func (p *FeastProvider) BatchGet(ctx context.Context, newsIndex []int) (map[int][]float64, error) {
	if len(newsIndex) == 0 {
		return map[int][]float64{}, nil
	}

	// 1. 构建实体行（SDK 的 Row 类型是 map[string]*types.Value）
	entityRows := make([]feastsdk.Row, len(newsIndex))
	for i, idx := range newsIndex {
		entityRows[i] = feastsdk.Row{"news_id": feastsdk.Int64Val(int64(idx))}
	}

	// 2. 调用官方 SDK
	sdkReq := &feastsdk.OnlineFeaturesRequest{
		Features: p.features,
		Entities: entityRows,
		Project:  p.Project,
	}
	sdkResp, err := p.client.GetOnlineFeatures(ctx, sdkReq)
	if err != nil {
		return nil, fmt.Errorf("feast get online features failed: %w", err)
	}

	// 3. 响应行与请求行一一对应
	rows := sdkResp.Rows()
	if len(rows) != len(newsIndex) {
		return nil, fmt.Errorf("response row count mismatch: expected %d, got %d", len(newsIndex), len(rows))
	}

	out := make(map[int][]float64, len(newsIndex))
	for i, idx := range newsIndex {
		vec := make([]float64, p.dim)
		complete := true
		for d, featureName := range p.features {
			val, exists := rows[i][featureName]
			if !exists {
				complete = false
				break
			}
			f, ok := asFloat64(val)
			if !ok {
				complete = false
				break
			}
			vec[d] = f
		}
		// 缺维的新闻视为缓存缺失，由调用方回退慢速评估
		if complete {
			out[idx] = vec
		}
	}
	return out, nil
}

func (p *FeastProvider) Close() error {
	p.client = nil
	return nil
}

// asFloat64 将 SDK 返回的特征值转为 float64。
func asFloat64(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		// protobuf Value 类型走字符串回退
		if f, err := strconv.ParseFloat(fmt.Sprintf("%v", val), 64); err == nil {
			return f, true
		}
		return 0, false
	}
}

var _ Provider = (*FeastProvider)(nil)
