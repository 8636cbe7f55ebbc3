package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义 impression 维度的变量
func initCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		// 定义变量类型
		cel.Variable("impression_index", cel.IntType),
		cel.Variable("uid", cel.IntType),
		cel.Variable("candidate_length", cel.IntType),
		cel.Variable("history_length", cel.IntType),
	)
	return env, err
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	return celEnv, err
}

// ImpressionFilter 是验证集子集筛选器（selected_imp），
// 使用 CEL (Common Expression Language) 实现。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：impression_index < 1000 / uid == 42
//   - 数值：candidate_length > 5 && history_length >= 10
//   - 逻辑：impression_index % 2 == 0 || uid in [1, 2, 3]
//
// 示例：
//   - `impression_index < 5000` → 只评估前 5000 条曝光
//   - `history_length >= 5` → 只评估历史不少于 5 条的用户
//
// 表达式在构造时编译一次，Match 可被高频调用。
type ImpressionFilter struct {
	expr string
	prg  cel.Program
}

// NewImpressionFilter 编译 selected_imp 表达式。
// 空表达式返回 nil filter（不过滤）。
func NewImpressionFilter(expr string) (*ImpressionFilter, error) {
	if expr == "" {
		return nil, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	// 编译表达式
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %v", issues.Err())
	}

	// 创建程序
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %v", err)
	}

	return &ImpressionFilter{expr: expr, prg: prg}, nil
}

// Match 执行表达式，返回该 impression 是否入选。
func (f *ImpressionFilter) Match(impressionIndex, uid, candidateLength, historyLength int) (bool, error) {
	if f == nil {
		return true, nil
	}

	input := map[string]interface{}{
		"impression_index": impressionIndex,
		"uid":              uid,
		"candidate_length": candidateLength,
		"history_length":   historyLength,
	}

	out, _, err := f.prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("eval error: %v", err)
	}

	// 转换为布尔值
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}

	return result, nil
}

// Expr 返回原始表达式（用于日志）。
func (f *ImpressionFilter) Expr() string {
	if f == nil {
		return ""
	}
	return f.expr
}
