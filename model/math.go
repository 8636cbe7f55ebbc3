package model

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// 本文件是模型内部的向量小算子。矩阵按行主序展平存放，
// 避免为小维度运算引入完整的矩阵类型。

func dot(a, b []float64) float64 {
	return floats.Dot(a, b)
}

// axpy 执行 dst += a * x。
func axpy(a float64, x, dst []float64) {
	floats.AddScaled(dst, a, x)
}

func scale(a float64, x []float64) {
	floats.Scale(a, x)
}

// scaled 返回 a * x 的新切片。
func scaled(a float64, x []float64) []float64 {
	out := make([]float64, len(x))
	floats.AddScaled(out, a, x)
	return out
}

// matVecAccum 执行 out_c += Σ_r W[r*cols+c] * x_r。
func matVecAccum(w, x, out []float64, cols int) {
	for r, v := range x {
		if v == 0 {
			continue
		}
		floats.AddScaled(out, v, w[r*cols:(r+1)*cols])
	}
}

// softmaxVec 数值稳定的 softmax；空输入返回 nil。
func softmaxVec(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	max := floats.Max(scores)
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - max)
		sum += out[i]
	}
	if sum == 0 {
		for i := range out {
			out[i] = 1 / float64(len(out))
		}
		return out
	}
	floats.Scale(1/sum, out)
	return out
}

// xavierInit 按 Xavier 均匀分布初始化 rows x cols 矩阵。
func xavierInit(rng *rand.Rand, rows, cols int) []float64 {
	bound := math.Sqrt(6 / float64(rows+cols))
	out := make([]float64, rows*cols)
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * bound
	}
	return out
}
