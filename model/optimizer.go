package model

import (
	"math"

	"github.com/rushteam/mindrs/core"
)

// Optimizer 驱动参数更新。实现持有参数引用，Step 消费累积梯度。
type Optimizer interface {
	// Step 执行一步参数更新
	Step()

	// ZeroGrad 清零全部参数梯度
	ZeroGrad()

	// LearningRate / SetLearningRate 供调度器读写当前学习率
	LearningRate() float64
	SetLearningRate(lr float64)
}

// Adam 优化器，带梯度裁剪。
type Adam struct {
	params    []*core.Param
	lr        float64
	beta1     float64
	beta2     float64
	epsilon   float64
	clipValue float64
	t         int
	m         [][]float64
	v         [][]float64
}

// NewAdam 创建 Adam 优化器。clipValue <= 0 表示不裁剪。
func NewAdam(params []*core.Param, lr, clipValue float64) *Adam {
	o := &Adam{
		params:    params,
		lr:        lr,
		beta1:     0.9,
		beta2:     0.999,
		epsilon:   1e-8,
		clipValue: clipValue,
		m:         make([][]float64, len(params)),
		v:         make([][]float64, len(params)),
	}
	for i, p := range params {
		o.m[i] = make([]float64, len(p.Data))
		o.v[i] = make([]float64, len(p.Data))
	}
	return o
}

// Step 执行一步 Adam 更新（带偏置校正）。
func (o *Adam) Step() {
	o.t++
	c1 := 1 - math.Pow(o.beta1, float64(o.t))
	c2 := 1 - math.Pow(o.beta2, float64(o.t))
	for pi, p := range o.params {
		m, v := o.m[pi], o.v[pi]
		for i, g := range p.Grad {
			if o.clipValue > 0 {
				if g > o.clipValue {
					g = o.clipValue
				} else if g < -o.clipValue {
					g = -o.clipValue
				}
			}
			m[i] = o.beta1*m[i] + (1-o.beta1)*g
			v[i] = o.beta2*v[i] + (1-o.beta2)*g*g
			p.Data[i] -= o.lr * (m[i] / c1) / (math.Sqrt(v[i]/c2) + o.epsilon)
		}
	}
}

func (o *Adam) ZeroGrad() {
	for _, p := range o.params {
		p.ZeroGrad()
	}
}

func (o *Adam) LearningRate() float64      { return o.lr }
func (o *Adam) SetLearningRate(lr float64) { o.lr = lr }

// SGD 优化器，可选动量。
type SGD struct {
	params   []*core.Param
	lr       float64
	momentum float64
	velocity [][]float64
}

// NewSGD 创建 SGD 优化器。
func NewSGD(params []*core.Param, lr, momentum float64) *SGD {
	o := &SGD{params: params, lr: lr, momentum: momentum}
	if momentum > 0 {
		o.velocity = make([][]float64, len(params))
		for i, p := range params {
			o.velocity[i] = make([]float64, len(p.Data))
		}
	}
	return o
}

func (o *SGD) Step() {
	for pi, p := range o.params {
		if o.momentum > 0 {
			vel := o.velocity[pi]
			for i, g := range p.Grad {
				vel[i] = o.momentum*vel[i] + g
				p.Data[i] -= o.lr * vel[i]
			}
			continue
		}
		for i, g := range p.Grad {
			p.Data[i] -= o.lr * g
		}
	}
}

func (o *SGD) ZeroGrad() {
	for _, p := range o.params {
		p.ZeroGrad()
	}
}

func (o *SGD) LearningRate() float64      { return o.lr }
func (o *SGD) SetLearningRate(lr float64) { o.lr = lr }

var (
	_ Optimizer = (*Adam)(nil)
	_ Optimizer = (*SGD)(nil)
)
