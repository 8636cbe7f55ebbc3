package model

// StepLR 是按 epoch 阶梯衰减的学习率调度器：
// 每经过 stepSize 个 epoch，学习率乘以 gamma。
type StepLR struct {
	opt      Optimizer
	stepSize int
	gamma    float64
	epoch    int
}

// NewStepLR 创建调度器。stepSize <= 0 时退化为恒定学习率。
func NewStepLR(opt Optimizer, stepSize int, gamma float64) *StepLR {
	if gamma <= 0 {
		gamma = 1
	}
	return &StepLR{opt: opt, stepSize: stepSize, gamma: gamma}
}

// Step 在每个 epoch 末调用一次。
func (s *StepLR) Step() {
	s.epoch++
	if s.stepSize > 0 && s.epoch%s.stepSize == 0 {
		s.opt.SetLearningRate(s.opt.LearningRate() * s.gamma)
	}
}

// LearningRate 返回当前学习率。
func (s *StepLR) LearningRate() float64 { return s.opt.LearningRate() }
