package service

// EffectOutcome 区分主效果与次级副作用的执行结果。
// 主效果（状态/金额写入）提交后，次级副作用（库存、工单、审计）的失败
// 只降级为 Warnings，调用方与测试可以分别断言两者。
type EffectOutcome struct {
	Committed bool     `json:"committed"` // 主效果是否已提交
	Warnings  []string `json:"warnings"`  // 次级副作用的失败记录
}

// NewEffectOutcome 创建已提交的执行结果
func NewEffectOutcome() *EffectOutcome {
	return &EffectOutcome{Committed: true}
}

// Warn 追加一条次级副作用失败记录
func (o *EffectOutcome) Warn(msg string) {
	if o == nil || msg == "" {
		return
	}
	o.Warnings = append(o.Warnings, msg)
}

// HasWarnings 是否存在次级副作用失败
func (o *EffectOutcome) HasWarnings() bool {
	return o != nil && len(o.Warnings) > 0
}
