package domain

// QuotaDecision 配额检查结果
//
// 拒绝是预期内的正常结果而非错误，调用方通过 Allowed 分支处理。
type QuotaDecision struct {
	Allowed      bool   `json:"allowed"`
	Reason       string `json:"reason,omitempty"` // 拒绝原因，Allowed 为 true 时为空
	CurrentUsage int64  `json:"currentUsage"`
	MonthlyLimit int64  `json:"monthlyLimit"`
	Remaining    int64  `json:"remaining"`
	Plan         string `json:"plan,omitempty"`
}

// QuotaAllowed 构造允许结果
func QuotaAllowed(current, limit int64, plan string) QuotaDecision {
	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}
	return QuotaDecision{
		Allowed:      true,
		CurrentUsage: current,
		MonthlyLimit: limit,
		Remaining:    remaining,
		Plan:         plan,
	}
}

// QuotaDenied 构造拒绝结果
func QuotaDenied(reason string, current, limit int64, plan string) QuotaDecision {
	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}
	return QuotaDecision{
		Allowed:      false,
		Reason:       reason,
		CurrentUsage: current,
		MonthlyLimit: limit,
		Remaining:    remaining,
		Plan:         plan,
	}
}
