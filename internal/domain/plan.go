package domain

// Plan 定价档位，静态目录数据，进程内只读
type Plan struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Price            float64  `json:"price"`            // 月费（美元）
	RequestsPerMonth int64    `json:"requestsPerMonth"` // 每月请求配额
	Features         []string `json:"features"`
}

// Catalog 计划目录，启动时注入，不可变
//
// 以注入值替代全局单例，便于测试替换目录内容。
type Catalog struct {
	plans map[string]Plan
	order []string
}

// PlanFree 基础免费档的计划ID
const PlanFree = "free"

// NewCatalog 以给定计划构建目录，保留传入顺序
func NewCatalog(plans ...Plan) *Catalog {
	c := &Catalog{
		plans: make(map[string]Plan, len(plans)),
		order: make([]string, 0, len(plans)),
	}
	for _, p := range plans {
		if _, ok := c.plans[p.ID]; ok {
			continue
		}
		c.plans[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c
}

// DefaultCatalog 返回内置的四档计划目录
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Plan{
			ID:               PlanFree,
			Name:             "Free",
			Price:            0,
			RequestsPerMonth: 100,
			Features:         []string{"Basic API access", "Email support"},
		},
		Plan{
			ID:               "starter",
			Name:             "Starter",
			Price:            29.99,
			RequestsPerMonth: 5000,
			Features:         []string{"All AI services", "Priority support", "API documentation"},
		},
		Plan{
			ID:               "professional",
			Name:             "Professional",
			Price:            99.99,
			RequestsPerMonth: 25000,
			Features:         []string{"All AI services", "24/7 support", "Custom integrations", "Analytics dashboard"},
		},
		Plan{
			ID:               "enterprise",
			Name:             "Enterprise",
			Price:            299.99,
			RequestsPerMonth: 100000,
			Features:         []string{"All AI services", "Dedicated support", "Custom solutions", "SLA guarantee"},
		},
	)
}

// Get 按ID查找计划
func (c *Catalog) Get(planID string) (Plan, bool) {
	p, ok := c.plans[planID]
	return p, ok
}

// Has 判断计划是否存在
func (c *Catalog) Has(planID string) bool {
	_, ok := c.plans[planID]
	return ok
}

// List 按注册顺序返回全部计划
func (c *Catalog) List() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.plans[id])
	}
	return out
}
