package service

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
)

// ErrEmptyInput 请求缺少必填内容
var ErrEmptyInput = errors.New("input must not be empty")

// ProductService 提供网关保护下的各项内容生成能力
//
// 当前实现为规则化的占位生成，生成质量不在网关的职责范围内，
// 网关关心的是这些端点的认证、配额与计量。
type ProductService struct{}

// NewProductService 创建产品服务
func NewProductService() *ProductService {
	return &ProductService{}
}

// ResumeReview 简历评审结果
type ResumeReview struct {
	Score       int      `json:"score"` // 0-100
	Strengths   []string `json:"strengths"`
	Suggestions []string `json:"suggestions"`
}

// ReviewResume 评审简历文本
func (s *ProductService) ReviewResume(resumeText string) (*ResumeReview, error) {
	text := strings.TrimSpace(resumeText)
	if text == "" {
		return nil, ErrEmptyInput
	}

	words := len(strings.Fields(text))
	score := 55 + int(seed(text)%31)
	if words < 100 {
		score -= 15
	}
	if score < 0 {
		score = 0
	}

	review := &ResumeReview{
		Score: score,
		Strengths: []string{
			"Clear section structure",
			"Relevant technical keywords present",
		},
		Suggestions: []string{
			"Quantify achievements with concrete metrics",
			"Lead each bullet with an action verb",
		},
	}
	if words < 100 {
		review.Suggestions = append(review.Suggestions, "Expand experience details, the resume reads too short")
	}
	return review, nil
}

// LandingCopy 落地页文案，按区块返回结构化内容
type LandingCopy struct {
	Headline   string   `json:"headline"`
	Subheading string   `json:"subheading"`
	Benefits   []string `json:"benefits"`
	CallToAct  string   `json:"callToAction"`
}

// GenerateLandingCopy 为产品生成落地页文案
func (s *ProductService) GenerateLandingCopy(productName, audience string) (*LandingCopy, error) {
	name := strings.TrimSpace(productName)
	if name == "" {
		return nil, ErrEmptyInput
	}
	if strings.TrimSpace(audience) == "" {
		audience = "teams"
	}

	return &LandingCopy{
		Headline:   fmt.Sprintf("%s: built for %s that move fast", name, audience),
		Subheading: fmt.Sprintf("Everything %s need to ship faster, in one place.", audience),
		Benefits: []string{
			"Set up in minutes, no migration required",
			"Scales with your workload automatically",
			"Transparent pricing with no hidden fees",
		},
		CallToAct: fmt.Sprintf("Start using %s for free", name),
	}, nil
}

// GenerateNames 为给定关键词生成候选产品名
func (s *ProductService) GenerateNames(keyword string, count int) ([]string, error) {
	kw := strings.TrimSpace(keyword)
	if kw == "" {
		return nil, ErrEmptyInput
	}
	if count <= 0 || count > 10 {
		count = 5
	}

	base := capitalize(kw)
	suffixes := []string{"ly", "ify", "Hub", "Lab", "Flow", "Stack", "Pilot", "Forge", "Mint", "Nest"}
	offset := int(seed(kw) % uint64(len(suffixes)))

	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		names = append(names, base+suffixes[(offset+i)%len(suffixes)])
	}
	return names, nil
}

// SEOAudit SEO审计结果
type SEOAudit struct {
	Score    int      `json:"score"` // 0-100
	Findings []string `json:"findings"`
}

// AuditSEO 对给定URL做规则化SEO审计
func (s *ProductService) AuditSEO(url string) (*SEOAudit, error) {
	u := strings.TrimSpace(url)
	if u == "" {
		return nil, ErrEmptyInput
	}

	audit := &SEOAudit{Score: 60 + int(seed(u)%26)}
	if !strings.HasPrefix(u, "https://") {
		audit.Score -= 20
		audit.Findings = append(audit.Findings, "Site is not served over HTTPS")
	}
	if len(u) > 75 {
		audit.Findings = append(audit.Findings, "URL is longer than 75 characters")
	}
	audit.Findings = append(audit.Findings,
		"Add descriptive meta descriptions to key pages",
		"Ensure all images carry alt text",
	)
	if audit.Score < 0 {
		audit.Score = 0
	}
	return audit, nil
}

// LogoSpec 徽标设计说明
type LogoSpec struct {
	Style     string   `json:"style"`
	Colors    []string `json:"colors"`
	FontPair  string   `json:"fontPair"`
	Rationale string   `json:"rationale"`
}

// GenerateLogoSpec 为品牌生成徽标设计说明
func (s *ProductService) GenerateLogoSpec(brand string) (*LogoSpec, error) {
	b := strings.TrimSpace(brand)
	if b == "" {
		return nil, ErrEmptyInput
	}

	palettes := [][]string{
		{"#1A73E8", "#F5F7FA", "#202124"},
		{"#0F9D58", "#FFFFFF", "#1C3D2E"},
		{"#7C3AED", "#F3F0FF", "#2D1B55"},
		{"#E8710A", "#FFF8F0", "#3D2410"},
	}
	styles := []string{"geometric minimal", "rounded wordmark", "monogram badge", "abstract mark"}
	i := int(seed(b) % uint64(len(styles)))

	return &LogoSpec{
		Style:     styles[i],
		Colors:    palettes[i%len(palettes)],
		FontPair:  "Inter for headings, Source Sans for body",
		Rationale: fmt.Sprintf("A %s treatment keeps %s legible at small sizes and matches a modern SaaS aesthetic.", styles[i], b),
	}, nil
}

func capitalize(s string) string {
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:]
}

func seed(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(s)))
	return h.Sum64()
}
