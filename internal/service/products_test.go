package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewResume(t *testing.T) {
	svc := NewProductService()

	review, err := svc.ReviewResume(strings.Repeat("Led migration of billing platform. ", 40))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, review.Score, 0)
	assert.LessOrEqual(t, review.Score, 100)
	assert.NotEmpty(t, review.Suggestions)

	// 过短的简历得到额外建议
	short, err := svc.ReviewResume("Software engineer.")
	require.NoError(t, err)
	assert.Less(t, short.Score, review.Score+31)
	assert.Contains(t, strings.Join(short.Suggestions, " "), "too short")

	_, err = svc.ReviewResume("   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestGenerateLandingCopy(t *testing.T) {
	svc := NewProductService()

	copyOut, err := svc.GenerateLandingCopy("Acme Mail", "startups")
	require.NoError(t, err)
	assert.Contains(t, copyOut.Headline, "Acme Mail")
	assert.Contains(t, copyOut.Headline, "startups")
	assert.Len(t, copyOut.Benefits, 3)
	assert.NotEmpty(t, copyOut.CallToAct)

	// 结构化字段里不应出现标记语言
	assert.NotContains(t, copyOut.Headline, "<")

	_, err = svc.GenerateLandingCopy("", "startups")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestGenerateNames(t *testing.T) {
	svc := NewProductService()

	names, err := svc.GenerateNames("cloud", 5)
	require.NoError(t, err)
	assert.Len(t, names, 5)
	for _, n := range names {
		assert.True(t, strings.HasPrefix(n, "Cloud"), n)
	}

	// 同一关键词生成结果稳定
	again, err := svc.GenerateNames("cloud", 5)
	require.NoError(t, err)
	assert.Equal(t, names, again)

	// 越界数量回落到默认值
	defaulted, err := svc.GenerateNames("cloud", 0)
	require.NoError(t, err)
	assert.Len(t, defaulted, 5)
}

func TestAuditSEO(t *testing.T) {
	svc := NewProductService()

	secure, err := svc.AuditSEO("https://example.com")
	require.NoError(t, err)

	insecure, err := svc.AuditSEO("http://example.com")
	require.NoError(t, err)
	assert.Contains(t, strings.Join(insecure.Findings, " "), "HTTPS")

	assert.GreaterOrEqual(t, secure.Score, 0)
	assert.GreaterOrEqual(t, insecure.Score, 0)
}

func TestGenerateLogoSpec(t *testing.T) {
	svc := NewProductService()

	spec, err := svc.GenerateLogoSpec("Neura")
	require.NoError(t, err)
	assert.NotEmpty(t, spec.Style)
	assert.Len(t, spec.Colors, 3)
	assert.Contains(t, spec.Rationale, "Neura")

	_, err = svc.GenerateLogoSpec("")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestGenerateLogoSpecAnyBrand(t *testing.T) {
	svc := NewProductService()

	// 任意品牌名都必须选中一个合法风格，哈希值高位不能影响取模结果
	for _, brand := range []string{"Neura", "Acme", "z", "北辰", "a-very-long-brand-name-inc", "0123456789"} {
		spec, err := svc.GenerateLogoSpec(brand)
		require.NoError(t, err, brand)
		assert.NotEmpty(t, spec.Style, brand)
		assert.Len(t, spec.Colors, 3, brand)
	}
}
