package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"

	"neura/backend/internal/service"
)

// ProductHandler 网关保护下的内容生成接口
type ProductHandler struct {
	products *service.ProductService
}

// NewProductHandler 创建产品接口处理器
func NewProductHandler(products *service.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

func productError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrEmptyInput) {
		BadRequest(c, "缺少必填内容")
		return
	}
	InternalError(c, "处理失败")
}

type resumeRequest struct {
	ResumeText string `json:"resumeText" binding:"required"`
}

// ReviewResume 简历评审
func (h *ProductHandler) ReviewResume(c *gin.Context) {
	var req resumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "缺少简历内容")
		return
	}
	review, err := h.products.ReviewResume(req.ResumeText)
	if err != nil {
		productError(c, err)
		return
	}
	Success(c, review)
}

type landingRequest struct {
	ProductName string `json:"productName" binding:"required"`
	Audience    string `json:"audience"`
}

// GenerateLandingCopy 落地页文案生成
func (h *ProductHandler) GenerateLandingCopy(c *gin.Context) {
	var req landingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "缺少产品名称")
		return
	}
	copyOut, err := h.products.GenerateLandingCopy(req.ProductName, req.Audience)
	if err != nil {
		productError(c, err)
		return
	}
	Success(c, copyOut)
}

type namesRequest struct {
	Keyword string `json:"keyword" binding:"required"`
	Count   int    `json:"count"`
}

// GenerateNames 产品名生成
func (h *ProductHandler) GenerateNames(c *gin.Context) {
	var req namesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "缺少关键词")
		return
	}
	names, err := h.products.GenerateNames(req.Keyword, req.Count)
	if err != nil {
		productError(c, err)
		return
	}
	Success(c, gin.H{"names": names})
}

type seoRequest struct {
	URL string `json:"url" binding:"required"`
}

// AuditSEO SEO审计
func (h *ProductHandler) AuditSEO(c *gin.Context) {
	var req seoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "缺少URL")
		return
	}
	audit, err := h.products.AuditSEO(req.URL)
	if err != nil {
		productError(c, err)
		return
	}
	Success(c, audit)
}

type logoRequest struct {
	Brand string `json:"brand" binding:"required"`
}

// GenerateLogoSpec 徽标设计说明生成
func (h *ProductHandler) GenerateLogoSpec(c *gin.Context) {
	var req logoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "缺少品牌名")
		return
	}
	spec, err := h.products.GenerateLogoSpec(req.Brand)
	if err != nil {
		productError(c, err)
		return
	}
	Success(c, spec)
}
