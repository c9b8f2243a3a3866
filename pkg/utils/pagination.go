package utils

// Pagination 分页请求参数
type Pagination struct {
	Page  int `json:"page" form:"page"`
	Limit int `json:"limit" form:"limit"`
}

// PageInfo 分页元信息
type PageInfo struct {
	Page       int   `json:"page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// PageResult 分页响应结果
type PageResult struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// GetPageOffset 计算分页偏移量，非法值回落到默认值
func (p *Pagination) GetPageOffset() (int, int) {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = 10
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return (p.Page - 1) * p.Limit, p.Limit
}

// Offset 不做修正的偏移量，调用方需先校验 page、limit
func Offset(page, limit int) int {
	return (page - 1) * limit
}

// NewPageInfo 根据总数计算页数与前后页标记
func NewPageInfo(page, limit int, total int64) PageInfo {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return PageInfo{
		Page:       page,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    int64(page)*int64(limit) < total,
		HasPrev:    page > 1,
	}
}
