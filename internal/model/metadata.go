// Package model 定义了应用的数据模型。
package model

import "fmt"

// Metadata 是单个法规文档的文档级元数据。
// 同一文档的所有分块共享同一份元数据，组装完成后不再修改。
type Metadata struct {
	Genre      string `json:"genre" form:"genre"`
	Status     string `json:"status" form:"status"`
	Dependency string `json:"dependency" form:"dependency"`
	Theme      string `json:"theme" form:"theme"`
	Title      string `json:"title" form:"title"`
	Code       string `json:"code" form:"code"`
	Year       int    `json:"year" form:"year"`
	Month      string `json:"month" form:"month"`
	Day        int    `json:"day" form:"day"`
	// URL 是派生出的对象存储地址，入库前由上传流程填充。
	URL string `json:"url"`
}

// SortKey 返回元数据表的排序键 {code}#{theme}#{status}。
func (m Metadata) SortKey() string {
	return fmt.Sprintf("%s#%s#%s", m.Code, m.Theme, m.Status)
}

// ToMap 将元数据展开为记录元数据映射，供向量记录组装使用。
func (m Metadata) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"genre":      m.Genre,
		"status":     m.Status,
		"dependency": m.Dependency,
		"theme":      m.Theme,
		"title":      m.Title,
		"code":       m.Code,
		"year":       m.Year,
		"month":      m.Month,
		"day":        m.Day,
		"url":        m.URL,
	}
}

// MissingFields 返回所有为空的必填字段名，全部填写后方可进入上传流程。
func (m Metadata) MissingFields() []string {
	var missing []string
	if m.Title == "" {
		missing = append(missing, "title")
	}
	if m.Genre == "" {
		missing = append(missing, "genre")
	}
	if m.Status == "" {
		missing = append(missing, "status")
	}
	if m.Dependency == "" {
		missing = append(missing, "dependency")
	}
	if m.Theme == "" {
		missing = append(missing, "theme")
	}
	if m.Code == "" {
		missing = append(missing, "code")
	}
	if m.Year == 0 {
		missing = append(missing, "year")
	}
	if m.Month == "" {
		missing = append(missing, "month")
	}
	if m.Day == 0 {
		missing = append(missing, "day")
	}
	return missing
}
