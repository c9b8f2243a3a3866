package model

import (
	"strings"
	"time"

	"healthhive/pkg/apperr"
)

// Role 用户角色
type Role string

const (
	RoleUser   Role = "user"
	RoleDoctor Role = "doctor"
	RoleAdmin  Role = "admin"
)

// Valid 是否为合法角色
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleDoctor || r == RoleAdmin
}

// Gender 性别
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Valid 空值表示未填写
func (g Gender) Valid() bool {
	return g == "" || g == GenderMale || g == GenderFemale || g == GenderOther
}

const DefaultLanguage = "en"

// User 用户模型
// 登录凭据由外部认证服务管理，这里只保存资料
type User struct {
	ID                 string    `json:"id"`
	FullName           string    `json:"fullName"`
	Email              string    `json:"email"`
	Role               Role      `json:"role"`
	Age                int       `json:"age,omitempty"`
	Gender             Gender    `json:"gender,omitempty"`
	MedicalConditions  []string  `json:"medicalConditions"`
	ProfileImage       string    `json:"profileImage"`
	LanguagePreference string    `json:"languagePreference"` // i18n en/np
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// AuthorSummary 评论中展示的作者公开信息
type AuthorSummary struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
	Role     Role   `json:"role"`
}

// Summary 投影为公开信息
func (u *User) Summary() AuthorSummary {
	return AuthorSummary{ID: u.ID, FullName: u.FullName, Avatar: u.ProfileImage, Role: u.Role}
}

// Profile 可修改的资料字段
type Profile struct {
	FullName           string
	Age                int
	Gender             Gender
	MedicalConditions  []string
	ProfileImage       string
	LanguagePreference string
}

// Validate 校验并规范化资料
func (p *Profile) Validate() error {
	p.FullName = strings.TrimSpace(p.FullName)
	if p.FullName == "" {
		return apperr.Validation("fullName is required")
	}
	if p.Age < 0 || p.Age > 150 {
		return apperr.Validation("age out of range")
	}
	if !p.Gender.Valid() {
		return apperr.Validation("unsupported gender %q", p.Gender)
	}
	if p.LanguagePreference == "" {
		p.LanguagePreference = DefaultLanguage
	}
	if p.MedicalConditions == nil {
		p.MedicalConditions = []string{}
	}
	return nil
}

// Apply 覆盖资料字段
func (u *User) Apply(p Profile, now time.Time) {
	u.FullName = p.FullName
	u.Age = p.Age
	u.Gender = p.Gender
	u.MedicalConditions = p.MedicalConditions
	u.ProfileImage = p.ProfileImage
	u.LanguagePreference = p.LanguagePreference
	u.UpdatedAt = now
}
