package model

import (
	"time"
)

type UserRole string

const (
	Student    UserRole = "student"
	Instructor UserRole = "instructor"
	Admin      UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case Student, Instructor, Admin:
		return true
	}
	return false
}

// swagger:model User
type User struct {
	BaseModel
	Name            string     `gorm:"size:100;not null" json:"name"`
	Email           string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password        string     `gorm:"size:100;not null" json:"-"`
	Role            UserRole   `gorm:"size:20;default:'student'" json:"role"`
	Avatar          string     `gorm:"size:255" json:"avatar"`
	Bio             string     `gorm:"type:text" json:"bio"`
	PhoneNumber     string     `gorm:"size:20" json:"phoneNumber"`
	IsEmailVerified bool       `gorm:"default:false" json:"isEmailVerified"`
	Disabled        bool       `gorm:"default:false" json:"disabled"`
	LastLogin       *time.Time `json:"lastLogin,omitempty"`
	LastSeen        *time.Time `json:"lastSeen,omitempty"`

	Profile *UserProfile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// UserProfile 用户扩展资料，由注册流程显式创建
// swagger:model UserProfile
type UserProfile struct {
	RecordModel
	UserID     uint   `gorm:"uniqueIndex;not null" json:"userId"`
	Location   string `gorm:"size:100" json:"location"`
	Timezone   string `gorm:"size:50" json:"timezone"`
	WebsiteURL string `gorm:"size:255" json:"websiteUrl"`
	GithubURL  string `gorm:"size:255" json:"githubUrl"`
	// 学生专属
	StudentNumber *string `gorm:"size:20;uniqueIndex" json:"studentNumber,omitempty"`
	// 讲师专属
	Department        string `gorm:"size:100" json:"department"`
	Specialization    string `gorm:"size:200" json:"specialization"`
	YearsOfExperience *int   `json:"yearsOfExperience,omitempty"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}
