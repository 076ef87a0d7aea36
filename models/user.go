package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/ledgerbook_backend/config"
	"bitbucket.org/mmdatafocus/ledgerbook_backend/utils"
	"golang.org/x/crypto/bcrypt"
)

type UserRole string

const (
	UserRoleAdmin UserRole = "A"
	UserRoleOwner UserRole = "O"
	UserRoleClerk UserRole = "C"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	CompanyId string    `gorm:"index" json:"company_id"`
	Email     string    `gorm:"size:100;not null;unique" json:"email" binding:"required"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Password  string    `gorm:"size:255;not null" json:"password"`
	Role      UserRole  `gorm:"type:enum('A', 'O', 'C');default:C" json:"role"`
	IsActive  *bool     `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	CompanyId string   `json:"company_id"`
	Email     string   `json:"email" binding:"required"`
	Name      string   `json:"name" binding:"required"`
	Password  string   `json:"password" binding:"required"`
	Role      UserRole `json:"role"`
}

type SigninInfo struct {
	Token       string `json:"token"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	CompanyId   string `json:"company_id"`
	CompanyName string `json:"company_name"`
	Timezone    string `json:"timezone"`
}

func (result *User) PrepareGive() {
	result.Password = ""
}

func Signin(ctx context.Context, email string, password string) (*SigninInfo, error) {

	db := config.GetDB()
	var result SigninInfo

	email = strings.TrimSpace(strings.ToLower(email))
	if !utils.IsValidEmail(email) {
		return nil, errors.New("invalid email or password")
	}

	user := User{}
	err := db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Take(&user).Error
	if err != nil {
		return nil, errors.New("invalid email or password")
	}

	// check login credentials
	err = utils.ComparePassword(user.Password, password)
	if err != nil && err == bcrypt.ErrMismatchedHashAndPassword {
		return nil, errors.New("invalid email or password")
	}

	if !utils.DereferencePtr(user.IsActive) {
		return nil, errors.New("user is disabled")
	}

	token, err := utils.JwtGenerate(user.ID, string(user.Role), user.CompanyId)
	if err != nil {
		return nil, err
	}

	result = SigninInfo{
		Token:     token,
		Name:      user.Name,
		Role:      string(user.Role),
		CompanyId: user.CompanyId,
	}

	company, err := GetCompany(ctx, user.CompanyId)
	if err == nil {
		result.CompanyName = company.Name
		result.Timezone = company.Timezone
	}

	return &result, nil
}

func CreateUser(ctx context.Context, input NewUser) (*User, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if !utils.IsValidEmail(input.Email) {
		return nil, utils.NewValidationError("invalid email %s", input.Email)
	}
	if len(input.Password) < 6 {
		return nil, utils.NewValidationError("password must be at least 6 characters")
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = UserRoleClerk
	}

	user := User{
		CompanyId: input.CompanyId,
		Email:     input.Email,
		Name:      input.Name,
		Password:  string(hashed),
		Role:      role,
		IsActive:  utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	user.PrepareGive()
	return &user, nil
}
