package models

import (
	"context"
	"errors"
	"time"

	"github.com/mixpitch/mixpitch_backend/config"
	"github.com/mixpitch/mixpitch_backend/utils"
	"github.com/shopspring/decimal"
)

type User struct {
	ID       int    `gorm:"primary_key" json:"id"`
	Name     string `gorm:"size:100;not null" json:"name"`
	Email    string `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"`
	IsAdmin  bool   `gorm:"default:false" json:"is_admin"`

	// SubscriptionPlan drives the platform commission rate charged on payouts.
	SubscriptionPlan string `gorm:"size:50;default:'free'" json:"subscription_plan"`
	// CommissionRateOverride, when set, wins over the plan rate (negotiated accounts).
	CommissionRateOverride *decimal.Decimal `gorm:"type:decimal(5,2)" json:"commission_rate_override"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// planCommissionRates maps subscription plans to the platform commission
// percentage applied to payouts.
var planCommissionRates = map[string]decimal.Decimal{
	"free":         decimal.NewFromInt(10),
	"pro_artist":   decimal.NewFromInt(8),
	"pro_engineer": decimal.NewFromInt(6),
}

const defaultCommissionRatePercent = 10

// PlatformCommissionRate returns the commission percentage in effect for this
// producer at the time of the call. Payout rows freeze the value at creation.
func (u *User) PlatformCommissionRate() decimal.Decimal {
	if u.CommissionRateOverride != nil {
		return *u.CommissionRateOverride
	}
	if rate, ok := planCommissionRates[u.SubscriptionPlan]; ok {
		return rate
	}
	return decimal.NewFromInt(defaultCommissionRatePercent)
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	db := config.GetDB()

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		Name:     input.Name,
		Email:    input.Email,
		Password: string(hashed),
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	return utils.FetchModel[User](ctx, id)
}

func GetUserByEmail(ctx context.Context, email string) (*User, error) {
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &user, nil
}

func AuthenticateUser(ctx context.Context, email string, password string) (*User, error) {
	user, err := GetUserByEmail(ctx, email)
	if err != nil {
		return nil, errors.New("invalid email or password")
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, errors.New("invalid email or password")
	}
	return user, nil
}
