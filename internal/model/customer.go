package model

import "time"

// Customer is a registered support customer.
type Customer struct {
	CustomerID       string    `gorm:"primaryKey;size:64" json:"customer_id"`
	CompanyName      string    `gorm:"index;size:256;not null" json:"company_name"`
	AWSAccountID     string    `gorm:"size:32;not null" json:"aws_account_id"`
	SupportLevel     string    `gorm:"size:32" json:"support_level"`
	AssignedEngineer string    `gorm:"size:64" json:"assigned_engineer"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

// Engineer is a support engineer customers can be assigned to.
type Engineer struct {
	EngineerID  string    `gorm:"primaryKey;size:64" json:"engineer_id"`
	Name        string    `gorm:"size:128;not null" json:"name"`
	Part        string    `gorm:"size:64" json:"part"`
	Phone       string    `gorm:"size:32" json:"phone"`
	IsAvailable bool      `gorm:"not null" json:"is_available"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}
