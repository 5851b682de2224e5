// Package customer identifies callers by company name and account suffix.
package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"aicc-ivr-backend/internal/model"
	"aicc-ivr-backend/internal/parse"
	"aicc-ivr-backend/internal/store"
)

// Type is the support tier a caller is routed by.
type Type string

const (
	TypeMSP     Type = "MSP"
	TypeGeneral Type = "General"
	TypeUnknown Type = "Unknown"
)

var (
	ErrMissingFields    = errors.New("회사명과 AWS Account ID는 필수 입력 항목입니다.")
	ErrInvalidAccountID = errors.New("AWS Account ID는 4자리 숫자여야 합니다.")
)

const MessageNotFound = "등록되지 않은 고객입니다. 신규 고객 처리 절차를 진행합니다."

// Request identifies a caller. AccountSuffix is the last four digits of
// the caller's AWS account id.
type Request struct {
	CompanyName   string
	AccountSuffix string
	ContactName   string
}

// Result is the outcome of a lookup. Customer is nil when no match exists.
type Result struct {
	Found    bool
	Type     Type
	Customer *Info
}

// Message is the IVR prompt for the result.
func (r Result) Message() string {
	if !r.Found {
		return MessageNotFound
	}
	return fmt.Sprintf("%s 고객으로 확인되었습니다.", r.Type)
}

type Info struct {
	CustomerID       string          `json:"customer_id"`
	CompanyName      string          `json:"company_name"`
	SupportLevel     string          `json:"support_level"`
	AssignedEngineer *Engineer `json:"assigned_engineer"`
}

// Engineer is the part of an engineer record read out to the IVR.
type Engineer struct {
	EngineerID  string `json:"engineer_id"`
	Name        string `json:"name"`
	Part        string `json:"part"`
	Phone       string `json:"phone"`
	IsAvailable bool   `json:"is_available"`
}

type Service struct {
	store store.CustomerStore
}

func NewService(s store.CustomerStore) *Service {
	return &Service{store: s}
}

// Lookup validates req, finds the first customer of the company whose
// account id ends with the suffix and resolves its assigned engineer.
// Only store failures while reading customers are returned as errors.
func (s *Service) Lookup(ctx context.Context, req Request) (Result, error) {
	company := strings.TrimSpace(req.CompanyName)
	suffix := strings.TrimSpace(req.AccountSuffix)
	if company == "" || suffix == "" {
		return Result{}, ErrMissingFields
	}
	if !parse.IsAccountSuffix(suffix) {
		return Result{}, ErrInvalidAccountID
	}

	log.Info().Str("company_name", company).Str("aws_account_id", suffix).Msg("customer lookup")

	customers, err := s.store.FindCustomersByCompany(ctx, company)
	if err != nil {
		return Result{}, fmt.Errorf("lookup customer: %w", err)
	}

	var match *model.Customer
	for i := range customers {
		if parse.MatchesAccountSuffix(customers[i].AWSAccountID, suffix) {
			match = &customers[i]
			break
		}
	}
	if match == nil {
		log.Warn().Str("company_name", company).Str("aws_account_id", suffix).Msg("unregistered customer")
		return Result{Found: false, Type: TypeUnknown}, nil
	}

	typ := Classify(match.SupportLevel)
	log.Info().Str("company_name", company).Str("customer_type", string(typ)).Msg("customer matched")
	return Result{
		Found: true,
		Type:  typ,
		Customer: &Info{
			CustomerID:       match.CustomerID,
			CompanyName:      match.CompanyName,
			SupportLevel:     match.SupportLevel,
			AssignedEngineer: s.assignedEngineer(ctx, match.AssignedEngineer),
		},
	}, nil
}

// assignedEngineer never fails the lookup; any error yields nil.
func (s *Service) assignedEngineer(ctx context.Context, engineerID string) *Engineer {
	if engineerID == "" {
		return nil
	}
	engineer, err := s.store.GetEngineer(ctx, engineerID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Str("engineer_id", engineerID).Msg("failed to fetch assigned engineer")
		}
		return nil
	}
	return &Engineer{
		EngineerID:  engineer.EngineerID,
		Name:        engineer.Name,
		Part:        engineer.Part,
		Phone:       engineer.Phone,
		IsAvailable: engineer.IsAvailable,
	}
}

// Classify maps a stored support level to a routing type. Unknown levels
// are treated as General.
func Classify(supportLevel string) Type {
	switch strings.ToUpper(strings.TrimSpace(supportLevel)) {
	case "MSP":
		return TypeMSP
	case "GENERAL":
		return TypeGeneral
	default:
		log.Warn().Str("support_level", supportLevel).Msg("unknown support level, classified as General")
		return TypeGeneral
	}
}
