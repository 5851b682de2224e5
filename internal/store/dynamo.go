package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/aws/aws-sdk-go/service/dynamodb/expression"

	"aicc-ivr-backend/internal/model"
)

// dynamoCall is the item layout of the call-logs table. Timestamps are
// ISO-8601 strings and ttl is the epoch-seconds retention marker DynamoDB
// expires items on.
type dynamoCall struct {
	CallID            string   `dynamodbav:"call_id"`
	PhoneNumberHash   string   `dynamodbav:"phone_number_hash"`
	MaskedPhoneNumber string   `dynamodbav:"masked_phone_number"`
	CallStartTime     string   `dynamodbav:"call_start_time"`
	CallEndTime       string   `dynamodbav:"call_end_time,omitempty"`
	CallStatus        string   `dynamodbav:"call_status"`
	FlowPath          []string `dynamodbav:"flow_path"`
	CustomerID        string   `dynamodbav:"customer_id,omitempty"`
	CompanyName       string   `dynamodbav:"company_name,omitempty"`
	SupportLevel      string   `dynamodbav:"support_level,omitempty"`
	Resolution        string   `dynamodbav:"resolution,omitempty"`
	AssignedTo        string   `dynamodbav:"assigned_to,omitempty"`
	CallDuration      int      `dynamodbav:"call_duration,omitempty"`
	Notes             string   `dynamodbav:"notes,omitempty"`
	CreatedAt         string   `dynamodbav:"created_at"`
	UpdatedAt         string   `dynamodbav:"updated_at"`
	TTL               int64    `dynamodbav:"ttl"`
}

const dynamoTimeLayout = time.RFC3339Nano

// DynamoCallStore keeps call logs in a DynamoDB table keyed by call_id.
type DynamoCallStore struct {
	client dynamodbiface.DynamoDBAPI
	table  string
}

// NewDynamoCallStore creates a call store over an existing table.
func NewDynamoCallStore(client dynamodbiface.DynamoDBAPI, table string) *DynamoCallStore {
	return &DynamoCallStore{client: client, table: table}
}

func (s *DynamoCallStore) CreateCall(ctx context.Context, call *model.CallLog) error {
	item, err := dynamodbattribute.MarshalMap(toDynamoCall(call))
	if err != nil {
		return fmt.Errorf("marshal call %s: %w", call.CallID, err)
	}
	if _, err := s.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put call %s: %w", call.CallID, err)
	}
	return nil
}

func (s *DynamoCallStore) GetCall(ctx context.Context, callID string) (*model.CallLog, error) {
	out, err := s.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]*dynamodb.AttributeValue{
			"call_id": {S: aws.String(callID)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get call %s: %w", callID, err)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("call %s: %w", callID, ErrNotFound)
	}

	var item dynamoCall
	if err := dynamodbattribute.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal call %s: %w", callID, err)
	}
	return fromDynamoCall(item), nil
}

// UpdateCall issues a single SET expression over the columns present in upd.
// The condition keeps it from creating items for unknown ids.
func (s *DynamoCallStore) UpdateCall(ctx context.Context, callID string, upd CallUpdate) error {
	var merged model.CallLog
	upd.Apply(&merged)
	v := toDynamoCall(&merged)

	values := map[string]any{
		"call_end_time": v.CallEndTime,
		"call_status":   v.CallStatus,
		"resolution":    v.Resolution,
		"assigned_to":   v.AssignedTo,
		"call_duration": v.CallDuration,
		"notes":         v.Notes,
		"flow_path":     v.FlowPath,
		"customer_id":   v.CustomerID,
		"company_name":  v.CompanyName,
		"support_level": v.SupportLevel,
	}
	set := expression.Set(expression.Name("updated_at"), expression.Value(v.UpdatedAt))
	for _, col := range upd.Columns() {
		if value, ok := values[col]; ok {
			set = set.Set(expression.Name(col), expression.Value(value))
		}
	}

	expr, err := expression.NewBuilder().
		WithUpdate(set).
		WithCondition(expression.AttributeExists(expression.Name("call_id"))).
		Build()
	if err != nil {
		return fmt.Errorf("build update for call %s: %w", callID, err)
	}

	_, err = s.client.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]*dynamodb.AttributeValue{
			"call_id": {S: aws.String(callID)},
		},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException {
			return fmt.Errorf("update call %s: %w", callID, ErrNotFound)
		}
		return fmt.Errorf("update call %s: %w", callID, err)
	}
	return nil
}

// PurgeExpiredCalls is a no-op: the table's TTL attribute expires items.
func (s *DynamoCallStore) PurgeExpiredCalls(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func toDynamoCall(c *model.CallLog) dynamoCall {
	d := dynamoCall{
		CallID:            c.CallID,
		PhoneNumberHash:   c.PhoneNumberHash,
		MaskedPhoneNumber: c.MaskedPhoneNumber,
		CallStatus:        c.CallStatus,
		FlowPath:          c.FlowPath,
		CustomerID:        c.CustomerID,
		CompanyName:       c.CompanyName,
		SupportLevel:      c.SupportLevel,
		Resolution:        c.Resolution,
		AssignedTo:        c.AssignedTo,
		CallDuration:      c.CallDuration,
		Notes:             c.Notes,
		CallStartTime:     formatDynamoTime(c.CallStartTime),
		CreatedAt:         formatDynamoTime(c.CreatedAt),
		UpdatedAt:         formatDynamoTime(c.UpdatedAt),
	}
	if d.FlowPath == nil {
		d.FlowPath = []string{}
	}
	if c.CallEndTime != nil {
		d.CallEndTime = formatDynamoTime(*c.CallEndTime)
	}
	if !c.ExpiresAt.IsZero() {
		d.TTL = c.ExpiresAt.Unix()
	}
	return d
}

func fromDynamoCall(d dynamoCall) *model.CallLog {
	c := &model.CallLog{
		CallID:            d.CallID,
		PhoneNumberHash:   d.PhoneNumberHash,
		MaskedPhoneNumber: d.MaskedPhoneNumber,
		CallStatus:        d.CallStatus,
		FlowPath:          d.FlowPath,
		CustomerID:        d.CustomerID,
		CompanyName:       d.CompanyName,
		SupportLevel:      d.SupportLevel,
		Resolution:        d.Resolution,
		AssignedTo:        d.AssignedTo,
		CallDuration:      d.CallDuration,
		Notes:             d.Notes,
		CallStartTime:     parseDynamoTime(d.CallStartTime),
		CreatedAt:         parseDynamoTime(d.CreatedAt),
		UpdatedAt:         parseDynamoTime(d.UpdatedAt),
	}
	if d.CallEndTime != "" {
		end := parseDynamoTime(d.CallEndTime)
		c.CallEndTime = &end
	}
	if d.TTL > 0 {
		c.ExpiresAt = time.Unix(d.TTL, 0).UTC()
	}
	return c
}

func formatDynamoTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dynamoTimeLayout)
}

func parseDynamoTime(s string) time.Time {
	t, _ := time.Parse(dynamoTimeLayout, s)
	return t
}
