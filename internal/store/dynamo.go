// Package store persists access requests in a DynamoDB table.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/cfi/selfservice/internal/metrics"
	"github.com/cfi/selfservice/internal/model"
)

// API is the subset of the DynamoDB client used by Store.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

type Store struct {
	api   API
	table string
}

func New(api API, table string) *Store {
	return &Store{api: api, table: table}
}

// NewFromConfig builds a Store backed by a real DynamoDB client.
func NewFromConfig(cfg aws.Config, table string) *Store {
	return New(dynamodb.NewFromConfig(cfg), table)
}

func key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		model.AttrID: &types.AttributeValueMemberS{Value: id},
	}
}

func exists() expression.ConditionBuilder {
	return expression.AttributeExists(expression.Name(model.AttrID))
}

// Create stores a new request. ErrConflict if the ID is taken.
func (s *Store) Create(ctx context.Context, req *model.AccessRequest) (err error) {
	defer metrics.ObserveUpstream("dynamodb", "PutItem", time.Now(), &err)

	item, err := attributevalue.MarshalMap(req)
	if err != nil {
		return fmt.Errorf("marshal access request: %w", err)
	}
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(model.AttrID))).
		Build()
	if err != nil {
		return fmt.Errorf("build condition: %w", err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.table),
		Item:                     item,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		return classify(fmt.Sprintf("create access request %s", req.ID), err, model.ErrConflict)
	}
	return nil
}

// Get returns the request with the given ID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (_ *model.AccessRequest, err error) {
	defer metrics.ObserveUpstream("dynamodb", "GetItem", time.Now(), &err)

	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, classify(fmt.Sprintf("get access request %s", id), err, model.ErrNotFound)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("access request %s: %w", id, model.ErrNotFound)
	}

	var req model.AccessRequest
	if err := attributevalue.UnmarshalMap(out.Item, &req); err != nil {
		return nil, fmt.Errorf("unmarshal access request %s: %w", id, err)
	}
	return &req, nil
}

// Decide records an admin decision and raises the requester's notification.
func (s *Store) Decide(ctx context.Context, id string, d model.Decision) (err error) {
	defer metrics.ObserveUpstream("dynamodb", "UpdateItem", time.Now(), &err)

	update := expression.
		Set(expression.Name(model.AttrStatus), expression.Value(d.Status)).
		Set(expression.Name(model.AttrAdminName), expression.Value(d.AdminName)).
		Set(expression.Name(model.AttrAdminResponseDate), expression.Value(model.FormatTimestamp(d.At))).
		Set(expression.Name(model.AttrAdminComments), expression.Value(d.Comments)).
		Set(expression.Name(model.AttrNotificationAlert), expression.Value(model.NotificationOn))

	return s.update(ctx, id, update, "decide")
}

// ClearNotification marks the decision as seen by the requester.
func (s *Store) ClearNotification(ctx context.Context, id string) (err error) {
	defer metrics.ObserveUpstream("dynamodb", "UpdateItem", time.Now(), &err)

	update := expression.Set(expression.Name(model.AttrNotificationAlert), expression.Value(model.NotificationOff))
	return s.update(ctx, id, update, "clear notification on")
}

func (s *Store) update(ctx context.Context, id string, update expression.UpdateBuilder, action string) error {
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(exists()).Build()
	if err != nil {
		return fmt.Errorf("build update expression: %w", err)
	}

	_, err = s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       key(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return classify(fmt.Sprintf("%s access request %s", action, id), err, model.ErrNotFound)
	}
	return nil
}

// Update replaces an existing record with the admin-edited version. The
// notification flag is cleared.
func (s *Store) Update(ctx context.Context, req *model.AccessRequest) (err error) {
	defer metrics.ObserveUpstream("dynamodb", "PutItem", time.Now(), &err)

	rec := *req
	rec.NotificationAlert = model.NotificationOff
	item, err := attributevalue.MarshalMap(&rec)
	if err != nil {
		return fmt.Errorf("marshal access request: %w", err)
	}
	expr, err := expression.NewBuilder().WithCondition(exists()).Build()
	if err != nil {
		return fmt.Errorf("build condition: %w", err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.table),
		Item:                     item,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		return classify(fmt.Sprintf("update access request %s", req.ID), err, model.ErrNotFound)
	}
	return nil
}

// Delete removes a request. ErrNotFound if it does not exist.
func (s *Store) Delete(ctx context.Context, id string) (err error) {
	defer metrics.ObserveUpstream("dynamodb", "DeleteItem", time.Now(), &err)

	expr, err := expression.NewBuilder().WithCondition(exists()).Build()
	if err != nil {
		return fmt.Errorf("build condition: %w", err)
	}
	_, err = s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(s.table),
		Key:                      key(id),
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		return classify(fmt.Sprintf("delete access request %s", id), err, model.ErrNotFound)
	}
	return nil
}

// Scan returns every request matching f, following pagination to the end.
func (s *Store) Scan(ctx context.Context, f model.AccessRequestFilter) ([]model.AccessRequest, error) {
	var conds []expression.ConditionBuilder
	if f.Status != "" {
		conds = append(conds, expression.Name(model.AttrStatus).Equal(expression.Value(f.Status)))
	}
	if f.Environment != "" {
		conds = append(conds, expression.Name(model.AttrEnvironment).Equal(expression.Value(f.Environment)))
	}
	return s.scan(ctx, conds)
}

// ScanApproved returns the approved requests submitted by email.
func (s *Store) ScanApproved(ctx context.Context, email string) ([]model.AccessRequest, error) {
	return s.scan(ctx, []expression.ConditionBuilder{
		expression.Name(model.AttrStatus).Equal(expression.Value(model.StatusApproved)),
		expression.Name(model.AttrEmail).Equal(expression.Value(email)),
	})
}

// ScanNotifications returns decided requests by email the requester has not
// seen yet.
func (s *Store) ScanNotifications(ctx context.Context, email string) ([]model.AccessRequest, error) {
	return s.scan(ctx, []expression.ConditionBuilder{
		expression.Name(model.AttrNotificationAlert).Equal(expression.Value(model.NotificationOn)),
		expression.Name(model.AttrEmail).Equal(expression.Value(email)),
	})
}

func (s *Store) scan(ctx context.Context, conds []expression.ConditionBuilder) (_ []model.AccessRequest, err error) {
	defer metrics.ObserveUpstream("dynamodb", "Scan", time.Now(), &err)

	in := &dynamodb.ScanInput{TableName: aws.String(s.table)}
	if len(conds) > 0 {
		filter := conds[0]
		if len(conds) > 1 {
			filter = expression.And(conds[0], conds[1], conds[2:]...)
		}
		expr, err := expression.NewBuilder().WithFilter(filter).Build()
		if err != nil {
			return nil, fmt.Errorf("build filter expression: %w", err)
		}
		in.FilterExpression = expr.Filter()
		in.ExpressionAttributeNames = expr.Names()
		in.ExpressionAttributeValues = expr.Values()
	}

	var out []model.AccessRequest
	p := dynamodb.NewScanPaginator(s.api, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan access requests: %w: %w", model.ErrUnavailable, err)
		}
		var items []model.AccessRequest
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal access requests: %w", err)
		}
		out = append(out, items...)
	}
	return out, nil
}

// Ping checks the table is reachable.
func (s *Store) Ping(ctx context.Context) (err error) {
	defer metrics.ObserveUpstream("dynamodb", "DescribeTable", time.Now(), &err)

	_, err = s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err != nil {
		return fmt.Errorf("describe table %s: %w: %w", s.table, model.ErrUnavailable, err)
	}
	return nil
}

// classify maps a failed condition check to onCondition and everything else
// to ErrUnavailable.
func classify(op string, err error, onCondition error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%s: %w", op, onCondition)
	}
	var rnf *types.ResourceNotFoundException
	if errors.As(err, &rnf) {
		return fmt.Errorf("%s: table missing: %w: %w", op, model.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrUnavailable, err)
}
