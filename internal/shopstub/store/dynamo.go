package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoStore keeps all storefront rows in one table with a pk/sk layout:
//
//	CART#<id>      STATE             cart aggregate as JSON
//	PRODUCT#<id>   STATE             product as JSON
//	USER#<id>      STATE             user as JSON
//	EMAIL#<email>  STATE             pointer to the user id
//	REVIEW#<id>    REACTION#<user>   one row per (review, user) reaction
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
}

type dynamoRow struct {
	PK        string `dynamodbav:"pk"`
	SK        string `dynamodbav:"sk"`
	Data      string `dynamodbav:"data,omitempty"`
	Kind      string `dynamodbav:"kind,omitempty"`
	UserID    string `dynamodbav:"user_id,omitempty"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

const stateSK = "STATE"

func (s *DynamoStore) putRow(ctx context.Context, row dynamoRow) error {
	row.UpdatedAt = time.Now().Format(time.RFC3339)
	item, err := attributevalue.MarshalMap(row)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	return err
}

func (s *DynamoStore) getRow(ctx context.Context, pk, sk string) (*dynamoRow, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: pk},
			"sk": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return nil, false, err
	}
	if out.Item == nil {
		return nil, false, nil
	}
	var row dynamoRow
	if err := attributevalue.UnmarshalMap(out.Item, &row); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return &row, true, nil
}

func (s *DynamoStore) getState(ctx context.Context, pk string, out any) (bool, error) {
	row, ok, err := s.getRow(ctx, pk, stateSK)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal([]byte(row.Data), out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *DynamoStore) putState(ctx context.Context, pk string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.putRow(ctx, dynamoRow{PK: pk, SK: stateSK, Data: string(data)})
}

func (s *DynamoStore) GetCart(ctx context.Context, cartID string) (*Cart, bool, error) {
	var cart Cart
	ok, err := s.getState(ctx, "CART#"+cartID, &cart)
	if !ok || err != nil {
		return nil, false, err
	}
	return &cart, true, nil
}

func (s *DynamoStore) PutCart(ctx context.Context, cart *Cart) error {
	return s.putState(ctx, "CART#"+cart.ID, cart)
}

func (s *DynamoStore) GetProduct(ctx context.Context, id string) (*Product, bool, error) {
	var p Product
	ok, err := s.getState(ctx, "PRODUCT#"+id, &p)
	if !ok || err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

func (s *DynamoStore) PutProduct(ctx context.Context, p *Product) error {
	return s.putState(ctx, "PRODUCT#"+p.ID, p)
}

// storedUser carries the password hash, which User itself excludes from
// JSON.
type storedUser struct {
	User
	PasswordHash string `json:"password_hash"`
}

func (s *DynamoStore) GetUser(ctx context.Context, id string) (*User, bool, error) {
	var su storedUser
	ok, err := s.getState(ctx, "USER#"+id, &su)
	if !ok || err != nil {
		return nil, false, err
	}
	u := su.User
	u.PasswordHash = su.PasswordHash
	return &u, true, nil
}

func (s *DynamoStore) GetUserByEmail(ctx context.Context, email string) (*User, bool, error) {
	row, ok, err := s.getRow(ctx, "EMAIL#"+email, stateSK)
	if err != nil || !ok {
		return nil, false, err
	}
	return s.GetUser(ctx, row.UserID)
}

func (s *DynamoStore) PutUser(ctx context.Context, u *User) error {
	if err := s.putState(ctx, "USER#"+u.ID, storedUser{User: *u, PasswordHash: u.PasswordHash}); err != nil {
		return err
	}
	return s.putRow(ctx, dynamoRow{PK: "EMAIL#" + u.Email, SK: stateSK, UserID: u.ID})
}

func (s *DynamoStore) GetReaction(ctx context.Context, reviewID, userID string) (string, bool, error) {
	row, ok, err := s.getRow(ctx, "REVIEW#"+reviewID, "REACTION#"+userID)
	if err != nil || !ok {
		return "", false, err
	}
	return row.Kind, true, nil
}

func (s *DynamoStore) PutReaction(ctx context.Context, reviewID, userID, kind string) error {
	return s.putRow(ctx, dynamoRow{
		PK:     "REVIEW#" + reviewID,
		SK:     "REACTION#" + userID,
		Kind:   kind,
		UserID: userID,
	})
}

func (s *DynamoStore) DeleteReaction(ctx context.Context, reviewID, userID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: "REVIEW#" + reviewID},
			"sk": &types.AttributeValueMemberS{Value: "REACTION#" + userID},
		},
	})
	return err
}

func (s *DynamoStore) ReactionCounts(ctx context.Context, reviewID string) (int, int, error) {
	var likes, dislikes int
	var lastKey map[string]types.AttributeValue

	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: "REVIEW#" + reviewID},
				":sk": &types.AttributeValueMemberS{Value: "REACTION#"},
			},
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return 0, 0, err
		}

		var rows []dynamoRow
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &rows); err != nil {
			return 0, 0, fmt.Errorf("failed to unmarshal reactions: %w", err)
		}
		for _, row := range rows {
			switch row.Kind {
			case "like":
				likes++
			case "dislike":
				dislikes++
			}
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		lastKey = out.LastEvaluatedKey
	}

	return likes, dislikes, nil
}
