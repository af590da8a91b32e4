// Package repo provides typed, paged access to the entities in the
// wide-row table. Every repository speaks the errs taxonomy: NOT_FOUND for
// missing items, CONFLICT for conditional-write loss, STORE_FAILED for
// everything else.
package repo

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/learnhub/admin-plane/pkg/errs"
	"github.com/learnhub/admin-plane/pkg/storage"
)

// MaxPageSize is the hard cap on records per page for every paged query.
const MaxPageSize = 1000

// DefaultPageSize applies when the caller does not ask for a limit.
const DefaultPageSize = 50

func clampLimit(limit int32) int32 {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// EncodeToken renders a store continuation key as an opaque token.
func EncodeToken(next map[string]string) string {
	if len(next) == 0 {
		return ""
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeToken parses an opaque continuation token back into a store key.
func DecodeToken(token string) (map[string]string, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, errs.Validation("lastEvaluatedKey", "format", "invalid continuation token")
	}
	var next map[string]string
	if err := json.Unmarshal(raw, &next); err != nil {
		return nil, errs.Validation("lastEvaluatedKey", "format", "invalid continuation token")
	}
	return next, nil
}

// unmarshalPage decodes a page of raw items into entities.
func unmarshalPage[T any](items []map[string]types.AttributeValue) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		var entity T
		if err := attributevalue.UnmarshalMap(item, &entity); err != nil {
			return nil, errs.Wrap(errs.KindStoreFailed, "failed to decode stored item", err)
		}
		out = append(out, entity)
	}
	return out, nil
}

// itemKey extracts the primary key attributes from a raw item.
func itemKey(item map[string]types.AttributeValue) (storage.Key, error) {
	pk, ok := item[storage.AttrPK].(*types.AttributeValueMemberS)
	if !ok {
		return storage.Key{}, fmt.Errorf("item missing PK attribute")
	}
	sk, ok := item[storage.AttrSK].(*types.AttributeValueMemberS)
	if !ok {
		return storage.Key{}, fmt.Errorf("item missing SK attribute")
	}
	return storage.Key{PK: pk.Value, SK: sk.Value}, nil
}

// mapStoreErr translates store sentinels into the error taxonomy.
func mapStoreErr(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return errs.New(errs.KindNotFound, notFoundMsg)
	case errors.Is(err, storage.ErrConditionFailed):
		return errs.New(errs.KindConflict, "concurrent modification detected")
	default:
		return errs.Wrap(errs.KindStoreFailed, "store operation failed", err)
	}
}
