package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Open selects a slot backend from a DSN-style string:
//
//	memory://                    in-memory (default when empty)
//	file://relative/or/abs/path  single JSON file
//	dynamodb://table/slot-key    DynamoDB item, AWS config from environment
func Open(ctx context.Context, dsn string) (Slot, error) {
	if dsn == "" {
		return NewMemorySlot(), nil
	}

	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return nil, fmt.Errorf("invalid slot DSN %q", dsn)
	}

	switch scheme {
	case "memory":
		return NewMemorySlot(), nil
	case "file":
		if rest == "" {
			return nil, fmt.Errorf("file slot DSN %q is missing a path", dsn)
		}
		return NewFileSlot(rest), nil
	case "dynamodb":
		table, slotKey, ok := strings.Cut(rest, "/")
		if !ok || table == "" || slotKey == "" {
			return nil, fmt.Errorf("dynamodb slot DSN %q must be dynamodb://table/slot-key", dsn)
		}
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return NewDynamoSlot(dynamodb.NewFromConfig(cfg), table, slotKey), nil
	default:
		return nil, fmt.Errorf("unknown slot backend %q", scheme)
	}
}
