package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Create(ctx context.Context, req CreateRequest) (*Response, error)
}

type ListRequest struct {
	PeggedAsset string
	Symbol      string
}

type CreateRequest struct {
	Address     string         `json:"address"`
	Name        string         `json:"name"`
	Symbol      string         `json:"symbol"`
	PeggedAsset string         `json:"peggedAsset"`
	Metadata    map[string]any `json:"metadata"`
}

// Response is the camelCase wire shape; columns are snake_case in the store.
type Response struct {
	ID                    string         `json:"id"`
	Address               string         `json:"address"`
	Name                  string         `json:"name"`
	Symbol                string         `json:"symbol"`
	PeggedAsset           string         `json:"peggedAsset"`
	TotalSupply           string         `json:"totalSupply"`
	TransactionVolume30d  string         `json:"transactionVolume30d"`
	DailyTransactionCount string         `json:"dailyTransactionCount"`
	DailyActiveUsers      string         `json:"dailyActiveUsers"`
	Price                 string         `json:"price,omitempty"`
	PegPrice              *float64       `json:"pegPrice,omitempty"`
	PriceUpdatedAt        *time.Time     `json:"priceUpdatedAt,omitempty"`
	PegPriceUpdatedAt     *time.Time     `json:"pegPriceUpdatedAt,omitempty"`
	Metadata              map[string]any `json:"metadata,omitempty"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
}

var (
	ErrNotFound         = errors.New("not_found")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidAddress   = errors.New("invalid_address")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidSymbol    = errors.New("invalid_symbol")
	ErrDuplicateAddress = errors.New("duplicate_address")
	ErrUnsafeField      = errors.New("unsafe_field")
)
