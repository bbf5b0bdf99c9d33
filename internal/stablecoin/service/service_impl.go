package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stableview/stableview/internal/stablecoin/domain"
	"github.com/stableview/stableview/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("stablecoin.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	filter := domain.ListFilter{
		PeggedAsset: strings.ToUpper(strings.TrimSpace(req.PeggedAsset)),
		Symbol:      strings.ToUpper(strings.TrimSpace(req.Symbol)),
	}

	coins, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(coins))
	for i := range coins {
		resp = append(resp, toResponse(&coins[i]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	parsed, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	coin, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if coin == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(coin)
	return &resp, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return nil, domain.ErrInvalidAddress
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, domain.ErrInvalidSymbol
	}
	pegged := strings.ToUpper(strings.TrimSpace(req.PeggedAsset))
	if pegged == "" {
		pegged = "USD"
	}

	now := time.Now().UTC()
	record := &domain.Stablecoin{
		ID:                    s.genID.Generate(),
		Address:               address,
		Name:                  name,
		Symbol:                symbol,
		PeggedAsset:           pegged,
		TotalSupply:           "0",
		TransactionVolume30d:  "0",
		DailyTransactionCount: "0",
		DailyActiveUsers:      "0",
		Metadata:              req.Metadata,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.repo.Create(ctx, s.db, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateAddress
		}
		return nil, err
	}

	s.log.Info("stablecoin created",
		zap.String("id", record.ID.String()),
		zap.String("symbol", record.Symbol),
		zap.String("address", record.Address),
	)

	resp := toResponse(record)
	return &resp, nil
}

func toResponse(coin *domain.Stablecoin) domain.Response {
	return domain.Response{
		ID:                    coin.ID.String(),
		Address:               coin.Address,
		Name:                  coin.Name,
		Symbol:                coin.Symbol,
		PeggedAsset:           coin.PeggedAsset,
		TotalSupply:           coin.TotalSupply,
		TransactionVolume30d:  coin.TransactionVolume30d,
		DailyTransactionCount: coin.DailyTransactionCount,
		DailyActiveUsers:      coin.DailyActiveUsers,
		Price:                 coin.Price,
		PegPrice:              coin.PegPrice,
		PriceUpdatedAt:        coin.PriceUpdatedAt,
		PegPriceUpdatedAt:     coin.PegPriceUpdatedAt,
		Metadata:              coin.Metadata,
		CreatedAt:             coin.CreatedAt,
		UpdatedAt:             coin.UpdatedAt,
	}
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}
