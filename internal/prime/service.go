package prime

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"mint-sale-go/internal/models"
	"mint-sale-go/internal/store"

	"github.com/coinbase-samples/prime-sdk-go/client"
	"github.com/coinbase-samples/prime-sdk-go/credentials"
	"github.com/coinbase-samples/prime-sdk-go/model"
	"github.com/coinbase-samples/prime-sdk-go/portfolios"
	"github.com/coinbase-samples/prime-sdk-go/transactions"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

var _ store.Payout = (*Service)(nil)

// Service disburses coordinator rewards as Prime wallet withdrawals.
type Service struct {
	client          client.RestClient
	portfoliosSvc   portfolios.PortfoliosService
	transactionsSvc transactions.TransactionsService
	cfg             models.PrimeConfig
}

func NewService(creds *credentials.Credentials, cfg models.PrimeConfig) (*Service, error) {
	if cfg.WalletId == "" || cfg.DestinationAddress == "" {
		return nil, fmt.Errorf("prime payout requires a source wallet and destination address")
	}

	httpClient, err := createCustomHttpClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	restClient := client.NewRestClient(creds, httpClient)

	return &Service{
		client:          restClient,
		portfoliosSvc:   portfolios.NewPortfoliosService(restClient),
		transactionsSvc: transactions.NewTransactionsService(restClient),
		cfg:             cfg,
	}, nil
}

func createCustomHttpClient() (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   60 * time.Second,
	}, nil
}

func (s *Service) ListPortfolios(ctx context.Context) ([]models.Portfolio, error) {
	request := &portfolios.ListPortfoliosRequest{}

	response, err := s.portfoliosSvc.ListPortfolios(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("unable to list portfolios: %w", err)
	}

	portfolioList := make([]models.Portfolio, len(response.Portfolios))
	for i, p := range response.Portfolios {
		portfolioList[i] = models.Portfolio{
			Id:   p.Id,
			Name: p.Name,
		}
	}

	return portfolioList, nil
}

func (s *Service) FindDefaultPortfolio(ctx context.Context) (*models.Portfolio, error) {
	portfolioList, err := s.ListPortfolios(ctx)
	if err != nil {
		return nil, err
	}

	for _, portfolio := range portfolioList {
		if portfolio.Name == "Default Portfolio" {
			return &portfolio, nil
		}
	}

	return nil, fmt.Errorf("default portfolio not found")
}

// ResolvePortfolio fills in the configured portfolio with the default one when unset.
func (s *Service) ResolvePortfolio(ctx context.Context) error {
	if s.cfg.PortfolioId != "" {
		return nil
	}
	portfolio, err := s.FindDefaultPortfolio(ctx)
	if err != nil {
		return err
	}
	zap.L().Info("Using default portfolio for payouts",
		zap.String("name", portfolio.Name),
		zap.String("id", portfolio.Id))
	s.cfg.PortfolioId = portfolio.Id
	return nil
}

// Disburse withdraws amount, given in the asset's smallest unit, from the
// configured Prime wallet to the configured destination.
func (s *Service) Disburse(ctx context.Context, to, asset string, amount decimal.Decimal, reference string) error {
	withdrawal, err := s.CreateWithdrawal(ctx, CreateWithdrawalParams{
		PortfolioId:        s.cfg.PortfolioId,
		WalletId:           s.cfg.WalletId,
		DestinationAddress: s.cfg.DestinationAddress,
		Network:            s.cfg.AssetNetwork,
		Amount:             wholeUnits(amount, s.cfg.AssetPrecision),
		Asset:              asset,
		IdempotencyKey:     idempotencyKey(reference),
	})
	if err != nil {
		return err
	}

	zap.L().Info("Rewards disbursed via Prime",
		zap.String("coordinator", to),
		zap.String("activity_id", withdrawal.ActivityId),
		zap.String("amount", withdrawal.Amount),
		zap.String("asset", asset))
	return nil
}

// CreateWithdrawalParams contains parameters for creating a withdrawal
type CreateWithdrawalParams struct {
	PortfolioId        string
	WalletId           string
	DestinationAddress string
	Network            string // e.g. ethereum-mainnet, empty for the Prime default
	Amount             string
	Asset              string
	IdempotencyKey     string
}

// CreateWithdrawal creates a withdrawal from a wallet
func (s *Service) CreateWithdrawal(ctx context.Context, params CreateWithdrawalParams) (*models.Withdrawal, error) {
	zap.L().Info("Creating withdrawal via Prime API",
		zap.String("portfolio_id", params.PortfolioId),
		zap.String("wallet_id", params.WalletId),
		zap.String("asset", params.Asset),
		zap.String("amount", params.Amount),
		zap.String("destination", params.DestinationAddress))

	request := &transactions.CreateWalletWithdrawalRequest{
		PortfolioId:       params.PortfolioId,
		SourceWalletId:    params.WalletId,
		Amount:            params.Amount,
		IdempotencyKey:    params.IdempotencyKey,
		Symbol:            params.Asset,
		DestinationType:   "DESTINATION_BLOCKCHAIN",
		BlockchainAddress: blockchainAddress(params.DestinationAddress, params.Network),
	}

	response, err := s.transactionsSvc.CreateWalletWithdrawal(ctx, request)
	if err != nil {
		zap.L().Error("Failed to create withdrawal",
			zap.String("wallet_id", params.WalletId),
			zap.String("amount", params.Amount),
			zap.String("asset", params.Asset),
			zap.Error(err))
		return nil, fmt.Errorf("unable to create withdrawal: %w", err)
	}

	zap.L().Info("Withdrawal created successfully",
		zap.String("activity_id", response.ActivityId),
		zap.String("wallet_id", params.WalletId),
		zap.String("amount", params.Amount),
		zap.String("asset", params.Asset))

	return &models.Withdrawal{
		ActivityId:     response.ActivityId,
		Asset:          params.Asset,
		Amount:         params.Amount,
		Destination:    params.DestinationAddress,
		IdempotencyKey: params.IdempotencyKey,
	}, nil
}

// blockchainAddress builds the withdrawal destination. network is "<id>-<type>",
// e.g. ethereum-mainnet.
func blockchainAddress(address, network string) *model.BlockchainAddress {
	addr := &model.BlockchainAddress{Address: address}
	for i := len(network) - 1; i > 0; i-- {
		if network[i] == '-' {
			addr.Network = &model.NetworkDetails{
				Id:   network[:i],
				Type: network[i+1:],
			}
			break
		}
	}
	return addr
}

// wholeUnits converts a smallest-unit amount to the decimal string Prime expects.
func wholeUnits(amount decimal.Decimal, precision int) string {
	return amount.Shift(-int32(precision)).String()
}

// idempotencyKey returns reference if it is already a UUID, otherwise a UUID
// derived from it so retries of the same payout map to the same key.
func idempotencyKey(reference string) string {
	if _, err := uuid.Parse(reference); err == nil {
		return reference
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(reference)).String()
}
