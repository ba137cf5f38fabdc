package api

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"linkStake/internal/model"
	"linkStake/internal/pool"
	"linkStake/internal/price"
	"linkStake/internal/stake"
)

const lpDecimals = 18

// BalanceReader returns the amount account has staked in a rewards contract.
type BalanceReader func(ctx context.Context, rewards, account common.Address) (*big.Int, error)

// TxLister lists tracked transactions for an account.
type TxLister interface {
	ListTransactions(ctx context.Context, chainID uint64, from string, limit int) ([]model.TxRecord, error)
}

// Deps are the read-only services exposed over HTTP. Nil services disable their routes.
type Deps struct {
	ChainID      uint64
	Prices       *price.Store
	PriceMaxAge  time.Duration
	Resolver     *pool.Resolver
	Balances     BalanceReader
	Transactions TxLister
	Gatherer     prometheus.Gatherer
	Logger       *zap.Logger
	Now          func() time.Time
}

type APIRespond struct {
	Result interface{}
	Error  *string
}

type PricesResult struct {
	Snapshot model.PriceSnapshot
	Stale    bool
}

type PoolResult struct {
	Pair           string
	RewardsAddress string
	Found          bool
}

type StakeResult struct {
	Pair           string
	RewardsAddress string
	Account        string
	StakedBalance  string
	StakedDisplay  string
	MaxAmount      string
}

var (
	errInvalidAddress = errors.New("invalid address")
	errNoRewardPool   = errors.New("no reward pool for pair")
)

type server struct {
	deps Deps
}

// NewRouter builds the gin engine serving prices, pool lookups, staked balances and metrics.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &server{deps: deps}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(deps.Logger))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/health", s.health)
	if deps.Prices != nil {
		r.GET("/prices", s.prices)
	}
	if deps.Resolver != nil {
		r.GET("/pools/:pair", s.pool)
		if deps.Balances != nil {
			r.GET("/stake/:pair/:account", s.stake)
		}
	}
	if deps.Transactions != nil {
		r.GET("/transactions/:account", s.transactions)
	}
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

func (s *server) health(c *gin.Context) {
	c.JSON(http.StatusOK, APIRespond{Result: "ok"})
}

func (s *server) prices(c *gin.Context) {
	snapshot := s.deps.Prices.Snapshot()
	stale := false
	if s.deps.PriceMaxAge > 0 {
		stale = s.deps.Prices.Stale(s.deps.Now(), s.deps.PriceMaxAge)
	}
	c.JSON(http.StatusOK, APIRespond{Result: PricesResult{Snapshot: snapshot.Model(), Stale: stale}})
}

func (s *server) pool(c *gin.Context) {
	pair := c.Param("pair")
	res := s.deps.Resolver.Resolve(pair)
	rewards, _ := res.RewardsAddress()
	c.JSON(http.StatusOK, APIRespond{Result: PoolResult{Pair: pair, RewardsAddress: rewards, Found: res.Found}})
}

func (s *server) stake(c *gin.Context) {
	pair := c.Param("pair")
	account := c.Param("account")
	if !common.IsHexAddress(account) {
		c.JSON(http.StatusBadRequest, buildGinErrorRespond(errInvalidAddress))
		return
	}
	res := s.deps.Resolver.Resolve(pair)
	rewards, ok := res.RewardsAddress()
	if !ok {
		c.JSON(http.StatusNotFound, buildGinErrorRespond(errNoRewardPool))
		return
	}
	if !common.IsHexAddress(rewards) {
		c.JSON(http.StatusInternalServerError, buildGinErrorRespond(errInvalidAddress))
		return
	}

	balance, err := s.deps.Balances(c.Request.Context(), common.HexToAddress(rewards), common.HexToAddress(account))
	if err != nil {
		s.deps.Logger.Warn("staked balance read failed", zap.String("pair", pair), zap.String("account", account), zap.Error(err))
		c.JSON(http.StatusBadGateway, buildGinErrorRespond(err))
		return
	}
	c.JSON(http.StatusOK, APIRespond{Result: StakeResult{
		Pair:           pair,
		RewardsAddress: rewards,
		Account:        common.HexToAddress(account).Hex(),
		StakedBalance:  balance.String(),
		StakedDisplay:  stake.DisplayAmount(balance, lpDecimals),
		MaxAmount:      stake.FormatAmount(balance, lpDecimals),
	}})
}

func (s *server) transactions(c *gin.Context) {
	account := c.Param("account")
	if !common.IsHexAddress(account) {
		c.JSON(http.StatusBadRequest, buildGinErrorRespond(errInvalidAddress))
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	txs, err := s.deps.Transactions.ListTransactions(c.Request.Context(), s.deps.ChainID, account, limit)
	if err != nil {
		s.deps.Logger.Warn("list transactions failed", zap.String("account", account), zap.Error(err))
		c.JSON(http.StatusInternalServerError, buildGinErrorRespond(err))
		return
	}
	if txs == nil {
		txs = []model.TxRecord{}
	}
	c.JSON(http.StatusOK, APIRespond{Result: txs})
}

func buildGinErrorRespond(err error) *APIRespond {
	errStr := err.Error()
	return &APIRespond{Error: &errStr}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
